package executor

import (
	"fmt"
	"strings"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/action"
)

// SystemPrompt is always the first message of a conversation
const SystemPrompt = `You are RedAI Cortex, an autonomous penetration testing operator working in a Kali Linux terminal.
You are not a chat assistant. You plan and run security tooling against targets the operator is authorised to test.

Tools: you have full shell access. Typical tools include nmap, masscan, whatweb, dig, whois, sqlmap, gobuster,
nikto, wpscan, nuclei, subfinder, curl, python3 and grep. If a better tool may be installed, check with "which <tool>".

Rules:
- Never invent results. If you need information, run a command to get it.
- Run one command per step and wait for its RESULT before deciding the next step.
- Stay within the stated objective and avoid destructive actions unless explicitly asked.

Reply with exactly one JSON object and nothing else. Valid actions:

{"thought": "...", "action": "execute", "command": "<shell command>", "explanation": "<why>"}
{"thought": "...", "action": "analyze", "findings": ["..."], "next_step": "..."}
{"thought": "...", "action": "ask", "question": "<question for the operator>"}
{"thought": "...", "action": "explain", "title": "...", "explanation": "...", "commands": ["..."]}
{"thought": "...", "action": "complete", "summary": "...", "recommendations": ["..."]}
{"thought": "...", "action": "delegate", "role": "MANAGER|RECON|EXPLOIT", "reason": "<instruction for that role>"}

Use "explain" when the operator asks a question that needs no command. Use "complete" when the objective is done.
Use "delegate" to hand the objective to another role; the next reply is written as that role.

Any action may also carry "memory_update": {"target": "<host, IP or URL>", "data": {"port": 80, "service": "http"}}
to remember facts about a target. Remembered facts appear under KNOWN STATE.`

// seedMessage builds the first user message of an objective from the memory
// digests. The KNOWN STATE section is left out while state is empty.
func seedMessage(objective, summary, history, state string) string {
	if strings.TrimSpace(summary) == "" {
		summary = "None yet."
	}
	var known string
	if state != "" {
		known = "KNOWN STATE:\n" + state + "\n\n"
	}
	return fmt.Sprintf(`OBJECTIVE: %s

SESSION SUMMARY (earlier objectives):
%s

RECENT STEPS:
%s

%sDecide the next step.`, objective, summary, history, known)
}

func resultMessage(observation string) string {
	return "RESULT:\n" + observation + "\nAnalyze and decide next step."
}

func declinedMessage(feedback string) string {
	return "The operator declined to run that command. Feedback: " + feedback
}

func analyzeFollowUp(nextStep string) string {
	if nextStep == "" {
		return "Findings recorded. Continue with the next step."
	}
	return "Findings recorded. Continue with: " + nextStep
}

func unknownActionMessage(tag string) string {
	if tag == "" {
		tag = "(missing)"
	}
	return fmt.Sprintf(`Unrecognised action %q. Reply with one JSON object whose "action" is one of: %s.`,
		tag, action.KindList(", "))
}

func unknownRoleMessage(role string) string {
	return fmt.Sprintf(`Unknown role %q. Delegate to one of: %s.`, role, RoleList(", "))
}

func roleSwitchMessage(role Role, instruction string) string {
	if instruction == "" {
		instruction = "Continue with the objective."
	}
	return fmt.Sprintf("Role switched to %s. Instruction: %s", role, instruction)
}

const emptyCommandMessage = `The "execute" action needs a non-empty "command". Reply with a corrected JSON object.`

const helpText = `Describe an objective in plain words, for example:
  scan 10.0.0.5 for open services
  enumerate subdomains of example.com
  explain how to fingerprint a web server

Commands:
  status   show memory and progress
  help     show this help
  exit     quit the agent`
