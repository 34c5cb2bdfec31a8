package executor

import "strings"

// Role is a persona the model can hand an objective to
type Role string

const (
	RoleManager Role = "MANAGER"
	RoleRecon   Role = "RECON"
	RoleExploit Role = "EXPLOIT"
)

// Roles lists the known roles, the default first
var Roles = []Role{RoleManager, RoleRecon, RoleExploit}

var rolePrompts = map[Role]string{
	RoleManager: `Current role: MANAGER. You lead the engagement. Break the objective into phases and run quick checks yourself.
Delegate discovery and enumeration to RECON, and verification of a known weakness to EXPLOIT.`,
	RoleRecon: `Current role: RECON. You map the attack surface: hosts, open ports, service versions, subdomains and web content.
Prefer low-noise tools first. Delegate back to MANAGER once the surface is mapped.`,
	RoleExploit: `Current role: EXPLOIT. You verify weaknesses found during recon, one careful attempt per step.
Never run destructive payloads unless the operator asked for them. Delegate back to MANAGER when done or blocked.`,
}

// ParseRole matches a role name case-insensitively
func ParseRole(name string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(name)))
	_, ok := rolePrompts[r]
	return r, ok
}

// RoleList renders the known role names joined by sep
func RoleList(sep string) string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return strings.Join(names, sep)
}

// systemPrompt is the base prompt followed by the role's brief
func systemPrompt(role Role) string {
	brief, ok := rolePrompts[role]
	if !ok {
		brief = rolePrompts[RoleManager]
	}
	return SystemPrompt + "\n\n" + brief
}
