package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestMemory_RecordStepTruncation(t *testing.T) {
	m := NewMemory()

	long := strings.Repeat("a", 600)
	m.RecordStep("t", "nmap", long)
	stored := m.Steps()[0].Output
	assert.Equal(t, DefaultOutputBudget+len(DefaultMarker), utf8.RuneCountInString(stored))
	assert.True(t, strings.HasSuffix(stored, DefaultMarker))
	assert.Equal(t, strings.Repeat("a", DefaultOutputBudget), strings.TrimSuffix(stored, DefaultMarker))

	exact := strings.Repeat("b", DefaultOutputBudget)
	m.RecordStep("t", "id", exact)
	assert.Equal(t, exact, m.Steps()[1].Output)

	short := "22/tcp open ssh"
	m.RecordStep("t", "nmap", short)
	assert.Equal(t, short, m.Steps()[2].Output)
}

func TestMemory_RecordStepTruncatesRunes(t *testing.T) {
	m := NewMemory(WithOutputBudget(3))
	m.RecordStep("", "echo", "ñáéíó")

	assert.Equal(t, "ñáé...", m.Steps()[0].Output)
}

func TestMemory_HistoryDigestEmpty(t *testing.T) {
	m := NewMemory()
	assert.Equal(t, NoHistory, m.HistoryDigest())
}

func TestMemory_HistoryDigestWindow(t *testing.T) {
	m := NewMemory(WithClock(fixedClock()))
	for i := 1; i <= 10; i++ {
		m.RecordStep("thought", fmt.Sprintf("cmd%d", i), fmt.Sprintf("out%d", i))
	}

	lines := strings.Split(m.HistoryDigest(), "\n")
	require.Len(t, lines, DefaultHistoryWindow)
	assert.Equal(t, "Step 1 [14:30:03]: cmd3 -> out3", lines[0])
	assert.Equal(t, "Step 8 [14:30:10]: cmd10 -> out10", lines[7])
}

func TestMemory_SummaryWindow(t *testing.T) {
	m := NewMemory()
	for i := 1; i <= 15; i++ {
		m.RecordSummaryLine(fmt.Sprintf("line %d", i))
	}

	lines := strings.Split(m.SummaryDigest(10), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "line 6", lines[0])
	assert.Equal(t, "line 15", lines[9])

	// Older lines are retained, just not rendered
	assert.Len(t, m.Summary(), 15)
	assert.Equal(t, m.SummaryDigest(10), m.SummaryDigest(0))
	assert.Equal(t, "", NewMemory().SummaryDigest(10))
}

func TestMemory_AppendOnly(t *testing.T) {
	m := NewMemory()
	m.RecordStep("first", "id", "uid=0")
	before := m.Steps()

	m.RecordStep("second", "whoami", "root")
	m.RecordSummaryLine("Explained: nmap")

	after := m.Steps()
	require.Len(t, after, 2)
	assert.Equal(t, before[0], after[0])

	// Returned slices are copies
	after[0].Output = "changed"
	assert.Equal(t, "uid=0", m.Steps()[0].Output)
}

func TestMemory_Status(t *testing.T) {
	m := NewMemory()
	assert.Nil(t, m.Status().LastStep)

	m.RecordStep("t", "id", "uid=0")
	m.RecordSummaryLine("s")
	status := m.Status()
	assert.Equal(t, 1, status.StepCount)
	assert.Equal(t, 1, status.SummaryCount)
	require.NotNil(t, status.LastStep)
	assert.Equal(t, "id", status.LastStep.Action)
}

func TestMemory_ConcurrentReaders(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.HistoryDigest()
				_ = m.Status()
			}
		}()
	}
	for j := 0; j < 50; j++ {
		m.RecordStep("t", "a", "o")
		m.RecordSummaryLine("s")
	}
	wg.Wait()

	assert.Equal(t, 50, m.Status().StepCount)
}

func TestMemory_UpdateTargetMerges(t *testing.T) {
	m := NewMemory()
	m.UpdateTarget("10.0.0.5", map[string]any{"port": 22, "service": "ssh"})
	m.UpdateTarget(" 10.0.0.5 ", map[string]any{"service": "openssh 9.6", "os": "linux"})
	m.UpdateTarget("", map[string]any{"ignored": true})

	targets := m.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, map[string]any{"port": 22, "service": "openssh 9.6", "os": "linux"}, targets["10.0.0.5"])

	targets["10.0.0.5"]["port"] = 80
	assert.Equal(t, 22, m.Targets()["10.0.0.5"]["port"])
}

func TestMemory_RecordFindingDedupes(t *testing.T) {
	m := NewMemory()
	assert.True(t, m.RecordFinding("22/tcp open ssh"))
	assert.False(t, m.RecordFinding("22/tcp open ssh "))
	assert.False(t, m.RecordFinding("  "))
	assert.True(t, m.RecordFinding("80/tcp open http"))

	assert.Equal(t, []string{"22/tcp open ssh", "80/tcp open http"}, m.Findings())
	assert.Equal(t, 2, m.Status().FindingCount)
}

func TestMemory_ExecutedCommands(t *testing.T) {
	m := NewMemory()
	m.RecordStep("t", "nmap -sV 10.0.0.5", "o")
	m.RecordStep("t", "whoami", "root")
	m.RecordStep("t", "nmap -sV 10.0.0.5", "o")

	assert.Equal(t, []string{"nmap -sV 10.0.0.5", "whoami"}, m.ExecutedCommands())
}

func TestMemory_StateJSON(t *testing.T) {
	m := NewMemory()
	assert.Equal(t, "", m.StateJSON())

	m.UpdateTarget("10.0.0.5", map[string]any{"port": 22})
	m.RecordStep("t", "whoami", "root")

	assert.JSONEq(t, `{
		"targets": {"10.0.0.5": {"port": 22}},
		"findings": [],
		"executed_tools": ["whoami"]
	}`, m.StateJSON())
	assert.Equal(t, 1, m.Status().TargetCount)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 0, "..."))
	assert.Equal(t, "ab [truncated]", Truncate("abc", 2, " [truncated]"))
}
