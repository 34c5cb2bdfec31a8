package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultWidth is used when the terminal width is unknown
const DefaultWidth = 100

// PanelKind selects the border colour of a panel
type PanelKind string

const (
	PanelInfo     PanelKind = "info"
	PanelCommand  PanelKind = "command"
	PanelFindings PanelKind = "findings"
	PanelQuestion PanelKind = "question"
	PanelExplain  PanelKind = "explain"
	PanelComplete PanelKind = "complete"
	PanelError    PanelKind = "error"
	PanelRaw      PanelKind = "raw"
)

var panelColors = map[PanelKind]string{
	PanelInfo:     "6",
	PanelCommand:  "3",
	PanelFindings: "4",
	PanelQuestion: "5",
	PanelExplain:  "4",
	PanelComplete: "2",
	PanelError:    "1",
	PanelRaw:      "8",
}

// Level is the severity of a one-line notice
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

// Options configures a Console
type Options struct {
	// Color enables ANSI colours
	Color bool
	// Interactive enables the spinner
	Interactive bool
	Width       int
}

// Console handles line-based human input and styled output
type Console struct {
	mu    sync.Mutex
	in    *bufio.Reader
	out   io.Writer
	opts  Options
	title cases.Caser
}

// New creates a Console over arbitrary streams
func New(in io.Reader, out io.Writer, opts Options) *Console {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	return &Console{
		in:    bufio.NewReader(in),
		out:   out,
		opts:  opts,
		title: cases.Title(language.English),
	}
}

// Stdio creates a Console over the process streams, enabling colours and the
// spinner only when stdout is a terminal.
func Stdio(width int) *Console {
	fd := int(os.Stdout.Fd())
	tty := term.IsTerminal(fd) && term.IsTerminal(int(os.Stdin.Fd()))
	if width <= 0 && tty {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}
	if !tty {
		color.NoColor = true
	}
	return New(os.Stdin, os.Stdout, Options{Color: tty, Interactive: tty, Width: width})
}

// Out returns the output writer
func (c *Console) Out() io.Writer {
	return c.out
}

// ReadLine prints prompt and reads one line. The boolean is false when the
// input stream is closed; a final unterminated line is still returned.
func (c *Console) ReadLine(prompt string) (string, bool) {
	if prompt != "" {
		c.print(c.colored(color.FgRed, color.Bold).Sprint(prompt))
	}
	line, err := c.in.ReadString('\n')
	if err != nil {
		if line == "" {
			return "", false
		}
	}
	return strings.TrimSpace(line), true
}

// Confirm asks a yes/no question. closed reports that input ended, in which
// case answer is defaultYes.
func (c *Console) Confirm(prompt string, defaultYes bool) (answer bool, closed bool) {
	suffix := " [Y/n] "
	if !defaultYes {
		suffix = " [y/N] "
	}
	for {
		line, ok := c.ReadLine(prompt + suffix)
		if !ok {
			return defaultYes, true
		}
		switch strings.ToLower(line) {
		case "":
			return defaultYes, false
		case "y", "yes", "s", "si":
			return true, false
		case "n", "no":
			return false, false
		default:
			c.Notice(LevelWarn, "Please answer y or n.")
		}
	}
}

// Panel renders a bordered block with a title line
func (c *Console) Panel(kind PanelKind, title, body string) {
	if title == "" {
		title = c.title.String(string(kind))
	}
	inner := c.opts.Width - 4
	if inner < 20 {
		inner = 20
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	titleStyle := lipgloss.NewStyle().Bold(true)
	if c.opts.Color {
		fg := lipgloss.Color(panelColors[kind])
		style = style.BorderForeground(fg)
		titleStyle = titleStyle.Foreground(fg)
	}

	content := titleStyle.Render(title)
	if body = strings.TrimRight(body, "\n"); body != "" {
		content += "\n\n" + wordwrap.String(body, inner)
	}
	c.print(style.Render(content) + "\n")
}

// Notice prints a single status line
func (c *Console) Notice(level Level, msg string) {
	var (
		prefix string
		attrs  []color.Attribute
	)
	switch level {
	case LevelSuccess:
		prefix, attrs = "[+]", []color.Attribute{color.FgGreen}
	case LevelWarn:
		prefix, attrs = "[!]", []color.Attribute{color.FgYellow}
	case LevelError:
		prefix, attrs = "[x]", []color.Attribute{color.FgRed, color.Bold}
	default:
		prefix, attrs = "[*]", []color.Attribute{color.FgCyan}
	}
	c.print(c.colored(attrs...).Sprintf("%s %s", prefix, msg) + "\n")
}

// Println writes a plain line
func (c *Console) Println(a ...any) {
	c.print(fmt.Sprintln(a...))
}

// Busy shows a spinner until the returned func is called. It is a no-op on
// non-interactive consoles.
func (c *Console) Busy(label string) func() {
	if !c.opts.Interactive {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(c.out))
	s.Suffix = " " + label
	s.Start()
	var once sync.Once
	return func() { once.Do(s.Stop) }
}

// Banner prints the application header
func (c *Console) Banner(title, subtitle string) {
	style := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		Padding(0, 2).
		Bold(true)
	if c.opts.Color {
		style = style.BorderForeground(lipgloss.Color("1")).Foreground(lipgloss.Color("1"))
	}
	text := title
	if subtitle != "" {
		text += "\n" + lipgloss.NewStyle().Faint(c.opts.Color).Render(subtitle)
	}
	c.print(style.Render(text) + "\n")
}

// Table renders rows under headers
func (c *Console) Table(headers []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		t.AppendRow(row)
	}
	t.Render()
}

func (c *Console) colored(attrs ...color.Attribute) *color.Color {
	col := color.New(attrs...)
	if c.opts.Color {
		col.EnableColor()
	} else {
		col.DisableColor()
	}
	return col
}

func (c *Console) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, s)
}
