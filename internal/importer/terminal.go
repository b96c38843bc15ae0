package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	alertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// TerminalControl renders import feedback as lines on a terminal.
type TerminalControl struct {
	out   io.Writer
	label string

	mu       sync.Mutex
	spinners int
	disabled bool
	alerted  bool
	// OnRefresh, when set, runs after a successful submission.
	OnRefresh func(ctx context.Context) error
}

func NewTerminalControl(out io.Writer, label string) *TerminalControl {
	return &TerminalControl{out: out, label: label}
}

func (c *TerminalControl) Busy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spinners++
	c.disabled = true
	fmt.Fprintln(c.out, busyStyle.Render(c.label+" "+strings.Repeat("◌ ", c.spinners)))
}

func (c *TerminalControl) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, doneStyle.Render(c.label+" done"))
}

func (c *TerminalControl) Refresh(ctx context.Context) error {
	if c.OnRefresh == nil {
		return nil
	}
	return c.OnRefresh(ctx)
}

func (c *TerminalControl) Alert(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerted = true
	fmt.Fprintln(c.out, alertStyle.Render(message))
}

// Disabled reports whether Busy has been called. Nothing re-enables the control.
func (c *TerminalControl) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

func (c *TerminalControl) Alerted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alerted
}
