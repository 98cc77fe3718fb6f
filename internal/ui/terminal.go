package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Flusher is implemented by views that batch element updates and need to be
// told when a render is complete.
type Flusher interface {
	Flush()
}

// Terminal is a View that keeps its state in a Panel and repaints a status
// block to out on every Flush.
type Terminal struct {
	*Panel

	mu       sync.Mutex
	out      io.Writer
	label    *color.Color
	value    *color.Color
	unlocked *color.Color
	locked   *color.Color
}

func NewTerminal(out io.Writer) *Terminal {
	t := &Terminal{
		Panel:    NewPanel(),
		out:      out,
		label:    color.New(color.Faint),
		value:    color.New(color.FgCyan, color.Bold),
		unlocked: color.New(color.FgGreen),
		locked:   color.New(color.FgRed),
	}
	if !isTerminal(out) {
		for _, c := range []*color.Color{t.label, t.value, t.unlocked, t.locked} {
			c.DisableColor()
		}
	}
	return t
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (t *Terminal) Flush() {
	s := t.Snapshot()

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, "────────────────────────────")
	t.row("Network", s.Text[ElementSSID])
	t.row("Version", s.Text[ElementVersion])
	t.row("Battery", s.Text[ElementVoltage]+" V / "+s.Text[ElementCapacity]+" %")
	t.row("Speed", s.Text[ElementSpeed])

	direction := "?"
	switch {
	case s.Visible[IconForward]:
		direction = "▶ forward"
	case s.Visible[IconReverse]:
		direction = "◀ reverse"
	}
	t.row("Direction", direction)

	fmt.Fprintf(t.out, "%s %s %s\n",
		t.label.Sprintf("%-10s", "Buttons"),
		t.button("[f] forward", s.Enabled[ButtonForward]),
		t.button("[b] backward", s.Enabled[ButtonBackward]))
	fmt.Fprintln(t.out, t.label.Sprint("[+] faster  [-] slower  [s] stop  [q] quit"))
}

func (t *Terminal) row(label, value string) {
	fmt.Fprintf(t.out, "%s %s\n", t.label.Sprintf("%-10s", label), t.value.Sprint(value))
}

func (t *Terminal) button(label string, enabled bool) string {
	if enabled {
		return t.unlocked.Sprint(label)
	}
	return t.locked.Sprint(label + " (locked)")
}
