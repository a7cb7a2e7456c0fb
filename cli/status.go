package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/user-none/emapu/emu"
	"golang.org/x/term"
)

const defaultStatusWidth = 80

var channelLabels = [emu.NumChannels]string{"P1", "P2", "TR", "NO", "DM"}

type styles struct {
	frame    lipgloss.Style
	channel  [emu.NumChannels]lipgloss.Style
	disabled lipgloss.Style
	muted    lipgloss.Style
	warning  lipgloss.Style
}

// ANSI colours: 1 red, 2 green, 3 yellow, 6 cyan, 7 white, 8 grey.
func newStyles() styles {
	return styles{
		frame: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)),
		channel: [emu.NumChannels]lipgloss.Style{
			lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(1)),
			lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(3)),
			lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(6)),
			lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)),
			lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(2)),
		},
		disabled: lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1)),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1)),
	}
}

// StatusPrinter writes a one-line summary of the channel state. On a
// terminal the line is coloured and redrawn in place; otherwise plain
// lines are written.
type StatusPrinter struct {
	w      io.Writer
	styles styles
	color  bool
	width  int
}

// NewStatusPrinter creates a printer for f, detecting whether it is a
// terminal and how wide it is.
func NewStatusPrinter(f *os.File) *StatusPrinter {
	fd := int(f.Fd())
	color := term.IsTerminal(fd)
	width := defaultStatusWidth
	if color {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}
	return newStatusPrinter(f, color, width)
}

func newStatusPrinter(w io.Writer, color bool, width int) *StatusPrinter {
	return &StatusPrinter{
		w:      w,
		styles: newStyles(),
		color:  color,
		width:  width,
	}
}

func (sp *StatusPrinter) paint(st lipgloss.Style, s string) string {
	if !sp.color {
		return s
	}
	return st.Render(s)
}

// channelCell formats one channel: label, period, length and volume.
func channelCell(ch int, s emu.ChannelStatus) string {
	cell := fmt.Sprintf("%s %04X L%-3d V%-3d", channelLabels[ch], s.Period&0xFFFF, s.Length, s.Volume)
	if ch == emu.ChannelTriangle {
		cell = fmt.Sprintf("%s %04X L%-3d C%-3d", channelLabels[ch], s.Period&0xFFFF, s.Length, s.Linear)
	}
	return cell
}

// Format builds the status line for one frame.
func (sp *StatusPrinter) Format(frame int, status [emu.NumChannels]emu.ChannelStatus, muted uint8, dropped uint64) string {
	parts := []string{sp.paint(sp.styles.frame, fmt.Sprintf("%6d", frame))}
	used := 6

	for ch := 0; ch < emu.NumChannels; ch++ {
		cell := channelCell(ch, status[ch])
		st := sp.styles.channel[ch]
		switch {
		case muted&(1<<ch) != 0:
			st = sp.styles.muted
		case !status[ch].Enabled:
			st = sp.styles.disabled
		}
		if used+1+len(cell) > sp.width {
			break
		}
		parts = append(parts, sp.paint(st, cell))
		used += 1 + len(cell)
	}

	if dropped > 0 {
		warn := fmt.Sprintf("dropped %d", dropped)
		if used+1+len(warn) <= sp.width {
			parts = append(parts, sp.paint(sp.styles.warning, warn))
		}
	}
	return strings.Join(parts, " ")
}

// Print writes the status line for one frame.
func (sp *StatusPrinter) Print(frame int, status [emu.NumChannels]emu.ChannelStatus, muted uint8, dropped uint64) {
	line := sp.Format(frame, status, muted, dropped)
	if sp.color {
		// Redraw in place, clearing the rest of the line
		fmt.Fprintf(sp.w, "\r%s\x1b[K", line)
		return
	}
	fmt.Fprintln(sp.w, line)
}

// Finish ends an in-place status line.
func (sp *StatusPrinter) Finish() {
	if sp.color {
		fmt.Fprintln(sp.w)
	}
}
