package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/rtlink/internal/tui/ui"
)

// StatusBar is the one-line connectivity banner at the bottom of the screen.
type StatusBar struct {
	*tview.TextView
	theme    *ui.Theme
	profile  string
	state    string
	attempts int
	daemonUp bool
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetState updates the connection state. daemonUp is false when the daemon
// itself could not be reached.
func (sb *StatusBar) SetState(state string, attempts int, daemonUp bool) {
	sb.state = state
	sb.attempts = attempts
	sb.daemonUp = daemonUp
	sb.render()
}

// Banner returns the text shown for the current state, without markup.
func (sb *StatusBar) Banner() string {
	switch {
	case !sb.daemonUp:
		return "daemon unreachable"
	case sb.state == "CONNECTED":
		return "online"
	case sb.state == "CONNECTING":
		return "connecting…"
	case sb.state == "RECONNECT_PENDING":
		return fmt.Sprintf("offline, retry %d scheduled", sb.attempts)
	default:
		return "offline"
	}
}

func (sb *StatusBar) render() {
	sb.Clear()

	color := sb.theme.StateColor(sb.state)
	if !sb.daemonUp {
		color = sb.theme.StateDownColor
	}
	clock := time.Now().Format("15:04")

	_, _ = fmt.Fprintf(sb, " [::b]%s[-:-:-] | [%s::b]%s[-:-:-] | %s",
		sb.profile, colorHex(color), sb.Banner(), clock)
}

func colorHex(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
