package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// ConnectionData holds what the header shows about the daemon's connection.
type ConnectionData struct {
	Profile       string
	User          string
	State         string
	Attempts      int
	LastError     string
	LastConnected time.Time
	Uptime        time.Duration
}

// ConnectionInfo displays connection metadata in the header.
type ConnectionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewConnectionInfo creates a new connection info panel.
func NewConnectionInfo(theme *Theme) *ConnectionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &ConnectionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the connection info.
func (ci *ConnectionInfo) Update(data *ConnectionData) {
	ci.Clear()
	if data == nil {
		return
	}
	_, _ = fmt.Fprint(ci, ci.format(data))
}

func (ci *ConnectionInfo) format(data *ConnectionData) string {
	fg := colorName(ci.theme.FgColor)
	counter := colorName(ci.theme.CounterColor)
	state := colorName(ci.theme.StateColor(data.State))

	user := data.User
	if user == "" {
		user = "-"
	}
	last := "never"
	if !data.LastConnected.IsZero() {
		last = data.LastConnected.Format("15:04:05")
	}
	retry := fmt.Sprintf("%d", data.Attempts)
	if data.LastError != "" {
		retry += " (" + tview.Escape(data.LastError) + ")"
	}

	return fmt.Sprintf(
		"[%s::b]Profile:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]State:[-:-:-]   [%s::b]%s[-:-:-]\n"+
			"[%s::b]Retries:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Last up:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fg, counter, data.Profile,
		fg, counter, tview.Escape(user),
		fg, state, data.State,
		fg, counter, retry,
		fg, counter, last,
		fg, counter, FormatDuration(data.Uptime),
	)
}

// FormatDuration renders d as "1h5m", "5m" or "42s".
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
