package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/rtlink/internal/tui/ui"
)

// HelpView displays key binding and command reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

type helpSection struct {
	title string
	rows  [][2]string
}

var helpSections = []helpSection{
	{"Global Keys", [][2]string{
		{":", "Command mode"},
		{"e", "Journal events"},
		{"c", "Connect"},
		{"R", "Reconnect"},
		{"?", "Help"},
		{"Esc", "Cancel / Go back"},
		{"q", "Quit"},
	}},
	{"Conversations", [][2]string{
		{"t", "Toggle typing indicator"},
		{"r", "Mark all read"},
		{"x", "Leave conversation"},
	}},
	{"Events", [][2]string{
		{"/", "Filter by name, category or conversation"},
	}},
	{"Commands (: mode)", [][2]string{
		{":connect / :disconnect / :reconnect", "Drive the connection"},
		{":join <id> / :leave <id>", "Change membership"},
		{":typing <id> / :stop <id>", "Typing indicator"},
		{":read <id> [msg...]", "Mark messages (or all) read"},
		{":online <user>", "Check cached presence"},
		{":login <user> / :logout", "Change principal"},
		{":events / :help / :quit", "Navigate"},
	}},
}

func (hv *HelpView) render() {
	kc := colorHex(hv.theme.MenuKeyColor)

	var b strings.Builder
	for _, sec := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", sec.title)
		for _, row := range sec.rows {
			fmt.Fprintf(&b, "  [%s]%-38s[-:-:-] %s\n", kc, tview.Escape(row[0]), row[1])
		}
	}
	_, _ = fmt.Fprint(hv, b.String())
}
