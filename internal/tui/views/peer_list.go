package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/rtlink/internal/tui/ui"
)

// PeerList shows peers the daemon currently believes are online.
type PeerList struct {
	*tview.TextView
	theme *ui.Theme
}

// NewPeerList creates a new online peers panel.
func NewPeerList(theme *ui.Theme) *PeerList {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTitleColor(theme.TitleColor)
	tv.SetTitle(" Online (0) ")

	return &PeerList{TextView: tv, theme: theme}
}

// Update renders the online peers.
func (pl *PeerList) Update(peers []string) {
	pl.Clear()
	pl.SetTitle(fmt.Sprintf(" Online (%d) ", len(peers)))
	up := colorHex(pl.theme.StateUpColor)
	for _, p := range peers {
		_, _ = fmt.Fprintf(pl, " [%s]●[-] %s\n", up, sanitizeForTerminal(p))
	}
}
