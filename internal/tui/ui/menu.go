package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// menuRows matches the header height minus its padding.
const menuRows = 6

// Menu lists key hints in the header, filling columns top to bottom.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates an empty menu.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update redraws the menu with hints.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, strings.Join(MenuLayout(hints, menuRows, colorName(m.theme.MenuKeyColor)), "\n"))
}

// MenuLayout arranges hints into at most rows lines, wrapping into further
// columns padded to the widest cell of the column before them.
func MenuLayout(hints []MenuHint, rows int, keyColor string) []string {
	if rows <= 0 || len(hints) == 0 {
		return nil
	}
	lines := make([]string, min(rows, len(hints)))
	for col := 0; col*rows < len(hints); col++ {
		chunk := hints[col*rows : min((col+1)*rows, len(hints))]
		width := 0
		for _, h := range chunk {
			width = max(width, len(h.Key)+len(h.Description)+3)
		}
		for i, h := range chunk {
			plain := len(h.Key) + len(h.Description) + 3
			lines[i] += fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", keyColor, tview.Escape(h.Key), tview.Escape(h.Description))
			if (col+1)*rows < len(hints) {
				lines[i] += strings.Repeat(" ", width-plain+2)
			}
		}
	}
	return lines
}
