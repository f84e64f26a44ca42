package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumbs is the one-line navigation trail under the main view. When the
// events view is filtered the filter is shown as a trailing chip.
type Crumbs struct {
	*tview.TextView
	theme  *Theme
	trail  []string
	filter string
}

// NewCrumbs creates an empty trail.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// SetTrail replaces the trail and redraws.
func (c *Crumbs) SetTrail(trail []string) {
	c.trail = trail
	c.render()
}

// SetFilter sets the filter chip; an empty filter hides it.
func (c *Crumbs) SetFilter(filter string) {
	c.filter = filter
	c.render()
}

func (c *Crumbs) render() {
	c.Clear()
	if len(c.trail) == 0 {
		return
	}

	parts := make([]string, 0, len(c.trail)+1)
	last := len(c.trail) - 1
	for i, title := range c.trail {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == last {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]",
			colorName(fg), colorName(bg), attr, tview.Escape(title)))
	}
	if c.filter != "" {
		parts = append(parts, fmt.Sprintf("[%s::i] /%s [-:-:-]",
			colorName(c.theme.MenuKeyColor), tview.Escape(c.filter)))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " > "))
}
