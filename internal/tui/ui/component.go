package ui

import "github.com/rivo/tview"

// MenuHint is one key shortcut shown in the header menu.
type MenuHint struct {
	Key         string
	Description string
}

// Component is a page of the monitor. The app focuses it when its page is
// on top and merges its hints into the menu.
type Component interface {
	tview.Primitive
	Name() string
	Hints() []MenuHint
}
