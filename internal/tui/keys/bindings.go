// Package keys maps key events to monitor actions.
package keys

import (
	"github.com/gdamore/tcell/v2"
)

// Global is the scope of bindings active on every page.
const Global = ""

// Action is one key binding. A zero Key with a Rune binds that character.
type Action struct {
	Key     tcell.Key
	Rune    rune
	Label   string
	Handler func()
	// Hidden actions still fire but are left out of Hints.
	Hidden bool
}

// Matches reports whether ev triggers the action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// KeyName is how the key is shown in the menu.
func (a *Action) KeyName() string {
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	if name, ok := tcell.KeyNames[a.Key]; ok {
		return name
	}
	return "?"
}

// Hint is a visible binding as shown in the menu.
type Hint struct {
	Key   string
	Label string
}

// Registry holds bindings per page scope in registration order.
type Registry struct {
	scopes map[string][]*Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string][]*Action)}
}

// Bind adds a to scope. Use Global for bindings active on every page.
func (r *Registry) Bind(scope string, a *Action) {
	r.scopes[scope] = append(r.scopes[scope], a)
}

// Rune is shorthand for binding a character.
func (r *Registry) Rune(scope string, ch rune, label string, fn func()) *Action {
	a := &Action{Key: tcell.KeyRune, Rune: ch, Label: label, Handler: fn}
	r.Bind(scope, a)
	return a
}

// Hints lists the visible bindings of page followed by the global ones.
func (r *Registry) Hints(page string) []Hint {
	var out []Hint
	scopes := []string{page}
	if page != Global {
		scopes = append(scopes, Global)
	}
	for _, s := range scopes {
		for _, a := range r.scopes[s] {
			if !a.Hidden {
				out = append(out, Hint{Key: a.KeyName(), Label: a.Label})
			}
		}
	}
	return out
}

// HandleEvent runs the first binding of page, then of the global scope, that
// matches ev. It reports whether one ran.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, s := range []string{page, Global} {
		for _, a := range r.scopes[s] {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
