package ui

import "github.com/rivo/tview"

// Pages keeps a navigation stack of named views on top of tview.Pages.
// The root view is always at the bottom of the stack.
type Pages struct {
	*tview.Pages
	titles   map[string]string
	stack    []string
	onChange func(trail []string)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{
		Pages:  tview.NewPages(),
		titles: make(map[string]string),
	}
}

// AddView registers a hidden view under name. title is what the breadcrumb
// trail shows for it; an empty title falls back to name.
func (p *Pages) AddView(name, title string, view tview.Primitive) {
	if title == "" {
		title = name
	}
	p.titles[name] = title
	p.AddPage(name, view, true, false)
}

// SetOnChange sets a callback receiving the title trail on every stack change.
func (p *Pages) SetOnChange(fn func(trail []string)) {
	p.onChange = fn
}

// Push shows name on top of the stack. Pushing a view already on the stack
// unwinds back to it instead of stacking it twice.
func (p *Pages) Push(name string) {
	for i, n := range p.stack {
		if n == name {
			p.unwind(i + 1)
			return
		}
	}
	if top := p.Current(); top != "" {
		p.HidePage(top)
	}
	p.stack = append(p.stack, name)
	p.ShowPage(name)
	p.SendToFront(name)
	p.notify()
}

// Toggle pushes name, or pops it when it is already the current view.
func (p *Pages) Toggle(name string) {
	if p.Current() == name && len(p.stack) > 1 {
		p.Pop()
		return
	}
	p.Push(name)
}

// Pop removes the top view unless it is the root. It returns the popped name.
func (p *Pages) Pop() string {
	if len(p.stack) <= 1 {
		return ""
	}
	top := p.Current()
	p.unwind(len(p.stack) - 1)
	return top
}

// Reset makes name the root and only view.
func (p *Pages) Reset(name string) {
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = append(p.stack[:0], name)
	p.ShowPage(name)
	p.SendToFront(name)
	p.notify()
}

// Current returns the name of the visible view.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Depth returns the number of stacked views.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Trail returns the titles of the stacked views, root first.
func (p *Pages) Trail() []string {
	trail := make([]string, len(p.stack))
	for i, n := range p.stack {
		trail[i] = p.titles[n]
		if trail[i] == "" {
			trail[i] = n
		}
	}
	return trail
}

// unwind truncates the stack to depth views and shows the new top.
func (p *Pages) unwind(depth int) {
	for _, n := range p.stack[depth:] {
		p.HidePage(n)
	}
	p.stack = p.stack[:depth]
	top := p.Current()
	p.ShowPage(top)
	p.SendToFront(top)
	p.notify()
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Trail())
	}
}
