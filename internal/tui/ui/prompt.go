package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode selects what a submitted prompt line is used for.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

const historySize = 32

// Prompt is the bordered input line opened with ':' or '/'. Command mode
// keeps a history of submitted lines reachable with the arrow keys.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	history  *History
	onSubmit func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates a prompt styled with theme.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetPlaceholderTextColor(theme.CounterColor)

	p := &Prompt{
		InputField: input,
		history:    NewHistory(historySize),
	}

	input.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if p.mode != PromptCommand {
			return event
		}
		switch event.Key() {
		case tcell.KeyUp:
			if line, ok := p.history.Prev(); ok {
				p.SetText(line)
			}
			return nil
		case tcell.KeyDown:
			line, _ := p.history.Next()
			p.SetText(line)
			return nil
		}
		return event
	})

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			text := p.GetText()
			if text != "" && p.mode == PromptCommand {
				p.history.Add(text)
			}
			// An empty filter clears the current one.
			if p.onSubmit != nil && (text != "" || p.mode == PromptFilter) {
				p.onSubmit(p.mode, text)
			}
			p.SetText("")
		case tcell.KeyEscape:
			p.SetText("")
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})

	return p
}

// SetOnSubmit sets the callback for a submitted line.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback for Escape.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// Activate resets the prompt for mode. initial pre-fills the line, e.g. the
// filter currently applied.
func (p *Prompt) Activate(mode PromptMode, initial string) {
	p.mode = mode
	p.history.Rewind()
	p.SetText(initial)
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
		p.SetPlaceholder("join <id> | typing <id> | read <id> [msg...] | online <user>")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter ")
		p.SetPlaceholder("event name or conversation")
	}
}

// Mode returns the mode the prompt was last activated with.
func (p *Prompt) Mode() PromptMode {
	return p.mode
}

// History is a bounded list of submitted lines with a browsing cursor.
type History struct {
	lines  []string
	max    int
	cursor int
}

// NewHistory keeps at most limit lines.
func NewHistory(limit int) *History {
	return &History{max: limit}
}

// Add appends line unless it repeats the latest entry, and rewinds the cursor.
func (h *History) Add(line string) {
	if n := len(h.lines); n == 0 || h.lines[n-1] != line {
		h.lines = append(h.lines, line)
		if len(h.lines) > h.max {
			h.lines = h.lines[len(h.lines)-h.max:]
		}
	}
	h.Rewind()
}

// Rewind moves the cursor past the newest entry.
func (h *History) Rewind() {
	h.cursor = len(h.lines)
}

// Prev steps to the next older line. ok is false at the oldest entry.
func (h *History) Prev() (string, bool) {
	if h.cursor == 0 {
		return "", false
	}
	h.cursor--
	return h.lines[h.cursor], true
}

// Next steps to the next newer line. Stepping past the newest returns an
// empty line with ok false.
func (h *History) Next() (string, bool) {
	if h.cursor >= len(h.lines)-1 {
		h.cursor = len(h.lines)
		return "", false
	}
	h.cursor++
	return h.lines[h.cursor], true
}
