package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// FlashLevel is the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

var flashTTL = map[FlashLevel]time.Duration{
	FlashInfo: 5 * time.Second,
	FlashWarn: 8 * time.Second,
	FlashErr:  10 * time.Second,
}

// FlashMessage is a transient notification. Count is how many times the
// same message was raised while it was still showing.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Count   int
	Expires time.Time
}

// FlashModel holds the latest notification. It is written from command and
// poll goroutines and read on the UI goroutine.
type FlashModel struct {
	mu      sync.Mutex
	current FlashMessage
	now     func() time.Time
}

// NewFlashModel creates an empty model.
func NewFlashModel() *FlashModel {
	return &FlashModel{now: time.Now}
}

func (f *FlashModel) Info(msg string) { f.raise(msg, FlashInfo) }
func (f *FlashModel) Warn(msg string) { f.raise(msg, FlashWarn) }
func (f *FlashModel) Err(err error)   { f.raise(err.Error(), FlashErr) }

// raise replaces the current message. Repeating the live message bumps its
// count and expiry instead.
func (f *FlashModel) raise(msg string, level FlashLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	expires := now.Add(flashTTL[level])
	if f.live(now) && f.current.Text == msg && f.current.Level == level {
		f.current.Count++
		f.current.Expires = expires
		return
	}
	f.current = FlashMessage{Text: msg, Level: level, Count: 1, Expires: expires}
}

func (f *FlashModel) live(now time.Time) bool {
	return f.current.Text != "" && !now.After(f.current.Expires)
}

// Current returns a copy of the live message, or nil once it has expired.
func (f *FlashModel) Current() *FlashMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.live(f.now()) {
		return nil
	}
	m := f.current
	return &m
}

// FlashBar shows the current flash message on one line.
type FlashBar struct {
	*tview.TextView
	colors map[FlashLevel]string
}

// NewFlashBar creates an empty bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{
		TextView: tv,
		colors: map[FlashLevel]string{
			FlashInfo: colorName(theme.FlashInfoColor),
			FlashWarn: colorName(theme.FlashWarnColor),
			FlashErr:  colorName(theme.FlashErrColor),
		},
	}
}

// Update renders msg; nil clears the bar.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}
	text := tview.Escape(msg.Text)
	if msg.Count > 1 {
		text += fmt.Sprintf(" (x%d)", msg.Count)
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", fb.colors[msg.Level], text)
}
