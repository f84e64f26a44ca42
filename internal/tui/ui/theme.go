package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme is the monitor palette.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableHeaderFg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color

	// Connection state colors.
	StateUpColor      tcell.Color
	StatePendingColor tcell.Color
	StateDownColor    tcell.Color
}

// DefaultTheme returns the dark palette used by rtlinktui.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorLightSlateGray,
		BorderColor:       tcell.ColorSteelBlue,
		BorderFocusColor:  tcell.ColorLightSkyBlue,
		TableHeaderFg:     tcell.ColorWhite,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorMediumTurquoise,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorMediumSpringGreen,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorSteelBlue,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		TitleColor:        tcell.ColorMediumTurquoise,
		CounterColor:      tcell.ColorPapayaWhip,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorMediumSpringGreen,
		StateUpColor:      tcell.ColorLimeGreen,
		StatePendingColor: tcell.ColorGold,
		StateDownColor:    tcell.ColorOrangeRed,
	}
}

// StateColor picks the color used to render a connection state name.
func (t *Theme) StateColor(state string) tcell.Color {
	switch state {
	case "CONNECTED":
		return t.StateUpColor
	case "CONNECTING", "RECONNECT_PENDING":
		return t.StatePendingColor
	default:
		return t.StateDownColor
	}
}

// colorName renders c as a tview color tag value.
func colorName(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
