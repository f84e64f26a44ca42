package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/rtlink/internal/api"
	"github.com/matheus3301/rtlink/internal/tui/keys"
	"github.com/matheus3301/rtlink/internal/tui/model"
	"github.com/matheus3301/rtlink/internal/tui/ui"
	"github.com/matheus3301/rtlink/internal/tui/views"
)

const (
	pageOverview = "overview"
	pageEvents   = "events"
	pageHelp     = "help"

	pollInterval = time.Second
	callTimeout  = 5 * time.Second
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	pages    *ui.Pages
	vm       *model.ViewModel
	registry *keys.Registry
	flash    *ui.FlashModel
	profile  string

	info      *ui.ConnectionInfo
	menu      *ui.Menu
	crumbs    *ui.Crumbs
	prompt    *ui.Prompt
	flashBar  *ui.FlashBar
	statusBar *views.StatusBar
	convs     *views.ConversationList
	peers     *views.PeerList
	events    *views.EventList
	help      *views.HelpView
	body      *tview.Flex

	components map[string]ui.Component
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c api.ConnectionClient, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		theme:     theme,
		pages:     ui.NewPages(),
		vm:        model.NewViewModel(c),
		registry:  keys.NewRegistry(),
		flash:     ui.NewFlashModel(),
		profile:   profileName,
		info:      ui.NewConnectionInfo(theme),
		menu:      ui.NewMenu(theme),
		crumbs:    ui.NewCrumbs(theme),
		prompt:    ui.NewPrompt(theme),
		flashBar:  ui.NewFlashBar(theme),
		statusBar: views.NewStatusBar(theme),
		convs:     views.NewConversationList(theme),
		peers:     views.NewPeerList(theme),
		events:    views.NewEventList(theme),
		help:      views.NewHelpView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.components = map[string]ui.Component{
		pageOverview: a.convs,
		pageEvents:   a.events,
		pageHelp:     a.help,
	}

	a.statusBar.SetProfile(profileName)
	a.setupBindings()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.Rune(keys.Global, 'q', "quit", a.Stop)
	a.registry.Rune(keys.Global, '?', "help", func() { a.toggle(pageHelp) })
	a.registry.Rune(keys.Global, 'e', "events", func() { a.toggle(pageEvents) })
	a.registry.Rune(keys.Global, ':', "command", func() { a.openPrompt(ui.PromptCommand) })
	a.registry.Rune(keys.Global, 'c', "connect", func() { a.exec("connect") }).Hidden = true
	a.registry.Rune(keys.Global, 'R', "reconnect", func() { a.exec("reconnect") }).Hidden = true

	// Page bindings are listed by the page's own hints.
	a.registry.Rune(pageOverview, 't', "typing", func() {
		id := a.convs.Selected()
		if id == "" {
			return
		}
		if a.convs.IsTyping(id) {
			a.exec("stop", id)
		} else {
			a.exec("typing", id)
		}
	}).Hidden = true
	a.registry.Rune(pageOverview, 'r', "read", func() {
		if id := a.convs.Selected(); id != "" {
			a.exec("read", id)
		}
	}).Hidden = true
	a.registry.Rune(pageOverview, 'x', "leave", func() {
		if id := a.convs.Selected(); id != "" {
			a.exec("leave", id)
		}
	}).Hidden = true
	a.registry.Rune(pageEvents, '/', "filter", func() { a.openPrompt(ui.PromptFilter) }).Hidden = true
}

func (a *App) setupLayout() {
	overview := tview.NewFlex().
		AddItem(a.convs, 0, 2, true).
		AddItem(a.peers, 0, 1, false)

	a.pages.AddView(pageOverview, "conversations", overview)
	a.pages.AddView(pageEvents, "events", a.events)
	a.pages.AddView(pageHelp, "help", a.help)
	a.pages.SetOnChange(func(trail []string) {
		a.crumbs.SetTrail(trail)
		a.updateMenu()
	})

	header := tview.NewFlex().
		AddItem(a.info, 0, 2, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(ui.NewLogo(a.theme), 22, 0, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.closePrompt()
		switch mode {
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		case ui.PromptFilter:
			a.setFilter(text)
		}
	})
	a.prompt.SetOnCancel(a.closePrompt)

	a.pages.Reset(pageOverview)
	a.app.SetRoot(a.body, true)
	a.app.SetInputCapture(a.handleKey)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	// Let the prompt handle all keys while it is open.
	if a.prompt.HasFocus() {
		return event
	}

	if event.Key() == tcell.KeyEscape {
		if a.pages.Current() == pageEvents && a.events.Filter() != "" {
			a.setFilter("")
			return nil
		}
		if a.pages.Pop() != "" {
			a.focusCurrent()
			return nil
		}
	}

	if a.registry.HandleEvent(a.pages.Current(), event) {
		return nil
	}
	return event
}

func (a *App) show(page string) {
	a.pages.Push(page)
	a.focusCurrent()
}

func (a *App) toggle(page string) {
	a.pages.Toggle(page)
	a.focusCurrent()
}

func (a *App) setFilter(text string) {
	a.events.SetFilter(text)
	a.events.Update(a.vm.Events())
	a.crumbs.SetFilter(a.events.Filter())
}

func (a *App) focusCurrent() {
	if c, ok := a.components[a.pages.Current()]; ok {
		a.app.SetFocus(c)
	}
}

func (a *App) updateMenu() {
	var hints []ui.MenuHint
	if c, ok := a.components[a.pages.Current()]; ok {
		hints = append(hints, c.Hints()...)
	}
	for _, h := range a.registry.Hints(keys.Global) {
		hints = append(hints, ui.MenuHint{Key: h.Key, Description: h.Label})
	}
	a.menu.Update(hints)
}

func (a *App) openPrompt(mode ui.PromptMode) {
	initial := ""
	if mode == ui.PromptFilter {
		initial = a.events.Filter()
	}
	a.prompt.Activate(mode, initial)
	a.body.AddItem(a.prompt, 3, 0, false)
	a.app.SetFocus(a.prompt)
}

func (a *App) closePrompt() {
	a.body.RemoveItem(a.prompt)
	a.focusCurrent()
}

func (a *App) runCommand(cmd Command) {
	if cmd.Name == "" {
		return
	}
	if cmd.navigation() {
		switch cmd.Name {
		case "q", "quit":
			a.Stop()
		case "h", "help":
			a.show(pageHelp)
		case "events":
			a.show(pageEvents)
		case "o", "overview":
			a.pages.Reset(pageOverview)
			a.focusCurrent()
		}
		return
	}
	a.exec(cmd.Name, cmd.Args...)
}

// exec runs a control command off the UI goroutine and reports the outcome
// in the flash bar.
func (a *App) exec(name string, args ...string) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		msg, err := a.vm.Exec(ctx, name, args)
		switch {
		case errors.Is(err, model.ErrUsage):
			a.flash.Warn(err.Error())
		case err != nil:
			a.flash.Err(fmt.Errorf("%s: %w", name, err))
		default:
			a.flash.Info(msg)
		}
		a.refresh()
	}()
}

// refresh polls the daemon and redraws. It must not run on the UI goroutine.
func (a *App) refresh() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	if err := a.vm.Refresh(ctx); err != nil && a.ctx.Err() == nil && a.vm.DaemonUp() {
		a.flash.Warn(err.Error())
	}

	a.app.QueueUpdateDraw(func() {
		a.render()
	})
}

func (a *App) render() {
	status := a.vm.Status()
	if status != nil {
		data := &ui.ConnectionData{
			Profile:   status.Profile,
			User:      status.UserID,
			State:     status.State,
			Attempts:  status.AttemptCount,
			LastError: status.LastError,
			Uptime:    time.Duration(status.UptimeMs) * time.Millisecond,
		}
		if status.LastConnectedAtMs > 0 {
			data.LastConnected = time.UnixMilli(status.LastConnectedAtMs)
		}
		a.info.Update(data)
		a.statusBar.SetState(status.State, status.AttemptCount, a.vm.DaemonUp())
	} else {
		a.statusBar.SetState("", 0, a.vm.DaemonUp())
	}

	if stats := a.vm.Stats(); stats != nil {
		a.convs.Update(stats.Joined, stats.Typing)
		a.peers.Update(stats.OnlinePeers)
	}
	a.events.Update(a.vm.Events())
	a.flashBar.Update(a.flash.Current())
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		a.refresh()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.refresh()
			case <-a.ctx.Done():
				return
			}
		}
	}()

	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
