package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/matheus3301/rtlink/internal/api"
)

// EventsPage is how many journal entries the monitor keeps.
const EventsPage = 200

// ErrUsage is returned by Exec for a command with missing arguments.
var ErrUsage = errors.New("usage")

// ViewModel caches daemon state between polls.
type ViewModel struct {
	mu sync.RWMutex

	client   api.ConnectionClient
	status   *api.StatusResponse
	stats    *api.StatsResponse
	events   []api.EventEntry
	daemonUp bool
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c api.ConnectionClient) *ViewModel {
	return &ViewModel{client: c}
}

// Refresh polls status, stats and the journal. A failed status call marks
// the daemon unreachable; the other calls keep their previous values on error.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	status, err := vm.client.GetStatus(ctx, &api.Empty{})
	if err != nil {
		vm.mu.Lock()
		vm.daemonUp = false
		vm.mu.Unlock()
		return err
	}
	stats, statsErr := vm.client.GetStats(ctx, &api.Empty{})
	events, eventsErr := vm.client.ListEvents(ctx, &api.ListEventsRequest{Limit: EventsPage})

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.daemonUp = true
	vm.status = status
	if statsErr == nil {
		vm.stats = stats
	}
	if eventsErr == nil {
		vm.events = events.Events
	}
	return errors.Join(statsErr, eventsErr)
}

// DaemonUp reports whether the last poll reached the daemon.
func (vm *ViewModel) DaemonUp() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.daemonUp
}

// Status returns the last polled status, or nil.
func (vm *ViewModel) Status() *api.StatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Stats returns the last polled stats, or nil.
func (vm *ViewModel) Stats() *api.StatsResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.stats
}

// Events returns the last polled journal page.
func (vm *ViewModel) Events() []api.EventEntry {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.events
}

// Exec runs a control command and returns a message for the flash bar.
func (vm *ViewModel) Exec(ctx context.Context, name string, args []string) (string, error) {
	need := func(form string) error {
		if len(args) == 0 {
			return fmt.Errorf("%w: %s", ErrUsage, form)
		}
		return nil
	}
	conv := func() *api.ConversationRequest {
		return &api.ConversationRequest{ConversationID: args[0]}
	}

	var err error
	switch name {
	case "connect":
		_, err = vm.client.Connect(ctx, &api.Empty{})
		return "connecting", err
	case "disconnect":
		_, err = vm.client.Disconnect(ctx, &api.Empty{})
		return "disconnected", err
	case "reconnect":
		_, err = vm.client.Reconnect(ctx, &api.Empty{})
		return "reconnecting", err
	case "join":
		if err = need("join <conversation>"); err != nil {
			return "", err
		}
		_, err = vm.client.Join(ctx, conv())
		return "joined " + args[0], err
	case "leave":
		if err = need("leave <conversation>"); err != nil {
			return "", err
		}
		_, err = vm.client.Leave(ctx, conv())
		return "left " + args[0], err
	case "typing":
		if err = need("typing <conversation>"); err != nil {
			return "", err
		}
		_, err = vm.client.StartTyping(ctx, conv())
		return "typing in " + args[0], err
	case "stop":
		if err = need("stop <conversation>"); err != nil {
			return "", err
		}
		_, err = vm.client.StopTyping(ctx, conv())
		return "stopped typing in " + args[0], err
	case "read":
		if err = need("read <conversation> [message...]"); err != nil {
			return "", err
		}
		_, err = vm.client.MarkRead(ctx, &api.MarkReadRequest{ConversationID: args[0], MessageIDs: args[1:]})
		if len(args) == 1 {
			return "marked " + args[0] + " read", err
		}
		return fmt.Sprintf("marked %d message(s) read", len(args)-1), err
	case "online":
		if err = need("online <user>"); err != nil {
			return "", err
		}
		resp, err := vm.client.IsOnline(ctx, &api.IsOnlineRequest{UserID: args[0]})
		if err != nil {
			return "", err
		}
		if resp.Online {
			return args[0] + " is online", nil
		}
		return args[0] + " is offline", nil
	case "login":
		if err = need("login <user>"); err != nil {
			return "", err
		}
		_, err = vm.client.Login(ctx, &api.LoginRequest{UserID: args[0]})
		return "logged in as " + args[0], err
	case "logout":
		_, err = vm.client.Logout(ctx, &api.Empty{})
		return "logged out", err
	default:
		return "", fmt.Errorf("unknown command %q", strings.TrimSpace(name))
	}
}
