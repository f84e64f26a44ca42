package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/matheus3301/rtlink/internal/api"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// printer renders responses either as indented JSON or as colored text.
type printer struct {
	json bool
}

func (p printer) check(err error) {
	if err != nil {
		fail(err)
	}
}

func (p printer) status(resp *api.StatusResponse, err error) {
	p.check(err)
	if p.json {
		outputJSON(resp)
		return
	}
	user := resp.UserID
	if user == "" {
		user = gray("(logged out)")
	}
	fmt.Printf("Profile:  %s\n", resp.Profile)
	fmt.Printf("User:     %s\n", user)
	fmt.Printf("State:    %s\n", stateLabel(resp.State))
	if resp.AttemptCount > 0 {
		fmt.Printf("Attempts: %d\n", resp.AttemptCount)
	}
	if resp.LastError != "" {
		fmt.Printf("Error:    %s\n", red(resp.LastError))
	}
	fmt.Printf("Last up:  %s\n", sinceMs(resp.LastConnectedAtMs))
	fmt.Printf("Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
}

func (p printer) stats(resp *api.StatsResponse, err error) {
	p.check(err)
	if p.json {
		outputJSON(resp)
		return
	}
	fmt.Printf("State:     %s (%s)\n", stateLabel(resp.State), resp.Transport)
	fmt.Printf("Attempts:  %d\n", resp.AttemptCount)
	if resp.LastError != "" {
		fmt.Printf("Error:     %s\n", red(resp.LastError))
	}
	fmt.Printf("Last up:   %s\n", sinceMs(resp.LastConnectedAtMs))
	fmt.Printf("Joined:    %s\n", list(resp.Joined))
	fmt.Printf("Typing:    %s\n", list(resp.Typing))
	fmt.Printf("Online:    %s\n", list(resp.OnlinePeers))
	if len(resp.JournalCounts) > 0 {
		parts := make([]string, 0, len(resp.JournalCounts))
		for cat, n := range resp.JournalCounts {
			parts = append(parts, fmt.Sprintf("%s=%d", cat, n))
		}
		slices.Sort(parts)
		fmt.Printf("Journal:   %s\n", strings.Join(parts, " "))
	}
}

func (p printer) ack(resp *api.Ack, err error) {
	p.check(err)
	if p.json {
		outputJSON(resp)
		return
	}
	msg := green("ok")
	if resp.Message != "" {
		msg += " " + resp.Message
	}
	fmt.Println(msg)
}

func (p printer) online(resp *api.IsOnlineResponse, err error) {
	p.check(err)
	if p.json {
		outputJSON(resp)
		return
	}
	if resp.Online {
		fmt.Printf("%s is %s\n", resp.UserID, green("online"))
	} else {
		fmt.Printf("%s is %s\n", resp.UserID, gray("offline"))
	}
}

func (p printer) events(resp *api.ListEventsResponse, err error) {
	p.check(err)
	if p.json {
		outputJSON(resp)
		return
	}
	if len(resp.Events) == 0 {
		fmt.Println("No events recorded.")
		return
	}
	for _, e := range resp.Events {
		ts := time.UnixMilli(e.CreatedAtMs).Format("15:04:05.000")
		fmt.Printf("%s %-8s %-22s %s %s\n", gray(ts), e.Category, bold(e.Name), e.ConversationID, gray(e.Payload))
	}
}

func stateLabel(state string) string {
	switch state {
	case "CONNECTED":
		return green(state)
	case "CONNECTING", "RECONNECT_PENDING":
		return yellow(state)
	default:
		return red(state)
	}
}

func sinceMs(ms int64) string {
	if ms == 0 {
		return gray("never")
	}
	at := time.UnixMilli(ms)
	return fmt.Sprintf("%s (%s ago)", at.Format(time.RFC3339), time.Since(at).Round(time.Second))
}

func list(items []string) string {
	if len(items) == 0 {
		return gray("-")
	}
	return strings.Join(items, ", ")
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
