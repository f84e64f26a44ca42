package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/matheus3301/rtlink/internal/api"
	"github.com/matheus3301/rtlink/internal/config"
	"github.com/matheus3301/rtlink/internal/profile"
	"github.com/matheus3301/rtlink/internal/tui/client"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// init edits profile.toml and does not need a running daemon.
	if args[0] == "init" {
		cmdInit(profileName, args[1:])
		return
	}

	socketPath := profile.SocketPath(profileName)
	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for profile %q: %v\n", profileName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := printer{json: *jsonFlag}
	conn := c.Connection

	switch args[0] {
	case "status":
		resp, err := conn.GetStatus(ctx, &api.Empty{})
		out.status(resp, err)
	case "stats":
		resp, err := conn.GetStats(ctx, &api.Empty{})
		out.stats(resp, err)
	case "connect":
		out.ack(conn.Connect(ctx, &api.Empty{}))
	case "disconnect":
		out.ack(conn.Disconnect(ctx, &api.Empty{}))
	case "reconnect":
		out.ack(conn.Reconnect(ctx, &api.Empty{}))
	case "join":
		out.ack(conn.Join(ctx, &api.ConversationRequest{ConversationID: arg(args, 1, "join <conversation>")}))
	case "leave":
		out.ack(conn.Leave(ctx, &api.ConversationRequest{ConversationID: arg(args, 1, "leave <conversation>")}))
	case "typing":
		cmdTyping(ctx, conn, out, args)
	case "read":
		id := arg(args, 1, "read <conversation> [message...]")
		out.ack(conn.MarkRead(ctx, &api.MarkReadRequest{ConversationID: id, MessageIDs: args[2:]}))
	case "online":
		resp, err := conn.IsOnline(ctx, &api.IsOnlineRequest{UserID: arg(args, 1, "online <user>")})
		out.online(resp, err)
	case "login":
		out.ack(conn.Login(ctx, &api.LoginRequest{UserID: arg(args, 1, "login <user>")}))
	case "logout":
		out.ack(conn.Logout(ctx, &api.Empty{}))
	case "events":
		cmdEvents(ctx, conn, out, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: rtlinkctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  init <url> [user] [token]      Write profile.toml")
	fmt.Fprintln(os.Stderr, "  status                         Show connection state")
	fmt.Fprintln(os.Stderr, "  stats                          Show diagnostic snapshot")
	fmt.Fprintln(os.Stderr, "  connect                        Start connecting")
	fmt.Fprintln(os.Stderr, "  disconnect                     Disconnect and stop retrying")
	fmt.Fprintln(os.Stderr, "  reconnect                      Reset and reconnect")
	fmt.Fprintln(os.Stderr, "  join <conversation>            Join a conversation")
	fmt.Fprintln(os.Stderr, "  leave <conversation>           Leave a conversation")
	fmt.Fprintln(os.Stderr, "  typing <start|stop> <conv>     Send a typing indicator")
	fmt.Fprintln(os.Stderr, "  read <conversation> [msg...]   Mark messages (or all) read")
	fmt.Fprintln(os.Stderr, "  online <user>                  Check cached presence")
	fmt.Fprintln(os.Stderr, "  login <user>                   Set the principal")
	fmt.Fprintln(os.Stderr, "  logout                         Clear the principal")
	fmt.Fprintln(os.Stderr, "  events [category] [limit]      List journaled events")
}

func cmdInit(profileName string, args []string) {
	if len(args) == 0 {
		usage("init <url> [user] [token]")
	}
	if err := profile.EnsureDir(profileName); err != nil {
		fail(err)
	}
	p, err := profile.Load(profileName)
	if errors.Is(err, fs.ErrNotExist) {
		p, err = config.DefaultProfile(), nil
	}
	if err != nil {
		fail(err)
	}
	p.ServerURL = args[0]
	if len(args) > 1 {
		p.UserID = args[1]
	}
	if len(args) > 2 {
		p.Token = args[2]
	}
	if err := p.Validate(); err != nil {
		fail(err)
	}
	if err := profile.Save(profileName, p); err != nil {
		fail(err)
	}
	fmt.Printf("Wrote %s\n", profile.ConfigFile(profileName))
}

func cmdTyping(ctx context.Context, conn api.ConnectionClient, out printer, args []string) {
	if len(args) < 3 {
		usage("typing <start|stop> <conversation>")
	}
	req := &api.ConversationRequest{ConversationID: args[2]}
	switch args[1] {
	case "start":
		out.ack(conn.StartTyping(ctx, req))
	case "stop":
		out.ack(conn.StopTyping(ctx, req))
	default:
		fmt.Fprintf(os.Stderr, "unknown typing subcommand: %s\n", args[1])
		os.Exit(1)
	}
}

func cmdEvents(ctx context.Context, conn api.ConnectionClient, out printer, args []string) {
	req := &api.ListEventsRequest{Limit: 20}
	if len(args) > 0 && args[0] != "all" {
		req.Category = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			fail(fmt.Errorf("invalid limit %q", args[1]))
		}
		req.Limit = n
	}
	resp, err := conn.ListEvents(ctx, req)
	out.events(resp, err)
}

func arg(args []string, i int, form string) string {
	if len(args) <= i {
		usage(form)
	}
	return args[i]
}

func usage(form string) {
	fmt.Fprintf(os.Stderr, "usage: rtlinkctl %s\n", form)
	os.Exit(1)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
