package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/matheus3301/rtlink/internal/api"
	"github.com/matheus3301/rtlink/internal/profile"
	"github.com/matheus3301/rtlink/internal/tui"
	"github.com/matheus3301/rtlink/internal/tui/client"
)

const readyTimeout = 10 * time.Second

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	noStart := flag.Bool("no-start", false, "do not start the daemon when it is not running")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		exitf("error: %v", err)
	}
	socketPath := profile.SocketPath(profileName)

	if err := probe(socketPath); err != nil {
		if *noStart {
			exitf("daemon for profile %q is not running: %v", profileName, err)
		}
		fmt.Fprintf(os.Stderr, "starting daemon for profile %q...\n", profileName)
		if err := spawnDaemon(profileName); err != nil {
			exitf("start daemon: %v", err)
		}
		if err := awaitDaemon(socketPath); err != nil {
			exitf("daemon did not become ready (%v); see %s", err, profile.LogPath(profileName))
		}
	}

	c, err := client.New(socketPath)
	if err != nil {
		exitf("connect to daemon: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := tui.NewApp(c.Connection, profileName).Run(); err != nil {
		exitf("error: %v", err)
	}
}

// probe makes one real control call; a socket that merely accepts is not
// enough.
func probe(socketPath string) error {
	c, err := client.New(socketPath)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Connection.GetStatus(ctx, &api.Empty{})
	return err
}

// spawnDaemon starts rtlinkd detached, preferring the binary next to ours.
// Its logs go to the profile log file only, since this terminal is about to
// become the monitor.
func spawnDaemon(profileName string) error {
	bin := "rtlinkd"
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "rtlinkd")
		if _, err := os.Stat(sibling); err == nil {
			bin = sibling
		}
	}
	cmd := exec.Command(bin, "--profile", profileName, "--console=false")
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func awaitDaemon(socketPath string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = readyTimeout
	return backoff.Retry(func() error { return probe(socketPath) }, b)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
