package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/matheus3301/rtlink/internal/daemon"
	"github.com/matheus3301/rtlink/internal/logging"
	"github.com/matheus3301/rtlink/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	levelFlag := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	consoleFlag := flag.Bool("console", logging.StderrIsTerminal(), "mirror logs to stderr")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			ProfileName: profileName,
			LogLevel:    logging.ParseLevel(*levelFlag),
			Console:     *consoleFlag,
		}),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)

	app.Run()
}
