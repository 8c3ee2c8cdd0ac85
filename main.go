package main

import (
	"context"
	"defectlens/pkg/cli"
	"defectlens/pkg/display"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// level is lowered to Debug by --verbose
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
	ctx = logger.WithContext(ctx)

	disp := display.NewConsole()
	defer disp.Close()

	app := &cli.App{Disp: disp}
	if err := app.Execute(ctx, os.Args[1:]); err != nil {
		disp.Close()
		cli.PrintError(os.Stderr, err)
		return 1
	}
	return 0
}
