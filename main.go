package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"
)

var (
	exitFunc = os.Exit
	runTUI   = RunTUI
	buildLog = newLogger
)

func main() {
	if err := runMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		exitFunc(1)
	}
}

func runMain(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	opts, help, err := ParseOptions(args)
	if errors.Is(err, errHelp) {
		fmt.Fprintln(stdout, help)
		return nil
	}
	if err != nil {
		fmt.Fprintln(stderr, "flag error:", err)
		return err
	}
	cfg, err := LoadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, "config error:", err)
		return err
	}
	logger, err := buildLog(cfg)
	if err != nil {
		fmt.Fprintln(stderr, "log error:", err)
		return err
	}
	defer func() { _ = logger.Sync() }()

	sessions, closeSessions, err := newSessionStore(cfg)
	if err != nil {
		fmt.Fprintln(stderr, "session store error:", err)
		return err
	}
	defer closeSessions()

	console := newConsole(cfg, sessions, logger)
	logger.Info("console started",
		zap.String("base_url", cfg.BaseURL),
		zap.String("session_store", cfg.SessionStore),
	)

	ctx := context.Background()
	if opts.Print != "" {
		fmt.Fprintln(stdout, printView(ctx, console, opts.Print))
		return nil
	}

	if !isTerminalReader(stdin) || !isTerminalWriter(stdout) {
		if err := Run(ctx, console, stdin, stdout); err != nil {
			fmt.Fprintln(stderr, "run error:", err)
			return err
		}
		return nil
	}

	if err := runTUI(console); err != nil {
		fmt.Fprintln(stderr, "run error:", err)
		return err
	}
	return nil
}

func newConsole(cfg Config, sessions SessionStore, logger *zap.Logger) *Console {
	transport := NewTransport(cfg.BaseURL, cfg.Timeout, &http.Client{})
	client := NewClient(transport, sessions,
		WithLogger(logger),
		WithTemplateID(cfg.TemplateID),
		WithReportTimeout(cfg.ReportTimeout),
		WithChatTimeout(cfg.ChatTimeout),
	)
	return NewConsole(client, cfg.SessionKey, cfg.PageSize)
}

func newSessionStore(cfg Config) (SessionStore, func(), error) {
	if cfg.SessionStore != "sqlite" {
		return NewMemorySessionStore(), func() {}, nil
	}
	store, err := NewSQLiteSessionStore(cfg.SessionDB)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func printView(ctx context.Context, console *Console, view string) string {
	switch view {
	case "subscriptions":
		return console.Subscriptions(ctx)
	case "events":
		return console.Events(ctx)
	case "reports":
		return console.Reports(ctx)
	case "templates":
		return console.Templates(ctx)
	default:
		return console.Dashboard(ctx)
	}
}

func isTerminalReader(stream io.Reader) bool {
	file, ok := stream.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func isTerminalWriter(stream io.Writer) bool {
	file, ok := stream.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
