package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comigor/chat-go/internal/app"
	"github.com/comigor/chat-go/internal/config"
	"github.com/comigor/chat-go/internal/logger"
	"github.com/comigor/chat-go/internal/tui"
)

var version = "dev"

// skipApp marks commands that must run without an open session.
const skipApp = "skip-app"

type cli struct {
	configPath string
	verbose    bool

	cfg       *config.Config
	app       *app.App
	logCloser io.Closer
}

// newRootCmd builds the command tree. The returned func closes whatever the command opened
// and must be called once Execute returns.
func newRootCmd() (*cobra.Command, func() error) {
	c := &cli{}

	root := &cobra.Command{
		Use:   "chat",
		Short: "Terminal client for a retrieval-augmented assistant",
		Long: `chat keeps one persistent conversation with an assistant service.

Run without arguments to start the interactive interface. The transcript,
session id and preferences survive restarts.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(cmd.Context(), c.app)
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (default: ./config.yaml or $CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		c.sendCmd(),
		c.historyCmd(),
		c.clearCmd(),
		c.resetCmd(),
		c.prefsCmd(),
		c.modelsCmd(),
		c.statusCmd(),
		c.uploadCmd(),
		c.mcpCmd(),
	)
	return root, c.teardown
}

// setup loads configuration, routes logs and opens the session. Logs never go to stdout:
// the interactive UI owns the screen and the MCP server owns the stream.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if c.configPath != "" {
		if err := os.Setenv("CONFIG_PATH", c.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	c.cfg = cfg

	level := cfg.Log.Level
	if c.verbose {
		level = "debug"
	}
	logger.SetLevel(level)

	switch {
	case cfg.Log.File != "":
		c.logCloser, err = logger.OpenFile(cfg.Log.File)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
	case cmd == cmd.Root():
		c.logCloser, _ = logger.OpenFile("")
	default:
		logger.SetOutput(os.Stderr)
	}

	if cmd.Annotations[skipApp] != "" {
		return nil
	}
	c.app, err = app.New(cfg)
	if err != nil {
		return err
	}
	return nil
}

func (c *cli) teardown() error {
	var err error
	if c.app != nil {
		err = c.app.Close()
		c.app = nil
	}
	if c.logCloser != nil {
		c.logCloser.Close()
		c.logCloser = nil
	}
	return err
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, teardown := newRootCmd()
	err := root.ExecuteContext(ctx)
	if cerr := teardown(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
