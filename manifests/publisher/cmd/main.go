// Command manifest-pr publishes package manifests to a
// shared manifest repository as pull requests. It loads
// settings, builds a GitHub accessor and drives the
// publisher from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/byte4ever/manifest_pr/manifests/config"
	"github.com/byte4ever/manifest_pr/manifests/host"
	"github.com/byte4ever/manifest_pr/manifests/host/github"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	cmd := newRootCmd(&app{
		stdout:      stdout,
		stderr:      stderr,
		loader:      config.Loader{},
		newAccessor: newGitHubAccessor,
	})
	cmd.SetArgs(args)

	return cmd.ExecuteContext(ctx)
}

// app carries the dependencies shared by every command.
type app struct {
	stdout      io.Writer
	stderr      io.Writer
	loader      config.Loader
	newAccessor func(github.Config) (host.Accessor, error)

	configPath string
	logLevel   string
	output     string
	settings   *config.Settings
}

func newGitHubAccessor(cfg github.Config) (host.Accessor, error) {
	return github.NewAccessor(cfg)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "manifest-pr",
		Short:         "Publish package manifests as pull requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(
		&a.configPath, "config", "",
		"Settings file (YAML)",
	)
	flags.StringVar(
		&a.logLevel, "log-level", "info",
		"Log level: debug, info, warn or error",
	)
	flags.StringVar(
		&a.output, "output", outputText,
		"Output format: text or json",
	)

	cmd.AddCommand(
		newSubmitCmd(a),
		newLocateCmd(a),
		newWithdrawCmd(a),
		newMergeCmd(a),
	)

	return cmd
}

// setup installs the logger and loads settings.
func (a *app) setup() error {
	const errCtx = "setting up"

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("%s: log level: %w", errCtx, err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(
		a.stderr, &slog.HandlerOptions{Level: level},
	)))

	if a.output != outputText && a.output != outputJSON {
		return fmt.Errorf(
			"%s: unknown output format %q", errCtx, a.output,
		)
	}

	s, err := a.loader.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	a.settings = s

	return nil
}

// accessor builds the accessor described by the settings.
func (a *app) accessor() (host.Accessor, error) {
	cfg, err := a.settings.GitHubConfig(a.loader.ReadFile)
	if err != nil {
		return nil, err
	}

	return a.newAccessor(cfg)
}
