package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"paricus-portal/internal/cache"
	"paricus-portal/internal/cdrstore"
	"paricus-portal/internal/config"
	"paricus-portal/internal/recordings"
	"paricus-portal/pkg/logger"

	"github.com/spf13/cobra"
)

var Version = "dev"

// app holds what every subcommand needs. It is built once in the root's PersistentPreRunE.
type app struct {
	cfg     config.Config
	handle  *cdrstore.Handle
	gateway *recordings.Gateway
	out     io.Writer
	format  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "cdrctl",
		Short:         "Query call recordings from the CDR store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.format != formatJSON && a.format != formatYAML {
				return fmt.Errorf("--output must be json or yaml, got %q", a.format)
			}
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.handle == nil {
				return nil
			}
			return a.handle.Close(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.format, "output", "o", formatJSON, "output format (json, yaml)")

	root.AddCommand(searchCmd(a))
	root.AddCommand(getCmd(a))
	root.AddCommand(agentsCmd(a))
	root.AddCommand(callTypesCmd(a))
	root.AddCommand(tagsCmd(a))
	root.AddCommand(summaryCmd(a))
	root.AddCommand(pingCmd(a))
	root.AddCommand(tokenCmd(a))
	return root
}

// init loads config and builds the gateway. Logs go to stderr; stdout carries results only.
func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	slog.SetDefault(logger.NewWriter(cfg.App.Env, os.Stderr))

	layer := cache.NewMemoryLayer(cfg.Cache)
	a.handle = cdrstore.NewHandle(cfg.CDR, cdrstore.WithCloseHook(layer.FlushAll))
	a.gateway = recordings.NewGateway(a.handle, layer)
	return nil
}
