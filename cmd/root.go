package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bessim/app"
	"github.com/kilianp07/bessim/config"
	"github.com/kilianp07/bessim/core/model"
	"github.com/kilianp07/bessim/infra/logger"
)

const defaultConfigPath = "config.yaml"

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "bessim",
		Short:         "Battery dispatch simulation and arbitrage KPIs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "configuration file")
	load := func() (*config.Config, error) {
		return loadConfig(cfgPath, root.PersistentFlags().Changed("config"))
	}
	root.AddCommand(
		newBoundsCmd(load),
		newSimulateCmd(load),
		newRevenueCmd(load),
		newOptimalCmd(load),
		newSizingCmd(load),
		newRunsCmd(load),
	)
	return root
}

// Execute runs the CLI and prints the failure, if any, to stderr.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
	}
	return err
}

// describe formats a command error. Errors of the simulation input
// taxonomy are reported as invalid parameters.
func describe(err error) string {
	if model.IsInputError(err) {
		return "invalid simulation parameters: " + err.Error()
	}
	return "error: " + err.Error()
}

type configLoader func() (*config.Config, error)

// loadConfig reads path. A missing default file falls back to defaults and
// environment overrides; a missing explicit file is an error.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// withService builds the service for one command and closes it afterwards.
func withService(cmd *cobra.Command, load configLoader, fn func(ctx context.Context, svc *app.Service) error) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := load()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return fn(ctx, svc)
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
