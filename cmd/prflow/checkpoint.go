package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/prflow/internal/checkpoint"
	"github.com/jonathan/prflow/internal/config"
	"github.com/jonathan/prflow/internal/observability"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Snapshot and restore the companies and press releases tables",
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Write both tables to a named checkpoint, replacing any existing one",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointCreate,
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved checkpoints",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointList,
}

var checkpointRestoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Replace both tables with a checkpoint's contents",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointRestore,
}

var checkpointDir string

func init() {
	checkpointCmd.PersistentFlags().StringVar(&checkpointDir, "dir", "", "Checkpoints directory (default \"checkpoints\")")
	checkpointCmd.AddCommand(checkpointCreateCmd, checkpointListCmd, checkpointRestoreCmd)
	rootCmd.AddCommand(checkpointCmd)
}

func checkpointsRoot(cmd *cobra.Command, cfg config.Config) string {
	if cmd.Flags().Changed("dir") {
		return checkpointDir
	}
	return cfg.CheckpointsDir
}

// withManager opens the database and hands fn a checkpoint manager.
func withManager(cmd *cobra.Command, fn func(context.Context, *checkpoint.Manager) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return fn(ctx, checkpoint.NewManager(database, checkpointsRoot(cmd, cfg)))
}

func printSummary(cmd *cobra.Command, verb string, s *checkpoint.Summary) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s checkpoint %q (%d companies, %d press releases) at %s\n",
		verb, s.Name, s.Companies, s.PressReleases, s.Dir)
}

func runCheckpointCreate(cmd *cobra.Command, args []string) error {
	return withManager(cmd, func(ctx context.Context, m *checkpoint.Manager) error {
		summary, err := m.Create(ctx, args[0])
		if err != nil {
			return err
		}
		printSummary(cmd, "Created", summary)
		return nil
	})
}

// runCheckpointList only reads the directory, so it needs no database.
func runCheckpointList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names, err := checkpoint.NewManager(nil, checkpointsRoot(cmd, cfg)).List()
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintCheckpoints(names)
	return nil
}

func runCheckpointRestore(cmd *cobra.Command, args []string) error {
	return withManager(cmd, func(ctx context.Context, m *checkpoint.Manager) error {
		summary, err := m.Restore(ctx, args[0])
		if err != nil {
			return err
		}
		printSummary(cmd, "Restored", summary)
		return nil
	})
}
