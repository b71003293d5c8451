package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeconform/conform/internal/conformance"
)

var pruneOpts struct {
	olderThanDays int
	dryRun        bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old resolved and stale violations",
	Long: `Delete resolved and stale violations whose last-seen timestamp is
older than the age threshold. Open violations are never pruned,
regardless of age.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := conformance.NewManager(repoRoot)
		if err != nil {
			return err
		}
		defer func() { _ = manager.Close() }()

		n, err := manager.PruneViolations(context.Background(), pruneOpts.olderThanDays, pruneOpts.dryRun)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		if pruneOpts.dryRun {
			fmt.Printf("%d violation(s) would be pruned (dry run)\n", n)
		} else {
			fmt.Printf("%s Pruned %d violation(s)\n", green("✓"), n)
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneOpts.olderThanDays, "older-than", 30, "age threshold in days")
	pruneCmd.Flags().BoolVar(&pruneOpts.dryRun, "dry-run", false, "count without deleting")
	rootCmd.AddCommand(pruneCmd)
}
