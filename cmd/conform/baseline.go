package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeconform/conform/internal/baseline"
	"github.com/codeconform/conform/internal/conformance"
	"github.com/codeconform/conform/internal/gitdiff"
	"github.com/codeconform/conform/internal/violation"
)

var baselineOut string

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Snapshot current violations as a CI baseline",
	Long: `Write the current open, non-exempt violations as a baseline file.
PR runs compare against it to tell new violations from pre-existing
ones, and ratchet mode gates on the net change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		manager, err := conformance.NewManager(repoRoot)
		if err != nil {
			return err
		}
		defer func() { _ = manager.Close() }()

		open, err := manager.ListViolations(ctx, violation.Filter{Status: violation.StatusOpen})
		if err != nil {
			return err
		}
		var failing []*violation.Violation
		for _, v := range open {
			if !v.Exempted {
				failing = append(failing, v)
			}
		}

		sha := ""
		if git, err := gitdiff.New(ctx); err == nil {
			sha, _ = git.HeadSHA(ctx, repoRoot)
		}

		b := baseline.FromViolations(failing, sha)
		if err := b.Save(baselineOut); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Baselined %d violation(s) to %s\n", green("✓"), len(b.Entries), cyan(baselineOut))
		return nil
	},
}

func init() {
	baselineCmd.Flags().StringVar(&baselineOut, "out", ".conform/baseline.json", "baseline file path")
	rootCmd.AddCommand(baselineCmd)
}
