package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeconform/conform/internal/conformance"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize conformance state in the repository",
	Long: `Initialize conformance tracking by creating the .conform/ directory:

  .conform/violations/  local violation store (git-ignored)
  .conform/exemptions/  exemption declarations (committed)
  .conform/contracts/   repo-tier contract definitions (committed)
  .conform/history/     daily conformance snapshots
  .conform/reports/     run reports (git-ignored)
  .conform/cache/       CI check-result cache (git-ignored)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := conformance.Initialize(repoRoot, initForce); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Initialized conformance state\n\n", green("✓"))
		fmt.Printf("  State: %s\n\n", cyan(filepath.Join(repoRoot, conformance.StateDirName)))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "reinitialize over existing state")
	rootCmd.AddCommand(initCmd)
}
