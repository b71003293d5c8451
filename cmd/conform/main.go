// conform enforces machine-verifiable coding-standard contracts and
// tracks the resulting violations over time for CI gating.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codeconform/conform/internal/checks"
	"github.com/codeconform/conform/internal/conformance"
	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/lang"
)

var repoRoot string

var rootCmd = &cobra.Command{
	Use:   "conform",
	Short: "Coding-standard contract enforcement and violation tracking",
	Long: `conform loads tiered contract definitions, runs their checks against
the repository, tracks violations across runs in a local store, applies
documented exemptions, and gates CI on baselines and trends.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoRoot, "repo", ".", "repository root")
}

// tierDirs resolves the four contract tiers relative to the repo and
// the user's home directory.
func tierDirs(root string) contract.TierDirs {
	home, _ := os.UserHomeDir()
	dirs := contract.TierDirs{
		Workspace: filepath.Join(root, "..", ".conform-workspace", "contracts"),
		Repo:      filepath.Join(root, conformance.StateDirName, "contracts"),
	}
	if exe, err := os.Executable(); err == nil {
		dirs.Builtin = filepath.Join(filepath.Dir(exe), "contracts")
	}
	if home != "" {
		dirs.Global = filepath.Join(home, ".conform", "contracts")
	}
	return dirs
}

// loadRegistries builds the contract registry and check executor for
// the repository.
func loadRegistries(root string) (*contract.Registry, *checks.Executor) {
	contracts := contract.NewRegistry(tierDirs(root))
	contracts.Discover()

	langs := lang.NewRegistry(lang.NewPythonAdapter(), lang.NewGoAdapter(lang.ModulePath(root)))
	_, executor := checks.DefaultRegistry(contracts, langs)
	return contracts, executor
}
