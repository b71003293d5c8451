package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "List discovered contracts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		contracts, _ := loadRegistries(repoRoot)

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		names := contracts.Names()
		for _, name := range names {
			c, _ := contracts.Get(name)
			state := ""
			if !c.IsEnabled() {
				state = gray(" (disabled)")
			}
			if c.IsAbstract() {
				state += gray(" (abstract)")
			}
			fmt.Printf("%s %s [%s tier] %d check(s)%s\n",
				cyan(name), c.Version, c.Tier, len(contracts.Resolve(c)), state)
		}
		fmt.Printf("\n%d contract(s)\n", len(names))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contractsCmd)
}
