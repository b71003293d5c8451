package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeconform/conform/internal/conformance"
)

var exemptionsCmd = &cobra.Command{
	Use:   "exemptions",
	Short: "Audit exemption declarations",
	Long: `List exemptions, flipping any whose expiry has passed to expired and
flagging active exemptions past their review date.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := conformance.NewManager(repoRoot)
		if err != nil {
			return err
		}
		defer func() { _ = manager.Close() }()

		audit := manager.Exemptions().Audit()

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		for _, e := range audit.Active {
			fmt.Printf("%s %s  %s/%v  approved by %s: %s\n",
				green("active "), e.ID, e.Contract, e.Checks, e.ApprovedBy, e.Reason)
		}
		for _, e := range audit.Expired {
			fmt.Printf("%s %s  %s/%v: %s\n", red("expired"), e.ID, e.Contract, e.Checks, e.Reason)
		}
		for _, e := range audit.NeedReview {
			fmt.Printf("%s %s is past its review date\n", yellow("review "), e.ID)
		}
		fmt.Printf("\n%d active, %d expired, %d needing review\n",
			len(audit.Active), len(audit.Expired), len(audit.NeedReview))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exemptionsCmd)
}
