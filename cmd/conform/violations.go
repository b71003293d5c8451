package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeconform/conform/internal/conformance"
	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/violation"
)

var violationsOpts struct {
	status      string
	severity    string
	contractID  string
	filePattern string
	limit       int
}

var violationsCmd = &cobra.Command{
	Use:   "violations",
	Short: "List tracked violations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := conformance.NewManager(repoRoot)
		if err != nil {
			return err
		}
		defer func() { _ = manager.Close() }()

		list, err := manager.ListViolations(context.Background(), violation.Filter{
			Status:      violation.Status(violationsOpts.status),
			Severity:    contract.Severity(violationsOpts.severity),
			ContractID:  violationsOpts.contractID,
			FilePattern: violationsOpts.filePattern,
			Limit:       violationsOpts.limit,
		})
		if err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Println("No violations match.")
			return nil
		}

		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		for _, v := range list {
			sev := yellow(string(v.Severity))
			if v.Severity == contract.SeverityError {
				sev = red(string(v.Severity))
			}
			fmt.Printf("%s [%s] %s %s (%s)\n", gray(v.ID), sev,
				cyan(fmt.Sprintf("%s:%d", v.File, v.Line)), v.Message, v.Status)
		}
		fmt.Printf("\n%d violation(s)\n", len(list))
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <violation-id> <reason>",
	Short: "Mark a violation resolved",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := conformance.NewManager(repoRoot)
		if err != nil {
			return err
		}
		defer func() { _ = manager.Close() }()

		if err := manager.ResolveViolation(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Resolved %s\n", green("✓"), args[0])
		return nil
	},
}

func init() {
	f := violationsCmd.Flags()
	f.StringVar(&violationsOpts.status, "status", "", "filter by status")
	f.StringVar(&violationsOpts.severity, "severity", "", "filter by severity")
	f.StringVar(&violationsOpts.contractID, "contract", "", "filter by contract")
	f.StringVar(&violationsOpts.filePattern, "file", "", "filter by file glob")
	f.IntVar(&violationsOpts.limit, "limit", 0, "limit the number of results")
	rootCmd.AddCommand(violationsCmd)
	rootCmd.AddCommand(resolveCmd)
}
