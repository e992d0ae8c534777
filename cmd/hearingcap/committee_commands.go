package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hearingcap/internal/committee"
)

func newCommitteesCommand(ctx *commandContext) *cobra.Command {
	committeesCmd := &cobra.Command{
		Use:   "committees",
		Short: "Inspect the committee table",
	}
	committeesCmd.AddCommand(newCommitteesListCommand(ctx))
	committeesCmd.AddCommand(newCommitteesTemplatesCommand(ctx))
	return committeesCmd
}

func loadRegistry(ctx *commandContext) (*committee.Registry, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return committee.Load(cfg.Paths.CommitteesFile)
}

func newCommitteesListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known committees",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry(ctx)
			if err != nil {
				return err
			}
			committees := registry.All()
			if asJSON {
				return writeJSON(cmd, committees)
			}
			rows := make([][]string, 0, len(committees))
			for _, c := range committees {
				rows = append(rows, []string{
					c.Code,
					c.Chamber,
					c.Domain(),
					yesNo(c.ISVPCompatible),
					orDash(c.StreamID),
					strconv.Itoa(c.Priority),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Code", "Chamber", "Domain", "ISVP", "Stream ID", "Priority"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newCommitteesTemplatesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "templates <code> <MMDDYY>",
		Short: "Print manifest URL templates for a committee and date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry(ctx)
			if err != nil {
				return err
			}
			code := strings.ToLower(strings.TrimSpace(args[0]))
			c, ok := registry.Lookup(code)
			if !ok {
				return fmt.Errorf("unknown committee %q", code)
			}
			if !committee.ValidDateCode(args[1]) {
				return fmt.Errorf("date code %q is not MMDDYY", args[1])
			}
			urls := committee.StreamTemplates(c, args[1])
			if len(urls) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Committee %s has no ISVP templates\n", c.Code)
				return nil
			}
			for _, u := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
}
