package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hearingcap/internal/hearing"
)

func newHearingsCommand(ctx *commandContext) *cobra.Command {
	hearingsCmd := &cobra.Command{
		Use:   "hearings",
		Short: "Inspect and manage tracked hearings",
	}
	hearingsCmd.AddCommand(newHearingsListCommand(ctx))
	hearingsCmd.AddCommand(newHearingsShowCommand(ctx))
	hearingsCmd.AddCommand(newHearingsAddCommand(ctx))
	hearingsCmd.AddCommand(newHearingsAdvanceCommand(ctx))
	hearingsCmd.AddCommand(newHearingsResetCommand(ctx))
	hearingsCmd.AddCommand(newHearingsRetryCommand(ctx))
	hearingsCmd.AddCommand(newHearingsRemoveCommand(ctx))
	hearingsCmd.AddCommand(newHearingsStatsCommand(ctx))
	return hearingsCmd
}

func parseHearingID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid hearing id %q", arg)
	}
	return id, nil
}

func newHearingsListCommand(ctx *commandContext) *cobra.Command {
	var stageFilters []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List hearings",
		RunE: func(cmd *cobra.Command, args []string) error {
			stages := make([]hearing.Stage, 0, len(stageFilters))
			for _, value := range stageFilters {
				stage, err := hearing.ParseStage(value)
				if err != nil {
					return err
				}
				stages = append(stages, stage)
			}
			return ctx.withStore(func(store *hearing.Store) error {
				hearings, err := store.List(cmd.Context(), stages...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, hearings)
				}
				if len(hearings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No hearings")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Committee", "Date", "Title", "Stage", "Status", "Error"},
					hearingRows(hearings),
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&stageFilters, "stage", nil, "Only show hearings at these stages")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func hearingRows(hearings []*hearing.Hearing) [][]string {
	rows := make([][]string, 0, len(hearings))
	for _, h := range hearings {
		rows = append(rows, []string{
			strconv.FormatInt(h.ID, 10),
			h.CommitteeCode,
			h.Date,
			truncate(h.Title, 48),
			string(h.Stage),
			string(h.Status),
			orDash(truncate(h.ErrorMessage, 32)),
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func newHearingsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one hearing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHearingID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *hearing.Store) error {
				h, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, h)
				}
				printHearing(cmd.OutOrStdout(), h)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printHearing(out io.Writer, h *hearing.Hearing) {
	rows := [][]string{
		{"ID", strconv.FormatInt(h.ID, 10)},
		{"Committee", h.CommitteeCode},
		{"Title", h.Title},
		{"Date", h.Date},
		{"Type", orDash(h.Type)},
		{"Stage", string(h.Stage)},
		{"Status", string(h.Status)},
		{"Confidence", strconv.FormatFloat(h.SyncConfidence, 'f', 2, 64)},
		{"Status Updated", h.StatusUpdatedAt.Local().Format(time.DateTime)},
		{"Error", orDash(h.ErrorMessage)},
	}
	platforms := make([]string, 0, len(h.Streams))
	for platform := range h.Streams {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)
	for _, platform := range platforms {
		rows = append(rows, []string{"Stream " + platform, h.Streams[platform]})
	}
	fmt.Fprint(out, renderTable([]string{"Field", "Value"}, rows, nil))
}

func newHearingsAddCommand(ctx *commandContext) *cobra.Command {
	var (
		n       hearing.NewHearing
		streams []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a discovered hearing",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseStreams(streams)
			if err != nil {
				return err
			}
			n.Streams = parsed
			return ctx.withStore(func(store *hearing.Store) error {
				h, created, err := store.Discover(cmd.Context(), n)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Hearing %d added (%s)\n", h.ID, h.Stage)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Hearing %d already tracked (%s)\n", h.ID, h.Stage)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&n.CommitteeCode, "committee", "", "Committee code")
	cmd.Flags().StringVar(&n.Title, "title", "", "Hearing title")
	cmd.Flags().StringVar(&n.Date, "date", "", "Hearing date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&n.Type, "type", "", "Hearing type")
	cmd.Flags().StringArrayVar(&streams, "stream", nil, "Stream as platform=url (repeatable)")
	cmd.Flags().Float64Var(&n.SyncConfidence, "confidence", 1, "Sync confidence between 0 and 1")
	return cmd
}

func parseStreams(values []string) (map[string]string, error) {
	streams := make(map[string]string, len(values))
	for _, value := range values {
		platform, url, ok := strings.Cut(value, "=")
		platform = strings.ToLower(strings.TrimSpace(platform))
		url = strings.TrimSpace(url)
		if !ok || platform == "" || url == "" {
			return nil, fmt.Errorf("stream %q must be platform=url", value)
		}
		streams[platform] = url
	}
	return streams, nil
}

func newHearingsAdvanceCommand(ctx *commandContext) *cobra.Command {
	var expected string
	var force bool
	cmd := &cobra.Command{
		Use:   "advance <id>",
		Short: "Advance a hearing one stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHearingID(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(expected) == "" {
				return errors.New("--expected is required")
			}
			stage, err := hearing.ParseStage(expected)
			if err != nil {
				return err
			}
			var opts []hearing.AdvanceOption
			if force {
				opts = append(opts, hearing.WithManualOverride())
			}
			return ctx.withLifecycle(func(store *hearing.Store, lifecycle *hearing.Lifecycle) error {
				h, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				updated, err := lifecycle.Advance(cmd.Context(), h, stage, opts...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Hearing %d advanced to %s (%s)\n", updated.ID, updated.Stage, updated.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&expected, "expected", "", "Stage the hearing must currently be at")
	cmd.Flags().BoolVar(&force, "force", false, "Bypass the confidence gate")
	return cmd
}

func newHearingsResetCommand(ctx *commandContext) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "reset <id>",
		Short: "Move a hearing back to an earlier stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHearingID(args[0])
			if err != nil {
				return err
			}
			stage, err := hearing.ParseStage(target)
			if err != nil {
				return err
			}
			return ctx.withLifecycle(func(_ *hearing.Store, lifecycle *hearing.Lifecycle) error {
				updated, err := lifecycle.Reset(cmd.Context(), id, stage)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Hearing %d reset to %s (%s)\n", updated.ID, updated.Stage, updated.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "stage", string(hearing.StageDiscovered), "Stage to reset to")
	return cmd
}

func newHearingsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>...",
		Short: "Clear recorded failures so the daemon picks hearings up again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseHearingID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(store *hearing.Store) error {
				for _, id := range ids {
					if err := store.ClearError(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Hearing %d queued for retry\n", id)
				}
				return nil
			})
		},
	}
}

func newHearingsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a hearing record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHearingID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *hearing.Store) error {
				removed, err := store.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Hearing %d not found\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Hearing %d removed\n", id)
				return nil
			})
		},
	}
}

func newHearingsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count hearings per stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *hearing.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(hearing.Stages())+2)
				for _, stage := range hearing.Stages() {
					rows = append(rows, []string{string(stage), strconv.Itoa(stats.ByStage[stage])})
				}
				rows = append(rows, []string{"errored", strconv.Itoa(stats.Errored)})
				rows = append(rows, []string{"total", strconv.Itoa(stats.Total)})
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Stage", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}
