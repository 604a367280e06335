package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewScheduleCmd создаёт группу команд для управления расписаниями.
func NewScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage schedules",
	}

	cmd.AddCommand(
		newScheduleListCmd(clientFn, outputFn),
		newScheduleShowCmd(clientFn, outputFn),
		newScheduleEnableCmd(clientFn, outputFn),
		newScheduleDisableCmd(clientFn, outputFn),
		newSchedulePreviewCmd(clientFn, outputFn),
		newScheduleOccurrencesCmd(clientFn, outputFn),
		newScheduleJobsCmd(clientFn, outputFn),
	)

	return cmd
}

func newScheduleListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var enabled string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			schedules, err := client.ListSchedules(ListSchedulesOpts{
				Enabled: enabled,
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "KIND", "EXPR", "TZ", "POLICY", "ENABLED", "NEXT_RUN"}
			rows := make([][]string, len(schedules))
			for i, s := range schedules {
				rows[i] = []string{
					s.ID, s.Name, s.Kind, s.Expr, s.Timezone, s.SelectionPolicy,
					strconv.FormatBool(s.Enabled), s.NextRunAt,
				}
			}

			out.Print(headers, rows, schedules)
			return nil
		},
	}

	cmd.Flags().StringVar(&enabled, "enabled", "", "Filter by enabled state (true|false)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newScheduleShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			s, err := client.GetSchedule(args[0])
			if err != nil {
				return err
			}

			pairs := [][2]string{
				{"ID", s.ID},
				{"NAME", s.Name},
				{"KIND", s.Kind},
				{"EXPR", s.Expr},
				{"TIMEZONE", s.Timezone},
				{"POST_ID", s.PostID},
				{"TEMPLATE_ID", s.TemplateID},
				{"POLICY", s.SelectionPolicy},
				{"ENABLED", strconv.FormatBool(s.Enabled)},
				{"NEXT_RUN", s.NextRunAt},
				{"LAST_RUN", s.LastRunAt},
				{"LAST_JOB", s.LastJobID},
				{"CREATED", s.CreatedAt},
			}
			if s.NoRepeatWindow > 0 {
				pairs = append(pairs,
					[2]string{"NO_REPEAT_WINDOW", strconv.Itoa(s.NoRepeatWindow)},
					[2]string{"NO_REPEAT_SCOPE", s.NoRepeatScope},
				)
			}

			out.PrintKV(pairs, s)
			return nil
		},
	}
}

func newScheduleEnableCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "enable ID",
		Short: "Enable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if _, err := client.EnableSchedule(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule enabled: %s", args[0]))
			return nil
		},
	}
}

func newScheduleDisableCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "disable ID",
		Short: "Disable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if _, err := client.DisableSchedule(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule disabled: %s", args[0]))
			return nil
		},
	}
}

func newSchedulePreviewCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var plannedAt string
	var seed string

	cmd := &cobra.Command{
		Use:   "preview ID",
		Short: "Preview which variant would be published",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			preview, err := client.PreviewSchedule(args[0], PreviewOpts{
				PlannedAt: plannedAt,
				Seed:      seed,
			})
			if err != nil {
				return err
			}

			out.PrintKV([][2]string{
				{"SCHEDULE_ID", preview.ScheduleID},
				{"PLANNED_AT", preview.PlannedAt},
				{"VARIANT_ID", preview.VariantID},
				{"SEED", strconv.FormatInt(preview.Seed, 10)},
				{"TEXT", preview.Text},
			}, preview)
			return nil
		},
	}

	cmd.Flags().StringVar(&plannedAt, "planned-at", "", "Occurrence time in RFC3339 (default: next run)")
	cmd.Flags().StringVar(&seed, "seed", "", "Override selection seed")

	return cmd
}

func newScheduleOccurrencesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var from string
	var limit int

	cmd := &cobra.Command{
		Use:   "occurrences ID",
		Short: "Show upcoming occurrences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			occ, err := client.ListOccurrences(args[0], from, limit)
			if err != nil {
				return err
			}

			headers := []string{"#", "OCCURS_AT"}
			rows := make([][]string, len(occ.Occurrences))
			for i, t := range occ.Occurrences {
				rows[i] = []string{strconv.Itoa(i + 1), t}
			}

			out.Print(headers, rows, occ)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start time in RFC3339 (default: now)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of occurrences (default 10, max 100)")

	return cmd
}

func newScheduleJobsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs ID",
		Short: "List jobs of a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListScheduleJobs(args[0], ListJobsOpts{
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			out.Print(jobHeaders(), jobRows(jobs), jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PLANNED, ENQUEUED, RUNNING, SUCCEEDED, FAILED, DEAD_LETTER, CANCELLED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}
