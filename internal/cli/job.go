package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для управления заданиями.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage publication jobs",
	}

	cmd.AddCommand(
		newJobListCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobCancelCmd(clientFn, outputFn),
		newJobPublishedCmd(clientFn, outputFn),
		newJobStatsCmd(clientFn, outputFn),
	)

	return cmd
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var scheduleID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListJobs(ListJobsOpts{
				ScheduleID: scheduleID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			out.Print(jobHeaders(), jobRows(jobs), jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&scheduleID, "schedule-id", "", "Filter by schedule ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PLANNED, ENQUEUED, RUNNING, SUCCEEDED, FAILED, DEAD_LETTER, CANCELLED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			j, err := client.GetJob(args[0])
			if err != nil {
				return err
			}

			seed := ""
			if j.SelectionSeed != nil {
				seed = strconv.FormatInt(*j.SelectionSeed, 10)
			}

			out.PrintKV([][2]string{
				{"ID", j.ID},
				{"SCHEDULE_ID", j.ScheduleID},
				{"STATUS", j.Status},
				{"PLANNED_AT", j.PlannedAt},
				{"VARIANT_ID", j.VariantID},
				{"POST_ID", j.PostID},
				{"POLICY", j.SelectionPolicy},
				{"SEED", seed},
				{"ATTEMPT", strconv.Itoa(j.Attempt)},
				{"ENQUEUED_AT", j.EnqueuedAt},
				{"STARTED_AT", j.StartedAt},
				{"FINISHED_AT", j.FinishedAt},
				{"ERROR", j.Error},
				{"CREATED", j.CreatedAt},
			}, j)
			return nil
		},
	}
}

func newJobCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a job that has not started yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.CancelJob(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job cancelled: %s", job.ID))
			return nil
		},
	}
}

func newJobPublishedCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "published JOB_ID",
		Short: "Show the published record of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			rec, err := client.GetPublished(args[0])
			if err != nil {
				return err
			}

			out.PrintKV([][2]string{
				{"ID", rec.ID},
				{"JOB_ID", rec.JobID},
				{"SCHEDULE_ID", rec.ScheduleID},
				{"VARIANT_ID", rec.VariantID},
				{"EXTERNAL_ID", rec.ExternalID},
				{"PUBLISHED_AT", rec.PublishedAt},
				{"TEXT", rec.Text},
			}, rec)
			return nil
		},
	}
}

func newJobStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stats, err := client.JobStats()
			if err != nil {
				return err
			}

			statuses := make([]string, 0, len(stats.ByStatus))
			for s := range stats.ByStatus {
				statuses = append(statuses, s)
			}
			sort.Strings(statuses)

			rows := make([][]string, 0, len(statuses)+1)
			for _, s := range statuses {
				rows = append(rows, []string{s, strconv.Itoa(stats.ByStatus[s])})
			}
			rows = append(rows, []string{"TOTAL", strconv.Itoa(stats.Total)})

			out.Print([]string{"STATUS", "COUNT"}, rows, stats)
			return nil
		},
	}
}

// --- Helpers ---

func jobHeaders() []string {
	return []string{"ID", "SCHEDULE_ID", "STATUS", "ATTEMPT", "PLANNED_AT", "ERROR"}
}

func jobRows(jobs []JobResponse) [][]string {
	rows := make([][]string, len(jobs))
	for i, j := range jobs {
		rows[i] = []string{j.ID, j.ScheduleID, j.Status, strconv.Itoa(j.Attempt), j.PlannedAt, j.Error}
	}
	return rows
}
