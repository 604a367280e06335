package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewHealthCmd создаёт команду проверки здоровья планировщика.
func NewHealthCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check scheduler health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			health, err := client.SchedulerHealth()
			if err != nil {
				return err
			}

			out.PrintKV([][2]string{
				{"HEALTHY", strconv.FormatBool(health.Healthy)},
				{"OVERDUE_SCHEDULES", strconv.Itoa(health.OverdueSchedules)},
				{"STALE_RUNNING_JOBS", strconv.Itoa(health.StaleRunningJobs)},
				{"CHECKED_AT", health.CheckedAt},
			}, health)

			if !health.Healthy {
				return fmt.Errorf("scheduler is unhealthy")
			}
			return nil
		},
	}
}
