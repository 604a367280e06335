// Rupor CLI — инструмент командной строки для наблюдения за
// расписаниями и заданиями публикации через HTTP API.
//
// Использование:
//
//	rupor [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	schedule  Управление расписаниями
//	job       Управление заданиями публикации
//	health    Проверка здоровья планировщика
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ruporhq/rupor/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "rupor",
		Short:         "Rupor CLI — scheduled publishing tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewScheduleCmd(clientFn, outputFn),
		cli.NewJobCmd(clientFn, outputFn),
		cli.NewHealthCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
