// Command bciers runs the BCIERS API and its operational tooling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bciers/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var cfg config.Config
	root := &cobra.Command{
		Use:           "bciers",
		Short:         "B.C. Industrial Emissions Reporting System",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}
	root.AddCommand(
		serveCommand(&cfg),
		migrateCommand(&cfg),
		rlsCommand(&cfg),
		complianceCommand(&cfg),
		tasksCommand(&cfg),
	)
	return root
}
