package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bciers/internal/compliance"
	"bciers/internal/identity"
	"bciers/internal/platform/config"
	"bciers/internal/platform/database"
	"bciers/internal/platform/logger"
	"bciers/internal/platform/migrations"
	"bciers/internal/registration"
	"bciers/internal/reporting"
	"bciers/internal/rls"
	id "bciers/pkg/domain"
)

func migrateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Manage the database schema"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := database.Open(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				results, err := migrations.Up(cmd.Context(), db)
				for _, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %d %s (%s)\n", r.Source.Version, r.Source.Path, r.Duration)
				}
				return err
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := database.Open(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				statuses, err := migrations.Status(cmd.Context(), db)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					fmt.Fprintf(cmd.OutOrStdout(), "%-4d %-8s %s\n", s.Source.Version, s.State, s.Source.Path)
				}
				return nil
			},
		},
	)
	return cmd
}

// policies collects the row-level security descriptors of every module.
func policies() *rls.Registry {
	reg := rls.NewRegistry()
	reg.MustRegister(identity.RLSTables()...)
	reg.MustRegister(registration.RLSTables()...)
	reg.MustRegister(reporting.RLSTables()...)
	reg.MustRegister(compliance.RLSTables()...)
	return reg
}

func rlsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{Use: "rls", Short: "Generate and apply row-level security policies"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "print",
			Short: "Print the policy script",
			RunE: func(cmd *cobra.Command, _ []string) error {
				script, err := policies().Script()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), script)
				return nil
			},
		},
		&cobra.Command{
			Use:   "apply",
			Short: "Create roles, grants and policies",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := database.Open(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				return rls.Apply(cmd.Context(), db, policies())
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Drop every generated policy and grant",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := database.Open(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				return rls.Reset(cmd.Context(), db, policies())
			},
		},
	)
	return cmd
}

func complianceCommand(cfg *config.Config) *cobra.Command {
	var record bool
	recalculate := &cobra.Command{
		Use:   "recalculate <report-version-id>",
		Short: "Print the compliance summary of a report version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versionID, err := id.ParseReportVersionID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfg, logger.New(cfg.LogLevel), true)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			summary, err := a.compliance.GetSummary(ctx, versionID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
			if record {
				return a.compliance.RecordSubmission(ctx, versionID)
			}
			return nil
		},
	}
	recalculate.Flags().BoolVar(&record, "record", false, "create the compliance record when the version has none")

	cmd := &cobra.Command{Use: "compliance", Short: "Compliance maintenance"}
	cmd.AddCommand(recalculate)
	return cmd
}

func tasksCommand(cfg *config.Config) *cobra.Command {
	runOnce := &cobra.Command{
		Use:   "run-once <job>",
		Short: "Run a scheduled job now: refresh_obligations, relay_audit_outbox or refresh_email_status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfg, logger.New(cfg.LogLevel), true)
			if err != nil {
				return err
			}
			defer a.close(ctx)
			return a.scheduler.RunOnce(ctx, args[0])
		},
	}
	cmd := &cobra.Command{Use: "tasks", Short: "Background jobs"}
	cmd.AddCommand(runOnce)
	return cmd
}
