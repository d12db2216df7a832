package migrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/otp-account-service/internal/database"
	"github.com/sandeepkv93/otp-account-service/internal/tools/common"
)

func NewRootCommand() *cobra.Command {
	opts := &common.Options{}
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Database migration tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.CI, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newUpCommand(opts),
		newStatusCommand(opts),
		newPlanCommand(opts),
	)
	return cmd
}

func newUpCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Run(cmd.OutOrStdout(), "migrate", "up", *opts, func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.EnvFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)

				pending := database.PendingMigrations(db.WithContext(ctx))
				if err := database.Migrate(db.WithContext(ctx)); err != nil {
					return nil, err
				}
				if len(pending) == 0 {
					return []string{"schema already up to date"}, nil
				}
				return []string{"applied: " + strings.Join(pending, ", ")}, nil
			})
			return err
		},
	}
}

func newStatusCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report pending schema changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Run(cmd.OutOrStdout(), "migrate", "status", *opts, func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.EnvFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)

				sqlDB, err := db.DB()
				if err != nil {
					return nil, err
				}
				if err := sqlDB.PingContext(ctx); err != nil {
					return nil, fmt.Errorf("db ping: %w", err)
				}
				details := []string{"database reachable"}
				pending := database.PendingMigrations(db)
				if len(pending) == 0 {
					return append(details, "schema up to date"), nil
				}
				return append(details, "pending: "+strings.Join(pending, ", ")), nil
			})
			return err
		},
	}
}

func newPlanCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show migration plan (dry-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Run(cmd.OutOrStdout(), "migrate", "plan", *opts, func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.EnvFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)

				pending := database.PendingMigrations(db.WithContext(ctx))
				details := make([]string, 0, len(pending)+1)
				for _, p := range pending {
					details = append(details, "would create "+p)
				}
				if len(pending) == 0 {
					details = append(details, "nothing to apply")
				}
				return append(details, "no mutation executed in plan mode"), nil
			})
			return err
		},
	}
}
