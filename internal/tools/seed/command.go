package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/otp-account-service/internal/config"
	"github.com/sandeepkv93/otp-account-service/internal/database"
	"github.com/sandeepkv93/otp-account-service/internal/security"
	"github.com/sandeepkv93/otp-account-service/internal/tools/common"
)

type userOptions struct {
	email    string
	password string
	role     string
	verified bool
}

func NewRootCommand() *cobra.Command {
	opts := &common.Options{}
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Account seed tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.CI, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newUserCommand(opts), newDevUserCommand(opts), newVerifyEmailCommand(opts))
	return cmd
}

func newUserCommand(opts *common.Options) *cobra.Command {
	uo := &userOptions{}
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Create an account, optionally pre-verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Run(cmd.OutOrStdout(), "seed", "user", *opts, func(ctx context.Context) ([]string, error) {
				return seedUsers(ctx, opts.EnvFile, func(*config.Config) (database.SeedUser, error) {
					if uo.email == "" || uo.password == "" {
						return database.SeedUser{}, errors.New("--email and --password are required")
					}
					return database.SeedUser{Email: uo.email, Password: uo.password, Role: uo.role, Verified: uo.verified}, nil
				})
			})
			return err
		},
	}
	cmd.Flags().StringVar(&uo.email, "email", "", "account email")
	cmd.Flags().StringVar(&uo.password, "password", "", "account password")
	cmd.Flags().StringVar(&uo.role, "role", "", "account role (default user)")
	cmd.Flags().BoolVar(&uo.verified, "verified", false, "mark the account verified")
	return cmd
}

func newDevUserCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "dev-user",
		Short: "Create the verified development account from SEED_DEV_USER_*",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Run(cmd.OutOrStdout(), "seed", "dev-user", *opts, func(ctx context.Context) ([]string, error) {
				return seedUsers(ctx, opts.EnvFile, func(cfg *config.Config) (database.SeedUser, error) {
					if cfg.SeedDevUserEmail == "" || cfg.SeedDevUserPassword == "" {
						return database.SeedUser{}, errors.New("SEED_DEV_USER_EMAIL and SEED_DEV_USER_PASSWORD are required")
					}
					return database.SeedUser{Email: cfg.SeedDevUserEmail, Password: cfg.SeedDevUserPassword, Verified: true}, nil
				})
			})
			return err
		},
	}
}

func newVerifyEmailCommand(opts *common.Options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Mark an existing account verified without an OTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Run(cmd.OutOrStdout(), "seed", "verify-email", *opts, func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.EnvFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)

				if err := database.VerifyEmail(db.WithContext(ctx), email); err != nil {
					return nil, fmt.Errorf("verify %s: %w", email, err)
				}
				return []string{"verified: " + email}, nil
			})
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func seedUsers(ctx context.Context, envFile string, build func(*config.Config) (database.SeedUser, error)) ([]string, error) {
	cfg, db, err := common.LoadConfigDB(envFile)
	if err != nil {
		return nil, err
	}
	defer common.CloseDB(db)

	su, err := build(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db.WithContext(ctx)); err != nil {
		return nil, err
	}
	report, err := database.SeedUsers(db.WithContext(ctx), security.NewPasswordHasher(cfg.BcryptCost), su)
	if err != nil {
		return nil, err
	}
	if report.Noop {
		return []string{"no changes: " + su.Email + " already present"}, nil
	}
	return []string{
		fmt.Sprintf("created users: %d", report.CreatedUsers),
		fmt.Sprintf("verified users: %d", report.VerifiedUsers),
	}, nil
}
