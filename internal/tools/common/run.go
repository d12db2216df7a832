package common

import (
	"context"
	"io"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/otp-account-service/internal/config"
	"github.com/sandeepkv93/otp-account-service/internal/database"
	"github.com/sandeepkv93/otp-account-service/internal/observability"
	"github.com/sandeepkv93/otp-account-service/internal/tools/ui"
)

// ExitFailure is the process exit code for a failed tool command.
const ExitFailure = 3

type Options struct {
	EnvFile string
	Timeout time.Duration
	CI      bool
}

// Run executes fn either in the interactive UI or, with CI set, headless
// with a JSON result written to out.
func Run(out io.Writer, tool, command string, opts Options, fn func(context.Context) ([]string, error)) ([]string, error) {
	title := tool + " " + command
	start := time.Now()

	var (
		details []string
		err     error
	)
	if opts.CI {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		details, err = fn(ctx)
		cancel()
	} else {
		details, err = ui.Run(title, fn)
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	observability.RecordToolCommandRun(context.Background(), tool, command, outcome)
	observability.RecordToolCommandDuration(context.Background(), tool, command, outcome, time.Since(start))

	if opts.CI {
		if out == nil {
			out = os.Stdout
		}
		WriteCIResult(out, err == nil, title, details, err)
	}
	return details, err
}

func LoadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func CloseDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
