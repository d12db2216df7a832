package migrate

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sandeepkv93/otp-account-service/internal/tools/common"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(dir, "migrate.db"))
	t.Setenv("JWT_SECRET", strings.Repeat("m", 32))
	t.Setenv("APP_ENV", "test")
	return filepath.Join(dir, "missing.env")
}

func execute(t *testing.T, args ...string) (common.CIResult, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()

	var res common.CIResult
	if decodeErr := json.Unmarshal(out.Bytes(), &res); decodeErr != nil {
		t.Fatalf("decode ci output %q: %v", out.String(), decodeErr)
	}
	return res, err
}

func TestPlanUpStatusFlow(t *testing.T) {
	envFile := setupEnv(t)

	plan, err := execute(t, "plan", "--ci", "--env-file", envFile)
	if err != nil || !plan.OK {
		t.Fatalf("plan failed: %v %+v", err, plan)
	}
	if plan.Details[0] != "would create users" {
		t.Fatalf("unexpected plan details: %v", plan.Details)
	}

	up, err := execute(t, "up", "--ci", "--env-file", envFile)
	if err != nil || !up.OK {
		t.Fatalf("up failed: %v %+v", err, up)
	}
	if up.Title != "migrate up" || up.Details[0] != "applied: users" {
		t.Fatalf("unexpected up result: %+v", up)
	}

	again, err := execute(t, "up", "--ci", "--env-file", envFile)
	if err != nil || again.Details[0] != "schema already up to date" {
		t.Fatalf("expected idempotent up, got %v %+v", err, again)
	}

	status, err := execute(t, "status", "--ci", "--env-file", envFile)
	if err != nil || !status.OK {
		t.Fatalf("status failed: %v %+v", err, status)
	}
	if status.Details[len(status.Details)-1] != "schema up to date" {
		t.Fatalf("unexpected status details: %v", status.Details)
	}
}

func TestConfigErrorIsReturned(t *testing.T) {
	envFile := setupEnv(t)
	t.Setenv("JWT_SECRET", "short")

	res, err := execute(t, "status", "--ci", "--env-file", envFile)
	if err == nil {
		t.Fatal("expected config error")
	}
	if res.OK || !strings.Contains(res.Error, "JWT_SECRET") {
		t.Fatalf("unexpected ci result: %+v", res)
	}
}
