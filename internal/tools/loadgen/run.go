package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
	GraphQLErrors int64
	RateLimited   int64
}

type operation struct {
	build func(r *rand.Rand) map[string]any
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	ops := operationsForProfile(cfg.Profile)
	if len(ops) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/graphql"
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), 0x6f7470))

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, s2xx, s4xx, s5xx, gqlErrors, limited int64
	jobs := make(chan []byte, cfg.Concurrency*2)
	wg := sync.WaitGroup{}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for body := range jobs {
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				req.Header.Set("Content-Type", "application/json")
				resp, err := client.Do(req)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				codes := errorCodes(resp.Body)
				_ = resp.Body.Close()
				atomic.AddInt64(&total, 1)
				switch {
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					atomic.AddInt64(&s2xx, 1)
				case resp.StatusCode >= 400 && resp.StatusCode < 500:
					atomic.AddInt64(&s4xx, 1)
				case resp.StatusCode >= 500:
					atomic.AddInt64(&s5xx, 1)
				}
				if len(codes) > 0 {
					atomic.AddInt64(&gqlErrors, 1)
				}
				for _, c := range codes {
					if c == "RATE_LIMITED" {
						atomic.AddInt64(&limited, 1)
						break
					}
				}
			}
		}()
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return Result{
				TotalRequests: total,
				Failures:      failures,
				Status2xx:     s2xx,
				Status4xx:     s4xx,
				Status5xx:     s5xx,
				GraphQLErrors: gqlErrors,
				RateLimited:   limited,
			}, nil
		case <-ticker.C:
			op := ops[rng.IntN(len(ops))]
			body, err := json.Marshal(op.build(rng))
			if err != nil {
				return Result{}, err
			}
			select {
			case jobs <- body:
			case <-ctx.Done():
			}
		}
	}
}

// errorCodes extracts extensions.code from a GraphQL response body.
func errorCodes(r io.Reader) []string {
	var payload struct {
		Errors []struct {
			Extensions struct {
				Code string `json:"code"`
			} `json:"extensions"`
		} `json:"errors"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(&payload); err != nil {
		return nil
	}
	codes := make([]string, 0, len(payload.Errors)+1)
	for _, e := range payload.Errors {
		codes = append(codes, e.Extensions.Code)
	}
	if payload.Error != nil {
		codes = append(codes, payload.Error.Code)
	}
	return codes
}

func randomEmail(r *rand.Rand) string {
	return fmt.Sprintf("loadgen-%08x@example.com", r.Uint32())
}

var (
	meQuery = operation{build: func(*rand.Rand) map[string]any {
		return map[string]any{"query": "query { me { id email isVerified } }"}
	}}
	badLogin = operation{build: func(r *rand.Rand) map[string]any {
		return map[string]any{
			"query":     "mutation($email: String!, $password: String!) { login(email: $email, password: $password) { token } }",
			"variables": map[string]any{"email": randomEmail(r), "password": "WrongPassword1!"},
		}
	}}
	invalidRegister = operation{build: func(*rand.Rand) map[string]any {
		return map[string]any{
			"query":     "mutation($email: String!, $password: String!) { register(email: $email, password: $password) { id } }",
			"variables": map[string]any{"email": "not-an-email", "password": "short"},
		}
	}}
	resetRequest = operation{build: func(r *rand.Rand) map[string]any {
		return map[string]any{
			"query":     "mutation($email: String!) { requestPasswordReset(email: $email) }",
			"variables": map[string]any{"email": randomEmail(r)},
		}
	}}
	badReset = operation{build: func(*rand.Rand) map[string]any {
		return map[string]any{
			"query": "mutation { resetPassword(token: \"invalid\", newPassword: \"Password123!\") }",
		}
	}}
	badVerify = operation{build: func(r *rand.Rand) map[string]any {
		return map[string]any{
			"query":     "mutation($email: String!, $otp: String!) { verifyAccount(email: $email, otp: $otp) { id isVerified } }",
			"variables": map[string]any{"email": randomEmail(r), "otp": "000000"},
		}
	}}
	malformed = operation{build: func(*rand.Rand) map[string]any {
		return map[string]any{"query": "query { me { "}
	}}
)

func operationsForProfile(profile string) []operation {
	switch strings.ToLower(profile) {
	case "", "mixed":
		return []operation{meQuery, badLogin, invalidRegister, resetRequest, badVerify}
	case "auth":
		return []operation{badLogin, resetRequest}
	case "error-heavy":
		return []operation{malformed, badReset, badVerify, invalidRegister}
	default:
		return nil
	}
}
