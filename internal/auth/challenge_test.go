package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hoodview/internal/broker"
)

func newTestResolver(t *testing.T, handler http.Handler) (*ChallengeResolver, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := broker.NewClient(broker.Options{APIURL: srv.URL})
	clk := newFakeClock()
	return NewChallengeResolver(client, clk), clk
}

func TestResolvePromptValidatedOnThirdCheck(t *testing.T) {
	var checks, continues atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /push/ch-1/get_prompts_status/", func(w http.ResponseWriter, r *http.Request) {
		status := "issued"
		if checks.Add(1) >= 3 {
			status = "validated"
		}
		fmt.Fprintf(w, `{"challenge_status":%q}`, status)
	})
	mux.HandleFunc("POST /pathfinder/inquiries/m-1/user_view/", func(w http.ResponseWriter, r *http.Request) {
		continues.Add(1)
		fmt.Fprint(w, `{}`)
	})

	resolver, clk := newTestResolver(t, mux)

	outcome, err := resolver.ResolvePrompt(context.Background(), "m-1", "ch-1")
	if err != nil {
		t.Fatal(err)
	}
	if outcome != PromptValidated {
		t.Fatalf("outcome = %v, want PromptValidated", outcome)
	}
	if got := checks.Load(); got != 3 {
		t.Fatalf("status checks = %d, want 3", got)
	}
	if got := continues.Load(); got != 1 {
		t.Fatalf("continue calls = %d, want 1", got)
	}

	want := []time.Duration{0, 2 * time.Second, 2 * time.Second}
	got := clk.recorded()
	if len(got) != len(want) {
		t.Fatalf("slept %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slept %v, want %v", got, want)
		}
	}
}

func TestResolvePromptBudgetExhausted(t *testing.T) {
	var checks, continues atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /push/ch-1/get_prompts_status/", func(w http.ResponseWriter, r *http.Request) {
		checks.Add(1)
		fmt.Fprint(w, `{"challenge_status":"issued"}`)
	})
	mux.HandleFunc("POST /pathfinder/inquiries/m-1/user_view/", func(w http.ResponseWriter, r *http.Request) {
		continues.Add(1)
		fmt.Fprint(w, `{}`)
	})

	resolver, clk := newTestResolver(t, mux)

	outcome, err := resolver.ResolvePrompt(context.Background(), "m-1", "ch-1")
	if err != nil {
		t.Fatal(err)
	}
	if outcome != PromptPending {
		t.Fatalf("outcome = %v, want PromptPending", outcome)
	}
	if got := checks.Load(); got != 6 {
		t.Fatalf("status checks = %d, want 6", got)
	}
	if got := continues.Load(); got != 0 {
		t.Fatalf("continue calls = %d, want 0", got)
	}
	if got := clk.recorded(); len(got) != 6 {
		t.Fatalf("slept %d times, want 6", len(got))
	}
}

func TestResolvePromptToleratesTransientErrors(t *testing.T) {
	var checks atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /push/ch-1/get_prompts_status/", func(w http.ResponseWriter, r *http.Request) {
		n := checks.Add(1)
		if n < 3 {
			http.Error(w, `{"detail":"try again"}`, http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"challenge_status":"validated"}`)
	})
	mux.HandleFunc("POST /pathfinder/inquiries/m-1/user_view/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	resolver, _ := newTestResolver(t, mux)

	outcome, err := resolver.ResolvePrompt(context.Background(), "m-1", "ch-1")
	if err != nil {
		t.Fatal(err)
	}
	if outcome != PromptValidated {
		t.Fatalf("outcome = %v, want PromptValidated", outcome)
	}
}

func TestResolvePromptCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /push/ch-1/get_prompts_status/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"challenge_status":"issued"}`)
	})

	resolver, _ := newTestResolver(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := resolver.ResolvePrompt(ctx, "m-1", "ch-1")
	if outcome != PromptPending {
		t.Fatalf("outcome = %v, want PromptPending", outcome)
	}
	if err == nil {
		t.Fatal("expected a context error")
	}
}

func TestRespondCode(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantOutcome   CodeOutcome
		wantRemaining int
		wantType      string
	}{
		{
			name:        "validated",
			status:      http.StatusOK,
			body:        `{"id":"ch-1","status":"validated"}`,
			wantOutcome: CodeValidated,
		},
		{
			name:          "invalid code",
			status:        http.StatusBadRequest,
			body:          `{"challenge":{"id":"ch-1","type":"app","status":"issued","remaining_attempts":2}}`,
			wantOutcome:   CodeInvalid,
			wantRemaining: 2,
			wantType:      "app",
		},
		{
			name:        "server error is ambiguous",
			status:      http.StatusInternalServerError,
			body:        `oops`,
			wantOutcome: CodeAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /challenge/ch-1/respond/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			resolver, _ := newTestResolver(t, mux)

			res, err := resolver.RespondCode(context.Background(), "ch-1", "123456")
			if err != nil {
				t.Fatal(err)
			}
			if res.Outcome != tt.wantOutcome {
				t.Fatalf("outcome = %v, want %v", res.Outcome, tt.wantOutcome)
			}
			if res.RemainingAttempts != tt.wantRemaining {
				t.Fatalf("remaining = %d, want %d", res.RemainingAttempts, tt.wantRemaining)
			}
			if res.Type != tt.wantType {
				t.Fatalf("type = %q, want %q", res.Type, tt.wantType)
			}
		})
	}
}
