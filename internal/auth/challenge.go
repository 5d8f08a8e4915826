package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hoodview/internal/broker"
	"hoodview/internal/util"
)

// promptPollDelays is the device-approval poll budget: an immediate first
// check, then fixed 2s spacing, six checks total. The pattern is absolute
// from the start of one poll; it does not restart when an outer retry
// re-enters the poll.
var promptPollDelays = []time.Duration{
	0,
	2 * time.Second,
	2 * time.Second,
	2 * time.Second,
	2 * time.Second,
	2 * time.Second,
}

// CodeOutcome classifies the broker's answer to a submitted challenge code.
type CodeOutcome int

// Code challenge outcomes. CodeAmbiguous covers missing or unrecognized
// responses; it is non-fatal because the subsequent login resubmission
// still carries the mfa fields as a fallback channel.
const (
	CodeValidated CodeOutcome = iota
	CodeInvalid
	CodeAmbiguous
)

// CodeResult is the outcome of answering a code challenge. On CodeInvalid,
// RemainingAttempts and Type carry the broker's nested descriptor fields;
// the original challenge id must be reused on the next attempt.
type CodeResult struct {
	Outcome           CodeOutcome
	RemainingAttempts int
	Type              string
}

// PromptOutcome classifies the end state of a device-approval poll.
type PromptOutcome int

// Prompt outcomes. PromptPending is recoverable: the user has not approved
// yet and the caller may re-drive the poll.
const (
	PromptValidated PromptOutcome = iota
	PromptPending
)

// ChallengeResolver resolves broker login challenges: code challenges by
// forwarding the user's code, prompt challenges by polling for out-of-band
// approval.
type ChallengeResolver struct {
	client *broker.Client
	clock  util.Clock
	log    *slog.Logger
}

// NewChallengeResolver creates a resolver using the given broker client and
// clock. Tests inject a fake clock to run the poll without wall-clock
// delay.
func NewChallengeResolver(client *broker.Client, clock util.Clock) *ChallengeResolver {
	return &ChallengeResolver{
		client: client,
		clock:  clock,
		log:    slog.Default().With("component", "challenge"),
	}
}

// RespondCode submits a user-supplied code against a challenge. Upstream
// failures and unrecognized response shapes come back as CodeAmbiguous, not
// errors; only context cancellation aborts.
func (r *ChallengeResolver) RespondCode(ctx context.Context, challengeID, code string) (CodeResult, error) {
	resp, err := r.client.RespondToChallenge(ctx, challengeID, code)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return CodeResult{Outcome: CodeAmbiguous}, err
		}
		r.log.Warn("challenge respond failed, falling back to login resubmission", "challenge", challengeID, "err", err)
		return CodeResult{Outcome: CodeAmbiguous}, nil
	}

	if resp.Status == "validated" {
		return CodeResult{Outcome: CodeValidated}, nil
	}
	if resp.Challenge != nil {
		return CodeResult{
			Outcome:           CodeInvalid,
			RemainingAttempts: resp.Challenge.RemainingAttempts,
			Type:              resp.Challenge.Type,
		}, nil
	}

	r.log.Warn("ambiguous challenge response", "challenge", challengeID, "status", resp.Status)
	return CodeResult{Outcome: CodeAmbiguous}, nil
}

// ResolvePrompt polls a device-approval challenge until the broker reports
// it validated or the poll budget runs out. On validation it advances the
// originating workflow inquiry with a continue call, because validation
// alone does not move the workflow state. Exhausting the budget yields
// PromptPending, not an error; only context cancellation and a failed
// continue call abort.
func (r *ChallengeResolver) ResolvePrompt(ctx context.Context, machineID, challengeID string) (PromptOutcome, error) {
	validated, err := util.RetrySchedule(ctx, r.clock, promptPollDelays, func(attempt int) (bool, error) {
		status, serr := r.client.GetPromptStatus(ctx, challengeID)
		if serr != nil {
			r.log.Warn("prompt status check failed", "challenge", challengeID, "attempt", attempt, "err", serr)
			return false, serr
		}
		return status == "validated", nil
	})
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return PromptPending, err
	}
	if !validated {
		return PromptPending, nil
	}

	if err := r.client.ContinueInquiry(ctx, machineID); err != nil {
		return PromptPending, err
	}
	return PromptValidated, nil
}
