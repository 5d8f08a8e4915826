package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hoodview/internal/broker"
	"hoodview/internal/domain"
	"hoodview/internal/util"
)

// deviceRetryDelays is the outer resubmission schedule while a device
// approval is pending. Each attempt re-runs the full credential submission,
// not just the poll, because the broker may only finalize the workflow when
// credentials arrive after the approval.
var deviceRetryDelays = []time.Duration{0, 2 * time.Second, 3 * time.Second}

const (
	genericLoginFailure = "Login failed. Please check your credentials and try again."
	approvalPending     = "Approve the login in your device, then retry."
)

// Service drives login attempts end to end and owns per-user
// serialization: concurrent logins for one user never interleave session or
// device-token writes.
type Service struct {
	client   *broker.Client
	sessions *Sessions
	devices  *DeviceRegistry
	resolver *ChallengeResolver
	clock    util.Clock
	tokenTTL int
	log      *slog.Logger

	mu       sync.Mutex
	userMu   map[string]*sync.Mutex
	resolved map[string]string // userID → validated challenge id to attach on resubmission
}

// NewService creates the login service. tokenTTLSeconds is the session
// lifetime requested from the token endpoint.
func NewService(client *broker.Client, sessions *Sessions, devices *DeviceRegistry, resolver *ChallengeResolver, clock util.Clock, tokenTTLSeconds int) *Service {
	return &Service{
		client:   client,
		sessions: sessions,
		devices:  devices,
		resolver: resolver,
		clock:    clock,
		tokenTTL: tokenTTLSeconds,
		log:      slog.Default().With("component", "login"),
		userMu:   make(map[string]*sync.Mutex),
		resolved: make(map[string]string),
	}
}

// Sessions exposes the session manager for components that need connection
// state.
func (s *Service) Sessions() *Sessions { return s.sessions }

// userLock returns the per-user mutex, creating it on first use.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.userMu[userID]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.userMu[userID] = m
	return m
}

func (s *Service) getResolved(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved[userID]
}

func (s *Service) setResolved(userID, challengeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if challengeID == "" {
		delete(s.resolved, userID)
	} else {
		s.resolved[userID] = challengeID
	}
}

// Status returns the user's connection state.
func (s *Service) Status(userID string) domain.ConnectionStatus {
	return s.sessions.Status(userID)
}

// Login runs one login flow. While the broker reports a device approval as
// still pending, the full credential submission is retried on a short fixed
// schedule; if it stays pending the caller gets a user-actionable
// device-verification result rather than a hard failure.
func (s *Service) Login(ctx context.Context, userID string, creds domain.Credentials) domain.LoginResult {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.loginLocked(ctx, userID, creds)
}

func (s *Service) loginLocked(ctx context.Context, userID string, creds domain.Credentials) domain.LoginResult {
	var last domain.LoginResult

	done, err := util.RetrySchedule(ctx, s.clock, deviceRetryDelays, func(attempt int) (bool, error) {
		last = s.submitOnce(ctx, userID, creds)
		// Only a still-pending device approval warrants another full
		// submission; every other outcome goes straight to the caller.
		return last.Status != domain.LoginDeviceVerification, nil
	})
	if err != nil {
		return domain.LoginResult{Status: domain.LoginFailed, Message: err.Error()}
	}
	if !done && last.Status == domain.LoginDeviceVerification {
		last.Message = approvalPending
	}
	return last
}

// ResetVerification discards the user's device identity and resubmits
// credentials from scratch, forcing the broker to issue a fresh
// verification challenge. Used when the original approval prompt expired or
// never arrived.
func (s *Service) ResetVerification(ctx context.Context, userID string, creds domain.Credentials) domain.LoginResult {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.devices.Reset(userID)
	s.setResolved(userID, "")
	return s.loginLocked(ctx, userID, creds)
}

// Logout revokes the upstream token best-effort and clears local session
// and device state. Local consistency wins: state is cleared even when
// revocation fails.
func (s *Service) Logout(ctx context.Context, userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if sess, ok, err := s.sessions.Get(userID); err == nil && ok {
		token := sess.RefreshToken
		if token == "" {
			token = sess.AccessToken
		}
		if err := s.client.RevokeToken(ctx, token); err != nil {
			s.log.Warn("token revocation failed", "user", userID, "err", err)
		}
	}

	s.devices.Clear(userID)
	s.setResolved(userID, "")
	return s.sessions.Clear(userID)
}

// submitOnce performs one credential submission and interprets the broker's
// response in priority order: verification workflow, mfa/challenge, error,
// tokens.
func (s *Service) submitOnce(ctx context.Context, userID string, creds domain.Credentials) domain.LoginResult {
	deviceToken := s.devices.GetOrCreate(userID)

	challengeID := creds.ChallengeID
	if challengeID == "" {
		challengeID = s.getResolved(userID)
	}

	// Answer an outstanding code challenge before resubmitting. An invalid
	// code short-circuits; validated and ambiguous outcomes both proceed,
	// with the mfa fields on the resubmission acting as the fallback
	// channel for the ambiguous case.
	if creds.MFACode != "" && creds.ChallengeID != "" {
		res, err := s.resolver.RespondCode(ctx, creds.ChallengeID, creds.MFACode)
		if err != nil {
			return domain.LoginResult{Status: domain.LoginFailed, Message: err.Error()}
		}
		if res.Outcome == CodeInvalid {
			return domain.LoginResult{
				Status:  domain.LoginMFARequired,
				Message: "Invalid verification code.",
				Challenge: &domain.Challenge{
					ID:                creds.ChallengeID,
					Kind:              challengeKind(res.Type),
					RemainingAttempts: res.RemainingAttempts,
				},
			}
		}
	}

	resp, err := s.client.RequestToken(ctx, broker.TokenRequest{
		Username:    creds.Email,
		Password:    creds.Password,
		MFACode:     creds.MFACode,
		ChallengeID: challengeID,
		DeviceToken: deviceToken,
		ExpiresIn:   s.tokenTTL,
	})
	if err != nil {
		s.log.Warn("token request failed", "user", userID, "err", err)
		return domain.LoginResult{Status: domain.LoginFailed, Message: err.Error()}
	}

	switch {
	case resp.VerificationWorkflow != nil:
		return s.resolveWorkflow(ctx, userID, deviceToken, resp.VerificationWorkflow.ID)

	case resp.Challenge != nil:
		return domain.LoginResult{
			Status:  domain.LoginMFARequired,
			Message: "Verification code required.",
			Challenge: &domain.Challenge{
				ID:                resp.Challenge.ID,
				Kind:              challengeKind(resp.Challenge.Type),
				RemainingAttempts: resp.Challenge.RemainingAttempts,
			},
		}

	case resp.MFARequired:
		return domain.LoginResult{
			Status:    domain.LoginMFARequired,
			Message:   "Verification code required.",
			Challenge: &domain.Challenge{Kind: challengeKind(resp.MFAType)},
		}

	case resp.ErrorMessage() != "":
		return domain.LoginResult{Status: domain.LoginFailed, Message: resp.ErrorMessage()}

	case resp.AccessToken != "":
		return s.finishLogin(ctx, userID, resp)

	default:
		return domain.LoginResult{Status: domain.LoginFailed, Message: genericLoginFailure}
	}
}

// resolveWorkflow drives the verification-workflow branch: initiate the
// machine, fetch its inquiry, and act on the nested challenge.
func (s *Service) resolveWorkflow(ctx context.Context, userID, deviceToken, workflowID string) domain.LoginResult {
	machineID, err := s.client.StartVerificationWorkflow(ctx, deviceToken, workflowID)
	if err != nil {
		return domain.LoginResult{Status: domain.LoginFailed, Message: err.Error()}
	}

	ch, err := s.client.GetInquiryChallenge(ctx, machineID)
	if err != nil {
		return domain.LoginResult{Status: domain.LoginFailed, Message: err.Error()}
	}

	kind := challengeKind(ch.Type)
	if kind != domain.ChallengePrompt {
		return domain.LoginResult{
			Status:  domain.LoginMFARequired,
			Message: "Verification code required.",
			Challenge: &domain.Challenge{
				ID:                ch.ID,
				Kind:              kind,
				RemainingAttempts: ch.RemainingAttempts,
			},
		}
	}

	outcome, err := s.resolver.ResolvePrompt(ctx, machineID, ch.ID)
	if err != nil {
		return domain.LoginResult{Status: domain.LoginFailed, Message: err.Error()}
	}
	if outcome == PromptPending {
		return domain.LoginResult{
			Status:    domain.LoginDeviceVerification,
			Message:   approvalPending,
			Challenge: &domain.Challenge{ID: ch.ID, Kind: domain.ChallengePrompt},
		}
	}

	// Approved. The resubmission that actually obtains tokens is reported
	// to the caller instead of performed silently, so the UI can show
	// progress; the resolved challenge id rides along on that next attempt.
	s.setResolved(userID, ch.ID)
	return domain.LoginResult{
		Status:  domain.LoginShouldRetry,
		Message: "Device verified. Retrying sign-in.",
	}
}

// finishLogin builds the session from a token grant, enriches it with the
// first account best-effort, and persists it.
func (s *Service) finishLogin(ctx context.Context, userID string, resp *broker.TokenResponse) domain.LoginResult {
	sess := domain.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    s.clock.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}

	if acct, err := s.client.FirstAccount(ctx, resp.AccessToken); err != nil {
		s.log.Warn("account enrichment failed", "user", userID, "err", err)
	} else {
		sess.AccountID = acct.AccountNumber
		sess.AccountURL = acct.URL
	}

	if err := s.sessions.Set(userID, sess); err != nil {
		return domain.LoginResult{Status: domain.LoginFailed, Message: "storing session: " + err.Error()}
	}

	s.devices.Clear(userID)
	s.setResolved(userID, "")
	s.log.Info("login succeeded", "user", userID, "expires_at", sess.ExpiresAt)
	return domain.LoginResult{Status: domain.LoginSuccess}
}

// challengeKind maps the broker's challenge/mfa type strings onto the
// domain's tagged kinds, defaulting unknown code types to sms.
func challengeKind(t string) domain.ChallengeKind {
	switch t {
	case "sms":
		return domain.ChallengeSMS
	case "email":
		return domain.ChallengeEmail
	case "app", "totp":
		return domain.ChallengeApp
	case "prompt":
		return domain.ChallengePrompt
	default:
		return domain.ChallengeSMS
	}
}
