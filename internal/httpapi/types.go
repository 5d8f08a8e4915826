// Package httpapi exposes the auth and portfolio services over a local HTTP
// REST API, serving JSON to the frontend.
package httpapi

import "hoodview/internal/domain"

// LoginRequest carries one login attempt from the frontend.
type LoginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	MFACode     string `json:"mfa_code,omitempty"`
	ChallengeID string `json:"challenge_id,omitempty"`
}

// ChallengeJSON describes an outstanding challenge to the frontend.
type ChallengeJSON struct {
	ID                string `json:"id,omitempty"`
	Kind              string `json:"kind"`
	RemainingAttempts int    `json:"remaining_attempts,omitempty"`
}

// LoginResponse is the outcome of a login or reset-verification call.
type LoginResponse struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Challenge *ChallengeJSON `json:"challenge,omitempty"`
}

// TradesResponse lists today's executed option trades.
type TradesResponse struct {
	Date   string               `json:"date"`
	Trades []domain.OptionTrade `json:"trades"`
}

// convertLoginResult converts a domain login result to JSON.
func convertLoginResult(res domain.LoginResult) LoginResponse {
	out := LoginResponse{
		Status:  string(res.Status),
		Message: res.Message,
	}
	if res.Challenge != nil {
		out.Challenge = &ChallengeJSON{
			ID:                res.Challenge.ID,
			Kind:              string(res.Challenge.Kind),
			RemainingAttempts: res.Challenge.RemainingAttempts,
		}
	}
	return out
}
