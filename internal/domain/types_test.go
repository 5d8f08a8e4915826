package domain

import (
	"testing"
	"time"
)

func TestSessionValidAt(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	s := Session{AccessToken: "tok", ExpiresAt: now.Add(time.Hour)}
	if !s.ValidAt(now) {
		t.Error("session expiring in an hour should be valid now")
	}
	if s.ValidAt(now.Add(2 * time.Hour)) {
		t.Error("session should be invalid after its expiry")
	}
	if s.ValidAt(s.ExpiresAt) {
		t.Error("session should be invalid exactly at its expiry instant")
	}

	empty := Session{ExpiresAt: now.Add(time.Hour)}
	if empty.ValidAt(now) {
		t.Error("session without an access token should never be valid")
	}
}

func TestChallengeKindIsCode(t *testing.T) {
	for _, k := range []ChallengeKind{ChallengeSMS, ChallengeEmail, ChallengeApp} {
		if !k.IsCode() {
			t.Errorf("%s should be a code challenge", k)
		}
	}
	if ChallengePrompt.IsCode() {
		t.Error("prompt should not be a code challenge")
	}
}

func TestQuotePricePrefersExtendedHours(t *testing.T) {
	q := Quote{LastTradePrice: 100, ExtendedHoursPrice: 101.5}
	if got := q.Price(); got != 101.5 {
		t.Errorf("Price() = %v, want extended-hours 101.5", got)
	}

	q.ExtendedHoursPrice = 0
	if got := q.Price(); got != 100 {
		t.Errorf("Price() = %v, want last-trade 100", got)
	}
}
