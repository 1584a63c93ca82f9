package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/agrigenai/agrigen-backend/pkg/config"
	"github.com/google/uuid"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:     "secret",
		Issuer:     "agrigen",
		TTLMinutes: 30,
	}
}

func TestMintAndParseSessionToken(t *testing.T) {
	cfg := testSessionConfig()
	now := time.Now().UTC()
	sessionID := uuid.New()

	token, err := MintSessionToken(cfg, now, sessionID)
	if err != nil {
		t.Fatalf("mint session token: %v", err)
	}

	claims, err := ParseSessionToken(cfg, token)
	if err != nil {
		t.Fatalf("parse session token: %v", err)
	}

	if claims.SessionID != sessionID {
		t.Fatalf("expected sid %s, got %s", sessionID, claims.SessionID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(cfg.TTL())
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseSessionTokenWrongSecret(t *testing.T) {
	cfg := testSessionConfig()
	token, err := MintSessionToken(cfg, time.Now(), uuid.New())
	if err != nil {
		t.Fatalf("mint session token: %v", err)
	}

	other := cfg
	other.Secret = "other-secret"
	if _, err := ParseSessionToken(other, token); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseSessionTokenWrongIssuer(t *testing.T) {
	cfg := testSessionConfig()
	token, err := MintSessionToken(cfg, time.Now(), uuid.New())
	if err != nil {
		t.Fatalf("mint session token: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseSessionToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseSessionTokenExpired(t *testing.T) {
	cfg := testSessionConfig()
	token, err := MintSessionToken(cfg, time.Now().Add(-time.Hour), uuid.New())
	if err != nil {
		t.Fatalf("mint session token: %v", err)
	}

	_, err = ParseSessionToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintSessionTokenRequiresInputs(t *testing.T) {
	cfg := testSessionConfig()
	if _, err := MintSessionToken(cfg, time.Now(), uuid.Nil); err == nil {
		t.Fatal("expected nil session id error")
	}

	noSecret := cfg
	noSecret.Secret = ""
	if _, err := MintSessionToken(noSecret, time.Now(), uuid.New()); err == nil {
		t.Fatal("expected missing secret error")
	}

	noTTL := cfg
	noTTL.TTLMinutes = 0
	if _, err := MintSessionToken(noTTL, time.Now(), uuid.New()); err == nil {
		t.Fatal("expected non-positive ttl error")
	}
}
