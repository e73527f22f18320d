package app

import (
	"testing"
	"time"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := TokenConfig{Secret: []byte("secret")}
	token, err := SignServiceToken(cfg, "chat-gateway", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	subject, err := VerifyServiceToken(cfg, token)
	if err != nil {
		t.Fatal(err)
	}
	if subject != "chat-gateway" {
		t.Fatalf("subject = %q", subject)
	}
}

func TestVerifyServiceTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := SignServiceToken(TokenConfig{Secret: []byte("one")}, "svc", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := VerifyServiceToken(TokenConfig{Secret: []byte("two")}, token); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestVerifyServiceTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	signCfg := TokenConfig{Secret: []byte("secret"), Now: func() time.Time { return issued }}
	token, err := SignServiceToken(signCfg, "svc", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	verifyCfg := TokenConfig{Secret: []byte("secret"), Now: func() time.Time { return issued.Add(2 * time.Minute) }}
	if _, err := VerifyServiceToken(verifyCfg, token); err == nil {
		t.Fatal("expected expiry rejection")
	}
}

func TestVerifyServiceTokenRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := VerifyServiceToken(TokenConfig{Secret: []byte("secret")}, " "); err == nil {
		t.Fatal("expected empty token rejection")
	}
}
