package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	jig, codeID := uuid.New(), uuid.New()

	signed, minted, err := svc.Mint(jig, codeID, 4217)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	got, err := svc.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Jig != jig || got.CodeID != codeID || got.CodeIndex != 4217 || got.Nonce != minted.Nonce {
		t.Errorf("claims changed across round trip: %+v", got)
	}
}

func TestNoncesDiffer(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	jig := uuid.New()
	_, a, _ := svc.Mint(jig, uuid.New(), 1)
	_, b, _ := svc.Mint(jig, uuid.New(), 1)
	if a.Nonce == b.Nonce {
		t.Error("two tokens for one code shared a nonce")
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	signed, _, _ := svc.Mint(uuid.New(), uuid.New(), 7)

	bytes := []byte(signed)
	bytes[len(bytes)/2] ^= 0x01
	if _, err := svc.Verify(string(bytes)); err != ErrBadToken {
		t.Errorf("tampered token: got %v, want ErrBadToken", err)
	}
	if _, err := svc.Verify("not-a-token"); err != ErrBadToken {
		t.Errorf("garbage token: got %v, want ErrBadToken", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	signed, _, _ := NewService("secret-a", time.Hour).Mint(uuid.New(), uuid.New(), 7)
	if _, err := NewService("secret-b", time.Hour).Verify(signed); err != ErrBadToken {
		t.Errorf("wrong secret: got %v, want ErrBadToken", err)
	}
}

func TestExpiryHonoursInjectedClock(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	svc := NewService("test-secret", 8*time.Hour).WithClock(func() time.Time { return now })

	signed, _, err := svc.Mint(uuid.New(), uuid.New(), 7)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	now = base.Add(7 * time.Hour)
	if _, err := svc.Verify(signed); err != nil {
		t.Errorf("inside ttl: %v", err)
	}

	now = base.Add(9 * time.Hour)
	if _, err := svc.Verify(signed); err != ErrTokenExpired {
		t.Errorf("past ttl: got %v, want ErrTokenExpired", err)
	}
}
