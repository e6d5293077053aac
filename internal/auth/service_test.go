package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestIssueParseRoundTrip(t *testing.T) {
	svc := NewAuthService("test-secret")
	sub := uuid.New().String()

	signed, err := svc.IssueJWT(sub, "author")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Sub != sub || claims.Role != "author" {
		t.Errorf("claims changed across round trip: %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, err := NewAuthService("secret-a").IssueJWT(uuid.New().String(), "author")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewAuthService("secret-b").Parse(signed); err == nil {
		t.Error("token signed with another secret parsed cleanly")
	}
}

func TestParseRejectsUnsignedAlg(t *testing.T) {
	svc := NewAuthService("test-secret")
	claims := &Claims{Sub: uuid.New().String(), Role: "admin"}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Parse(unsigned); err == nil {
		t.Error("alg=none token parsed cleanly")
	}
}
