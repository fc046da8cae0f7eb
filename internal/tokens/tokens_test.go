package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret-32-bytes-should-be-long-enough"

func TestGenerateEditorToken_ValidAndClaims(t *testing.T) {
	tokenStr, err := GenerateEditorToken(secret, "editor-123", 2*time.Minute)
	if err != nil {
		t.Fatalf("GenerateEditorToken error: %v", err)
	}

	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if !parsed.Valid {
		t.Fatalf("token should be valid")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("claims type assertion failed")
	}
	if claims["sub"] != "editor-123" {
		t.Fatalf("unexpected sub claim: got=%v", claims["sub"])
	}
	if _, ok := claims["exp"]; !ok {
		t.Fatalf("exp claim missing")
	}
}

func TestGenerateEditorToken_NoExpiry(t *testing.T) {
	tokenStr, err := GenerateEditorToken(secret, "ops", 0)
	if err != nil {
		t.Fatalf("GenerateEditorToken error: %v", err)
	}
	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if _, ok := parsed.Claims.(jwt.MapClaims)["exp"]; ok {
		t.Fatalf("exp claim should be absent for ttl 0")
	}
}

func TestGenerateEditorToken_Errors(t *testing.T) {
	if _, err := GenerateEditorToken(secret, "", time.Minute); err == nil {
		t.Fatalf("expected error for empty subject")
	}
	if _, err := GenerateEditorToken("", "ops", time.Minute); err == nil || !strings.Contains(err.Error(), "secret") {
		t.Fatalf("expected secret error, got %v", err)
	}
}
