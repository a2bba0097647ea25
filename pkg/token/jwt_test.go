package token

import (
	"testing"
)

func TestGenerateAndVerifyTokenPair(t *testing.T) {
	m := NewJWTManager("test-secret", 1, 7)

	access, refresh, err := m.GenerateTokenPair(42, "doctor_zhang", "USER")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}
	if access == "" || refresh == "" || access == refresh {
		t.Fatalf("token pair looks wrong: access=%q refresh=%q", access, refresh)
	}

	claims, err := m.VerifyToken(access)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "doctor_zhang" || claims.Role != "USER" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", 1, 7)
	verifier := NewJWTManager("secret-b", 1, 7)

	access, _, err := issuer.GenerateTokenPair(1, "u", "USER")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.VerifyToken(access); err == nil {
		t.Fatal("token signed with different secret was accepted")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager("test-secret", 0, 0) // 有效期为零，签发即过期

	access, _, err := m.GenerateTokenPair(1, "u", "USER")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.VerifyToken(access); err == nil {
		t.Fatal("expired token was accepted")
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", 1, 7)
	if _, err := m.VerifyToken("not.a.jwt"); err == nil {
		t.Fatal("garbage token was accepted")
	}
}

func TestGenerateRandomString(t *testing.T) {
	a := GenerateRandomString(16)
	b := GenerateRandomString(16)
	if len(a) != 32 || len(b) != 32 {
		t.Errorf("lengths = %d, %d, want 32 hex chars", len(a), len(b))
	}
	if a == b {
		t.Error("two random strings are identical")
	}
}
