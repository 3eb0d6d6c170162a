package auth

import (
	"strings"
	"testing"
)

func TestSigner_TokenRoundTrip(t *testing.T) {
	s := NewSigner([]byte("process-secret"))
	tok := s.Token("happy-turtle")

	if err := s.Verify("happy-turtle", tok); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

func TestSigner_VerifyRejectsWrongName(t *testing.T) {
	s := NewSigner([]byte("process-secret"))
	tok := s.Token("happy-turtle")

	if err := s.Verify("other-session", tok); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestSigner_VerifyRejectsMalformedToken(t *testing.T) {
	s := NewSigner([]byte("process-secret"))

	if err := s.Verify("happy-turtle", "not-base64!!"); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestSigner_DifferentSecretsProduceDifferentTokens(t *testing.T) {
	a := NewSigner([]byte("secret-a"))
	b := NewSigner([]byte("secret-b"))

	if a.Token("s") == b.Token("s") {
		t.Error("expected different secrets to produce different tokens")
	}
}

func TestNewRandomSigner_ProducesUsableSigner(t *testing.T) {
	s, err := NewRandomSigner()
	if err != nil {
		t.Fatalf("NewRandomSigner() error = %v", err)
	}
	tok := s.Token("name")
	if strings.TrimSpace(tok) == "" {
		t.Error("Token() returned empty string")
	}
	if err := s.Verify("name", tok); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

func TestVerifyWitness(t *testing.T) {
	stored := []byte{1, 2, 3, 4}

	if !VerifyWitness([]byte{1, 2, 3, 4}, stored) {
		t.Error("VerifyWitness() = false for matching bytes, want true")
	}
	if VerifyWitness([]byte{1, 2, 3, 5}, stored) {
		t.Error("VerifyWitness() = true for mismatched bytes, want false")
	}
	if VerifyWitness([]byte{1, 2, 3}, stored) {
		t.Error("VerifyWitness() = true for mismatched length, want false")
	}
}
