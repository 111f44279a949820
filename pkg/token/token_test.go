package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndSubject(t *testing.T) {
	v := NewValidator(Config{SecretKey: "test-secret"})

	tok, err := v.Sign("citizen-42", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sub, err := v.Subject(tok)
	if err != nil {
		t.Fatalf("Subject: %v", err)
	}
	if sub != "citizen-42" {
		t.Errorf("subject = %q", sub)
	}
}

func TestSubjectRejects(t *testing.T) {
	v := NewValidator(Config{SecretKey: "test-secret"})

	expired := func() string {
		tok, err := v.Sign("citizen-42", -time.Minute)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		return tok
	}

	wrongSecret := func() string {
		tok, err := NewValidator(Config{SecretKey: "other-secret"}).Sign("citizen-42", time.Hour)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		return tok
	}

	noSubject := func() string {
		claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}

	unsigned := func() string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "citizen-42"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"empty", ""},
		{"expired", expired()},
		{"wrong secret", wrongSecret()},
		{"missing subject", noSubject()},
		{"alg none", unsigned()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Subject(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
