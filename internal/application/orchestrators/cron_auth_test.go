package orchestrators

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"crmmail/internal/domain/delivery"
)

func TestVerifyCronToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}

	tests := []struct {
		name  string
		token string
		auth  CronAuth
		ok    bool
	}{
		{"plain match", "s3cret", CronAuth{Secret: "s3cret"}, true},
		{"plain mismatch", "wrong", CronAuth{Secret: "s3cret"}, false},
		{"empty token", "", CronAuth{Secret: "s3cret"}, false},
		{"nothing configured", "anything", CronAuth{}, false},
		{"hash match", "hashed-secret", CronAuth{SecretHash: string(hash)}, true},
		{"hash mismatch", "nope", CronAuth{SecretHash: string(hash)}, false},
		{"hash preferred over plain", "s3cret", CronAuth{Secret: "s3cret", SecretHash: string(hash)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyCronToken(tt.token, tt.auth)
			if tt.ok && err != nil {
				t.Errorf("VerifyCronToken() = %v, want nil", err)
			}
			if !tt.ok && delivery.KindOf(err) != delivery.KindUnauthorized {
				t.Errorf("VerifyCronToken() = %v, want unauthorized", err)
			}
		})
	}
}
