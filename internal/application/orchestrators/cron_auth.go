package orchestrators

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"crmmail/internal/domain/delivery"
)

// CronAuth holds the shared secret for the due-dispatch trigger.
type CronAuth struct {
	Secret     string // plain token
	SecretHash string // bcrypt hash of the token; preferred when set
}

// Configured reports whether any secret is set.
func (a CronAuth) Configured() bool {
	return a.Secret != "" || a.SecretHash != ""
}

// VerifyCronToken checks a presented token.
// PRE: none
// POST: Returns nil only when a secret is configured and token matches it;
// otherwise an Unauthorized delivery.Error
func VerifyCronToken(token string, auth CronAuth) error {
	if token == "" || !auth.Configured() {
		return delivery.Unauthorized()
	}
	if auth.SecretHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(auth.SecretHash), []byte(token)) != nil {
			return delivery.Unauthorized()
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(auth.Secret)) != 1 {
		return delivery.Unauthorized()
	}
	return nil
}
