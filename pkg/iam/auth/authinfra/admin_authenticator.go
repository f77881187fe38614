package authinfra

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// BcryptAdminAuthenticator checks the single configured operator account.
type BcryptAdminAuthenticator struct {
	username string
	hash     []byte
}

func NewBcryptAdminAuthenticator(username, passwordHash string) *BcryptAdminAuthenticator {
	return &BcryptAdminAuthenticator{username: username, hash: []byte(passwordHash)}
}

// Authenticate runs the bcrypt comparison even for a wrong username so both
// failures take similar time. An unconfigured hash rejects everything.
func (a *BcryptAdminAuthenticator) Authenticate(username, password string) bool {
	if len(a.hash) == 0 || a.username == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	return userOK && passOK
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
