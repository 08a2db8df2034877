package helpers

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced on signup. bcrypt ignores bytes past 72.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

// PasswordCost is lowered by tests that create many users.
var PasswordCost = bcrypt.DefaultCost

var ErrPasswordLength = errors.New("password must be between 6 and 72 bytes")

// HashPassword hashes a signup password with bcrypt.
func HashPassword(plain string) (string, error) {
	if len(plain) < MinPasswordLength || len(plain) > MaxPasswordBytes {
		return "", ErrPasswordLength
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword reports whether plain matches a stored hash.
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
