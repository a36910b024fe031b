package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
)

// HashPassword hashes a plaintext credential for storage.
func HashPassword(plain string) (string, error) {
	if len(plain) < 6 {
		return "", apperr.New(apperr.KindValidation, "password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "hash password")
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext credential against its stored hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
