package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/quizhub/quiz-api/internal/domain"
)

// MaxBytes is the longest input bcrypt will hash. The limit is in bytes,
// so a multi-byte password hits it before 72 characters.
const MaxBytes = 72

// Hash returns the bcrypt hash of pw. An over-long password is a client
// error and wraps domain.ErrBadRequest.
func Hash(pw []byte, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(pw, cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("password longer than %d bytes: %w", MaxBytes, domain.ErrBadRequest)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
