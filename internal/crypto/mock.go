package crypto

import (
	"context"
	"strings"
)

// PlainSealer implements Sealer for local development (no KMS required).
// Values are tagged with their scope but not encrypted.
type PlainSealer struct{}

func NewPlainSealer() *PlainSealer {
	return &PlainSealer{}
}

func prefix(scope string) string {
	return "mock:" + scope + ":"
}

func (PlainSealer) Seal(_ context.Context, scope, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return prefix(scope) + plaintext, nil
}

func (PlainSealer) Open(_ context.Context, scope, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	rest, ok := strings.CutPrefix(ciphertext, prefix(scope))
	if !ok {
		return "", ErrScopeMismatch
	}
	return rest, nil
}
