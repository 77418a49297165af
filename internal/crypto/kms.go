// Package crypto seals OAuth tokens before they are persisted.
package crypto

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// ErrScopeMismatch is returned when a ciphertext is opened under a scope it
// was not sealed for.
var ErrScopeMismatch = errors.New("ciphertext sealed for a different scope")

// Sealer encrypts and decrypts short secrets bound to a scope, typically the
// owning user id. Opening under another scope fails.
type Sealer interface {
	Seal(ctx context.Context, scope, plaintext string) (string, error)
	Open(ctx context.Context, scope, ciphertext string) (string, error)
}

// KMSAPI is the subset of the KMS client used by KMSSealer.
type KMSAPI interface {
	Encrypt(ctx context.Context, in *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, in *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSSealer implements Sealer using AWS KMS with the scope as encryption context.
type KMSSealer struct {
	client KMSAPI
	keyID  string
}

// NewKMSSealer creates a KMSSealer.
// keyID can be a key ID, key ARN, or alias name (e.g., "alias/ytautoreply-token-key").
func NewKMSSealer(client KMSAPI, keyID string) *KMSSealer {
	return &KMSSealer{client: client, keyID: keyID}
}

func encryptionContext(scope string) map[string]string {
	return map[string]string{"scope": scope}
}

// Seal returns the base64 encoded ciphertext.
func (s *KMSSealer) Seal(ctx context.Context, scope, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	result, err := s.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(s.keyID),
		Plaintext:         []byte(plaintext),
		EncryptionContext: encryptionContext(scope),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encrypt data: %w", err)
	}
	return base64.StdEncoding.EncodeToString(result.CiphertextBlob), nil
}

func (s *KMSSealer) Open(ctx context.Context, scope, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	result, err := s.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    decoded,
		KeyId:             aws.String(s.keyID),
		EncryptionContext: encryptionContext(scope),
	})
	if err != nil {
		return "", fmt.Errorf("failed to decrypt data: %w", err)
	}
	return string(result.Plaintext), nil
}
