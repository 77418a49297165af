// Package secret resolves the application's credentials from SSM Parameter
// Store in the cloud or from environment variables locally.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Parameter names. Locally each maps to an environment variable named after
// its last path segment (see EnvResolver).
const (
	ParamGoogleClientSecret = "/ytautoreply/google-client-secret"
	ParamYouTubeAPIKey      = "/ytautoreply/youtube-api-key"
	ParamGeminiAPIKey       = "/ytautoreply/gemini-api-key"
	ParamJWTSecret          = "/ytautoreply/jwt-secret"
)

// SSMClient is the subset of *ssm.Client methods used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver retrieves secret values by name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

type SSMResolver struct {
	client SSMClient
}

func NewSSMResolver(client SSMClient) Resolver {
	return &SSMResolver{client: client}
}

// GetSecret retrieves a SecureString parameter with decryption.
func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// EnvResolver reads secrets from environment variables, converting
// "/ytautoreply/gemini-api-key" to "GEMINI_API_KEY".
type EnvResolver struct{}

func NewEnvResolver() Resolver {
	return &EnvResolver{}
}

func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := paramNameToEnvVar(name)
	val := os.Getenv(envName)
	if val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q) is not set", envName, name)
	}
	return val, nil
}

func paramNameToEnvVar(name string) string {
	parts := strings.Split(name, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}

// Spec names one secret to load into Dest. Optional secrets that cannot be
// resolved leave Dest unchanged.
type Spec struct {
	Param    string
	Dest     *string
	Required bool
}

// Load resolves every spec and reports all missing required secrets at once.
func Load(ctx context.Context, r Resolver, specs ...Spec) error {
	var errs []error
	for _, s := range specs {
		val, err := r.GetSecret(ctx, s.Param)
		if err != nil {
			if s.Required {
				errs = append(errs, err)
			}
			continue
		}
		*s.Dest = val
	}
	return errors.Join(errs...)
}
