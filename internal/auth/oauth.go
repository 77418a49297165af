package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/crypto"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

// StateTTL bounds how long a login nonce stays valid.
const StateTTL = 10 * time.Minute

// Scopes requested at consent.
var Scopes = []string{
	"https://www.googleapis.com/auth/youtube.readonly",
	"https://www.googleapis.com/auth/youtube.force-ssl",
	"https://www.googleapis.com/auth/youtube",
	"https://www.googleapis.com/auth/userinfo.email",
}

// NewOAuthConfig builds the Google OAuth2 config for the dashboard.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// AuthService handles OAuth2 authentication flows and token management.
// Tokens are sealed per user before they reach the store.
type AuthService struct {
	oauthConfig *oauth2.Config
	store       store.Store
	sealer      crypto.Sealer
	now         func() time.Time
	log         zerolog.Logger
}

// NewAuthService creates a new AuthService.
// The oauthConfig should be constructed by the caller (see NewOAuthConfig).
func NewAuthService(oauthConfig *oauth2.Config, s store.Store, sealer crypto.Sealer) *AuthService {
	return &AuthService{
		oauthConfig: oauthConfig,
		store:       s,
		sealer:      sealer,
		now:         time.Now,
		log:         log.With().Str("component", "auth").Logger(),
	}
}

// Config returns the OAuth2 config.
func (s *AuthService) Config() *oauth2.Config {
	return s.oauthConfig
}

// NewState issues and persists a fresh CSRF nonce.
func (s *AuthService) NewState(ctx context.Context) (string, error) {
	nonce := uuid.NewString()
	if err := store.SetJSON(ctx, s.store, store.OAuthStateKey(nonce), model.OAuthState{Nonce: nonce, CreatedAt: s.now()}); err != nil {
		return "", fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nonce, nil
}

// GenerateAuthURL returns the URL to redirect the user to for Google login.
func (s *AuthService) GenerateAuthURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// VerifyState checks the state returned by Google against the nonce issued
// to this browser. The stored nonce is consumed whatever the outcome.
func (s *AuthService) VerifyState(ctx context.Context, cookieState, queryState string) error {
	if queryState != "" {
		defer func() {
			if err := s.store.Delete(context.WithoutCancel(ctx), store.OAuthStateKey(queryState)); err != nil {
				s.log.Warn().Err(err).Msg("failed to delete oauth state")
			}
		}()
	}
	if cookieState == "" || queryState == "" || cookieState != queryState {
		return fmt.Errorf("oauth state mismatch: %w", model.ErrAuthentication)
	}

	var st model.OAuthState
	if err := store.GetJSON(ctx, s.store, store.OAuthStateKey(queryState), &st); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("unknown oauth state: %w", model.ErrAuthentication)
		}
		return err
	}
	if s.now().Sub(st.CreatedAt) > StateTTL {
		return fmt.Errorf("oauth state expired: %w", model.ErrAuthentication)
	}
	return nil
}

// ExchangeCode exchanges the authorization code for an access token.
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("missing authorization code: %w", model.ErrAuthentication)
	}
	tok, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %v: %w", err, model.ErrAuthentication)
	}
	return tok, nil
}

// SaveToken seals and stores the token. Google omits the refresh token on
// re-consent, in which case the previously stored one is kept.
func (s *AuthService) SaveToken(ctx context.Context, userID, email string, token *oauth2.Token) error {
	encAccess, err := s.sealer.Seal(ctx, userID, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encRefresh, err := s.sealer.Seal(ctx, userID, token.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	return store.UpdateJSON(ctx, s.store, store.TokenKey(userID), func(ut *model.UserToken, exists bool) (bool, error) {
		if encRefresh == "" && exists {
			encRefresh = ut.EncryptedRefreshToken
		}
		if email == "" && exists {
			email = ut.Email
		}
		*ut = model.UserToken{
			UserID:                userID,
			EncryptedAccessToken:  encAccess,
			EncryptedRefreshToken: encRefresh,
			TokenType:             token.TokenType,
			Expiry:                token.Expiry,
			Email:                 email,
			UpdatedAt:             s.now(),
		}
		return true, nil
	})
}

// GetUserToken retrieves the stored (sealed) token record.
func (s *AuthService) GetUserToken(ctx context.Context, userID string) (*model.UserToken, error) {
	var ut model.UserToken
	if err := store.GetJSON(ctx, s.store, store.TokenKey(userID), &ut); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no token for user: %w", model.ErrAuthentication)
		}
		return nil, fmt.Errorf("failed to load user token: %w", err)
	}
	return &ut, nil
}

// Token returns the user's decrypted token.
func (s *AuthService) Token(ctx context.Context, userID string) (*oauth2.Token, error) {
	ut, err := s.GetUserToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	access, err := s.sealer.Open(ctx, userID, ut.EncryptedAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	refresh, err := s.sealer.Open(ctx, userID, ut.EncryptedRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    ut.TokenType,
		Expiry:       ut.Expiry,
	}, nil
}

// Client returns an authenticated http.Client for the user. Tokens refreshed
// by the client are written back to the store.
func (s *AuthService) Client(ctx context.Context, userID string) (*http.Client, error) {
	tok, err := s.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	src := &persistingSource{
		base:   s.oauthConfig.TokenSource(ctx, tok),
		svc:    s,
		ctx:    context.WithoutCancel(ctx),
		userID: userID,
		last:   tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// Refresh forces a token refresh and returns the new token.
func (s *AuthService) Refresh(ctx context.Context, userID string) (*oauth2.Token, error) {
	tok, err := s.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token stored: %w", model.ErrAuthentication)
	}
	stale := *tok
	stale.Expiry = s.now().Add(-time.Hour)

	fresh, err := s.oauthConfig.TokenSource(ctx, &stale).Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %v: %w", err, model.ErrAuthentication)
	}
	if err := s.SaveToken(ctx, userID, "", fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// DeleteToken removes the user's stored token.
func (s *AuthService) DeleteToken(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, store.TokenKey(userID)); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

type persistingSource struct {
	base   oauth2.TokenSource
	svc    *AuthService
	ctx    context.Context
	userID string

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.svc.SaveToken(p.ctx, p.userID, "", tok); err != nil {
			p.svc.log.Warn().Err(err).Str("user_id", p.userID).Msg("failed to persist refreshed token")
		} else {
			p.last = tok.AccessToken
		}
	}
	return tok, nil
}
