package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	xoauth2 "golang.org/x/oauth2"
	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/auth"
)

// UserInfoFunc resolves the Google account behind a freshly issued token.
type UserInfoFunc func(ctx context.Context, ts xoauth2.TokenSource) (id, email string, err error)

// GoogleUserInfo queries the oauth2/v2 userinfo endpoint.
func GoogleUserInfo(ctx context.Context, ts xoauth2.TokenSource) (string, string, error) {
	svc, err := oauth2.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return "", "", fmt.Errorf("failed to create oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("failed to get user info: %w", err)
	}
	return info.Id, info.Email, nil
}

// AuthHandler handles the login flow and session management.
type AuthHandler struct {
	authService *auth.AuthService
	jwtSecret   string
	frontendURL string
	devMode     bool
	userInfo    UserInfoFunc
	now         func() time.Time
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. A nil userInfo uses GoogleUserInfo.
func NewAuthHandler(s *auth.AuthService, jwtSecret, frontendURL string, devMode bool, userInfo UserInfoFunc) *AuthHandler {
	if userInfo == nil {
		userInfo = GoogleUserInfo
	}
	return &AuthHandler{
		authService: s,
		jwtSecret:   jwtSecret,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		devMode:     devMode,
		userInfo:    userInfo,
		now:         time.Now,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login issues a CSRF nonce, stores it in a cookie and redirects to Google.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	state, err := h.authService.NewState(ctx)
	if err != nil {
		return errorResponse(err)
	}
	return redirect(
		h.authService.GenerateAuthURL(state),
		setCookie(stateCookie, state, int(auth.StateTTL.Seconds()), h.devMode),
	), nil
}

// Callback completes the OAuth flow. Every failure sends the browser back to
// the login page.
func (h *AuthHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	clearState := setCookie(stateCookie, "", 0, h.devMode)
	fail := func(step string, err error) (events.APIGatewayProxyResponse, error) {
		h.log.Warn().Err(err).Str("step", step).Msg("oauth callback failed")
		return redirect(h.frontendURL+"/login?error=auth_failed", clearState), nil
	}

	if e := req.QueryStringParameters["error"]; e != "" {
		return fail("consent", fmt.Errorf("google returned %q", e))
	}
	if err := h.authService.VerifyState(ctx, cookie(req, stateCookie), req.QueryStringParameters["state"]); err != nil {
		return fail("state", err)
	}

	token, err := h.authService.ExchangeCode(ctx, req.QueryStringParameters["code"])
	if err != nil {
		return fail("exchange", err)
	}

	userID, email, err := h.userInfo(ctx, h.authService.Config().TokenSource(ctx, token))
	if err != nil {
		return fail("userinfo", err)
	}
	if err := h.authService.SaveToken(ctx, userID, email, token); err != nil {
		return fail("save_token", err)
	}

	signed, err := SignSession(h.jwtSecret, userID, email, h.now())
	if err != nil {
		return fail("sign", err)
	}

	h.log.Info().Str("user_id", userID).Msg("user signed in")
	return redirect(
		h.frontendURL+"/dashboard",
		setCookie(sessionCookie, signed, int(sessionTTL.Seconds()), h.devMode),
		clearState,
	), nil
}

// Logout deletes the stored token (when the session is valid) and clears cookies.
func (h *AuthHandler) Logout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if userID, err := GetUserID(req, h.jwtSecret); err == nil {
		if err := h.authService.DeleteToken(ctx, userID); err != nil {
			h.log.Warn().Err(err).Str("user_id", userID).Msg("failed to delete token on logout")
		}
	}

	resp, err := jsonResponse(http.StatusOK, map[string]bool{"success": true})
	resp.MultiValueHeaders = map[string][]string{
		"Set-Cookie": {
			setCookie(sessionCookie, "", 0, h.devMode),
			setCookie(stateCookie, "", 0, h.devMode),
		},
	}
	return resp, err
}

// Refresh forces a Google token refresh for the signed-in user.
func (h *AuthHandler) Refresh(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(err)
	}
	tok, err := h.authService.Refresh(ctx, userID)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, map[string]time.Time{"access_token_expiry": tok.Expiry})
}
