package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/oauth2"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/auth"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/crypto"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/handler"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

func newAuthFixture(t *testing.T, userInfo handler.UserInfoFunc) (*handler.AuthHandler, *auth.AuthService) {
	t.Helper()
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokenSrv.Close)

	cfg := auth.NewOAuthConfig("client-id", "client-secret", "http://localhost:8080/auth/callback")
	cfg.Endpoint = oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenSrv.URL, AuthStyle: oauth2.AuthStyleInParams}
	svc := auth.NewAuthService(cfg, store.NewMemory(), crypto.NewPlainSealer())
	return handler.NewAuthHandler(svc, testJWTSecret, "http://localhost:3000", true, userInfo), svc
}

func fixedUser(ctx context.Context, _ oauth2.TokenSource) (string, string, error) {
	return testUserID, "me@example.com", nil
}

func stateFromLogin(t *testing.T, resp events.APIGatewayProxyResponse) string {
	t.Helper()
	loc, err := url.Parse(resp.Headers["Location"])
	if err != nil {
		t.Fatalf("bad Location: %v", err)
	}
	return loc.Query().Get("state")
}

func TestAuthHandler_Login(t *testing.T) {
	h, _ := newAuthFixture(t, fixedUser)

	resp, err := h.Login(context.Background(), makeRequest("GET", "/auth/login", ""))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("Expected 302, got %d", resp.StatusCode)
	}
	state := stateFromLogin(t, resp)
	if state == "" {
		t.Fatal("Expected state in redirect URL")
	}
	cookies := resp.MultiValueHeaders["Set-Cookie"]
	if len(cookies) != 1 || !strings.HasPrefix(cookies[0], "oauth_state="+state+";") {
		t.Errorf("Expected state cookie, got %v", cookies)
	}
}

func TestAuthHandler_CallbackSuccess(t *testing.T) {
	h, svc := newAuthFixture(t, fixedUser)
	ctx := context.Background()

	login, _ := h.Login(ctx, makeRequest("GET", "/auth/login", ""))
	state := stateFromLogin(t, login)

	req := events.APIGatewayProxyRequest{
		Headers:               map[string]string{"Cookie": "oauth_state=" + state},
		QueryStringParameters: map[string]string{"state": state, "code": "auth-code"},
	}
	resp, err := h.Callback(ctx, req)
	if err != nil {
		t.Fatalf("Callback failed: %v", err)
	}
	if resp.StatusCode != http.StatusFound || resp.Headers["Location"] != "http://localhost:3000/dashboard" {
		t.Fatalf("Expected redirect to dashboard, got %d %s", resp.StatusCode, resp.Headers["Location"])
	}

	var session string
	for _, c := range resp.MultiValueHeaders["Set-Cookie"] {
		if v, ok := strings.CutPrefix(c, "session_token="); ok {
			session = v[:strings.Index(v, ";")]
		}
	}
	if session == "" {
		t.Fatal("Expected session cookie")
	}
	userID, err := handler.GetUserID(events.APIGatewayProxyRequest{Headers: map[string]string{"Cookie": "session_token=" + session}}, testJWTSecret)
	if err != nil || userID != testUserID {
		t.Errorf("Expected session for %s, got %s (%v)", testUserID, userID, err)
	}

	tok, err := svc.Token(ctx, testUserID)
	if err != nil {
		t.Fatalf("Token not saved: %v", err)
	}
	if tok.RefreshToken != "refresh" {
		t.Errorf("Expected refresh token 'refresh', got '%s'", tok.RefreshToken)
	}
}

func TestAuthHandler_CallbackFailures(t *testing.T) {
	ctx := context.Background()
	const failURL = "http://localhost:3000/login?error=auth_failed"

	t.Run("state mismatch", func(t *testing.T) {
		h, _ := newAuthFixture(t, fixedUser)
		login, _ := h.Login(ctx, makeRequest("GET", "/auth/login", ""))
		state := stateFromLogin(t, login)

		resp, _ := h.Callback(ctx, events.APIGatewayProxyRequest{
			Headers:               map[string]string{"Cookie": "oauth_state=forged"},
			QueryStringParameters: map[string]string{"state": state, "code": "c"},
		})
		if resp.Headers["Location"] != failURL {
			t.Errorf("Expected failure redirect, got %s", resp.Headers["Location"])
		}
	})

	t.Run("consent denied", func(t *testing.T) {
		h, _ := newAuthFixture(t, fixedUser)
		resp, _ := h.Callback(ctx, events.APIGatewayProxyRequest{
			QueryStringParameters: map[string]string{"error": "access_denied"},
		})
		if resp.Headers["Location"] != failURL {
			t.Errorf("Expected failure redirect, got %s", resp.Headers["Location"])
		}
	})

	t.Run("userinfo error", func(t *testing.T) {
		h, _ := newAuthFixture(t, func(context.Context, oauth2.TokenSource) (string, string, error) {
			return "", "", errors.New("userinfo down")
		})
		login, _ := h.Login(ctx, makeRequest("GET", "/auth/login", ""))
		state := stateFromLogin(t, login)
		resp, _ := h.Callback(ctx, events.APIGatewayProxyRequest{
			Headers:               map[string]string{"Cookie": "oauth_state=" + state},
			QueryStringParameters: map[string]string{"state": state, "code": "c"},
		})
		if resp.Headers["Location"] != failURL {
			t.Errorf("Expected failure redirect, got %s", resp.Headers["Location"])
		}
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	h, svc := newAuthFixture(t, fixedUser)
	ctx := context.Background()
	svc.SaveToken(ctx, testUserID, "", &oauth2.Token{AccessToken: "a", RefreshToken: "r"})

	resp, err := h.Logout(ctx, makeRequest("POST", "/auth/logout", ""))
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	for _, c := range resp.MultiValueHeaders["Set-Cookie"] {
		if !strings.Contains(c, "Max-Age=0") {
			t.Errorf("Expected cleared cookie, got %s", c)
		}
	}
	if _, err := svc.Token(ctx, testUserID); err == nil {
		t.Error("Expected token to be deleted on logout")
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	h, svc := newAuthFixture(t, fixedUser)
	ctx := context.Background()

	resp, _ := h.Refresh(ctx, makeRequest("POST", "/auth/refresh", ""))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without stored token, got %d", resp.StatusCode)
	}

	svc.SaveToken(ctx, testUserID, "", &oauth2.Token{AccessToken: "old", RefreshToken: "r"})
	resp, err := h.Refresh(ctx, makeRequest("POST", "/auth/refresh", ""))
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Body, "access_token_expiry") {
		t.Errorf("Unexpected response %d %s", resp.StatusCode, resp.Body)
	}
}
