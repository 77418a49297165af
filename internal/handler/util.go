package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
)

const (
	sessionCookie = "session_token"
	stateCookie   = "oauth_state"
	sessionTTL    = 24 * time.Hour
)

// header looks a request header up case-insensitively.
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// cookie returns the value of the named cookie, or "".
func cookie(req events.APIGatewayProxyRequest, name string) string {
	for _, part := range strings.Split(header(req, "Cookie"), ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, name+"="); ok {
			return v
		}
	}
	return ""
}

// GetUserID extracts the user ID from the Authorization header or session cookie.
func GetUserID(req events.APIGatewayProxyRequest, jwtSecret string) (string, error) {
	tokenString := ""
	if authHeader := header(req, "Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if tokenString == "" {
		tokenString = cookie(req, sessionCookie)
	}
	if tokenString == "" {
		return "", fmt.Errorf("no authorization token found: %w", model.ErrAuthentication)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %v: %w", err, model.ErrAuthentication)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			return sub, nil
		}
	}
	return "", fmt.Errorf("invalid token claims: %w", model.ErrAuthentication)
}

// SignSession issues the dashboard session JWT.
func SignSession(jwtSecret, userID, email string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(sessionTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

// setCookie renders a Set-Cookie value. maxAge 0 clears the cookie.
func setCookie(name, value string, maxAge int, devMode bool) string {
	// Production serves the API and dashboard from different origins.
	sameSite := "None"
	if devMode {
		sameSite = "Lax"
	}
	return fmt.Sprintf("%s=%s; HttpOnly; Path=/; Max-Age=%d; SameSite=%s; Secure", name, value, maxAge, sameSite)
}

func jsonResponse(status int, v any) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("failed to encode response: %w", err)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}, nil
}

func redirect(location string, cookies ...string) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers:    map[string]string{"Location": location},
	}
	if len(cookies) > 0 {
		resp.MultiValueHeaders = map[string][]string{"Set-Cookie": cookies}
	}
	return resp
}

// StatusFor maps a domain error onto an HTTP status and a client-safe message.
func StatusFor(err error) (int, string) {
	var up *model.UpstreamError
	switch {
	case errors.Is(err, model.ErrAuthentication):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, model.ErrQuotaExceeded):
		return http.StatusTooManyRequests, model.ErrQuotaExceeded.Error()
	case errors.Is(err, model.ErrConfiguration):
		return http.StatusServiceUnavailable, "service is not configured"
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, model.ErrGeneration):
		return http.StatusBadGateway, model.ErrGeneration.Error()
	case errors.As(err, &up):
		if up.Transport() {
			return http.StatusBadGateway, up.Service + " is unreachable"
		}
		return http.StatusBadGateway, up.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func errorResponse(err error) (events.APIGatewayProxyResponse, error) {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	return jsonResponse(status, map[string]string{"error": msg})
}
