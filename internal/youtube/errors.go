package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
)

const service = "youtube"

var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// classify converts a raw client error into a model error kind. This is the
// only place upstream payloads are inspected.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%s %s: token refresh rejected: %w", service, op, model.ErrAuthentication)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &model.UpstreamError{Service: service, Op: op, Message: "network error", Err: err}
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", service, op, model.ErrAuthentication)
	case isQuota(gerr):
		return fmt.Errorf("%s %s: %w", service, op, model.ErrQuotaExceeded)
	case isCommentsDisabled(gerr):
		return fmt.Errorf("%s %s: %w", service, op, model.ErrCommentsDisabled)
	case gerr.Code == http.StatusNotFound:
		return fmt.Errorf("%s %s: %s: %w", service, op, gerr.Message, model.ErrNotFound)
	}

	msg := gerr.Message
	if msg == "" {
		msg = http.StatusText(gerr.Code)
	}
	return &model.UpstreamError{Service: service, Op: op, Code: gerr.Code, Message: msg}
}

func reasons(gerr *googleapi.Error) []string {
	out := make([]string, 0, len(gerr.Errors))
	for _, item := range gerr.Errors {
		out = append(out, item.Reason)
	}
	return out
}

func isQuota(gerr *googleapi.Error) bool {
	for _, r := range reasons(gerr) {
		if quotaReasons[r] {
			return true
		}
	}
	if gerr.Code == http.StatusForbidden || gerr.Code == http.StatusTooManyRequests {
		return strings.Contains(strings.ToLower(gerr.Message), "quota")
	}
	return false
}

func isCommentsDisabled(gerr *googleapi.Error) bool {
	for _, r := range reasons(gerr) {
		if r == "commentsDisabled" {
			return true
		}
	}
	return strings.Contains(strings.ToLower(gerr.Message), "disabled comments")
}
