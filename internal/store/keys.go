package store

import "strings"

const sep = ":"

// QuotaKey holds the project-wide daily quota counter.
const QuotaKey = "youtube_api_quota"

func join(parts ...string) string {
	return strings.Join(parts, sep)
}

// TokenKey addresses the persisted OAuth token of a user.
func TokenKey(userID string) string {
	return join("token", userID)
}

// OAuthStateKey addresses a pending CSRF nonce.
func OAuthStateKey(nonce string) string {
	return join("oauth_state", nonce)
}

// CacheKey addresses a cached API snapshot for one user.
func CacheKey(userID, resource, id string) string {
	return join("youtube", userID, resource, id)
}

// TemplatesKey addresses the reply template list of a user.
func TemplatesKey(userID string) string {
	return join("reply_templates", userID)
}

// RepliedKey addresses the replied-comment record of a user.
func RepliedKey(userID string) string {
	return join("replied_comments", userID)
}

// TemplateUsageKey addresses the per-template reply counters of a user.
func TemplateUsageKey(userID string) string {
	return join("template_usage", userID)
}

// LeaseKey addresses the work lease of one comment.
func LeaseKey(userID, commentID string) string {
	return join("reply_lease", userID, commentID)
}
