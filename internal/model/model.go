package model

import "time"

// UserToken represents the user's OAuth2 token as persisted in the key-value store.
type UserToken struct {
	UserID                string    `json:"user_id" dynamodbav:"user_id"`
	EncryptedAccessToken  string    `json:"encrypted_access_token" dynamodbav:"encrypted_access_token"`
	EncryptedRefreshToken string    `json:"encrypted_refresh_token,omitempty" dynamodbav:"encrypted_refresh_token"`
	TokenType             string    `json:"token_type,omitempty" dynamodbav:"token_type"`
	Expiry                time.Time `json:"expiry" dynamodbav:"expiry"`
	Email                 string    `json:"email,omitempty" dynamodbav:"email"`
	UpdatedAt             time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// OAuthState is the CSRF nonce issued before redirecting to the consent screen.
type OAuthState struct {
	Nonce     string    `json:"nonce"`
	CreatedAt time.Time `json:"created_at"`
}

// Lease marks a comment as being worked on by one pipeline run.
type Lease struct {
	Key       string `json:"key" dynamodbav:"lease_key"`
	Owner     string `json:"owner" dynamodbav:"owner"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix timestamp)
}

// Channel is a YouTube channel owned by the authenticated user.
type Channel struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	ThumbnailURL    string `json:"thumbnailUrl,omitempty"`
	UploadsPlaylist string `json:"uploadsPlaylist,omitempty"`
	SubscriberCount uint64 `json:"subscriberCount"`
	VideoCount      uint64 `json:"videoCount"`
	ViewCount       uint64 `json:"viewCount"`
}

// Video is an uploaded video with its statistics.
type Video struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channelId"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	PublishedAt  time.Time `json:"publishedAt"`
	ViewCount    uint64    `json:"viewCount"`
	LikeCount    uint64    `json:"likeCount"`
	CommentCount uint64    `json:"commentCount"`
}

// Comment is a single top-level comment or reply.
type Comment struct {
	ID              string    `json:"id"`
	AuthorName      string    `json:"authorName"`
	AuthorAvatarURL string    `json:"authorAvatarUrl,omitempty"`
	Text            string    `json:"text"`
	TextDisplay     string    `json:"textDisplay,omitempty"`
	LikeCount       int64     `json:"likeCount"`
	PublishedAt     time.Time `json:"publishedAt"`
}

// CommentThread is a top-level comment with the replies returned alongside it.
type CommentThread struct {
	ID         string    `json:"id"`
	VideoID    string    `json:"videoId"`
	TopLevel   Comment   `json:"topLevelComment"`
	ReplyCount int64     `json:"replyCount"`
	Replies    []Comment `json:"replies,omitempty"`
}

// CommentID returns the id a reply must be posted against.
func (t CommentThread) CommentID() string {
	if t.TopLevel.ID != "" {
		return t.TopLevel.ID
	}
	return t.ID
}
