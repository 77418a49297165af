// Package youtube wraps the YouTube Data API v3 behind a quota-aware,
// cache-first service.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
)

const pageSize = 50

// API is the set of remote calls the service layer needs.
type API interface {
	MyChannels(ctx context.Context) ([]model.Channel, error)
	UploadsPlaylist(ctx context.Context, channelID string) (string, error)
	PlaylistVideoIDs(ctx context.Context, playlistID string) ([]string, error)
	Videos(ctx context.Context, ids []string) ([]model.Video, error)
	CommentThreads(ctx context.Context, videoID string) ([]model.CommentThread, error)
	InsertReply(ctx context.Context, parentID, text string) (model.Comment, error)
}

// Client implements API on top of the generated youtube/v3 bindings.
// Errors are returned already classified into model error kinds.
type Client struct {
	service *yt.Service
}

// NewClient creates a Client. client should carry the user's credentials.
func NewClient(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube client: %w", err)
	}
	return &Client{service: srv}, nil
}

// MyChannels lists the channels owned by the token holder.
func (c *Client) MyChannels(ctx context.Context) ([]model.Channel, error) {
	resp, err := c.service.Channels.
		List([]string{"snippet", "statistics", "contentDetails"}).
		Mine(true).
		MaxResults(5).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("channels.list", err)
	}

	channels := make([]model.Channel, 0, len(resp.Items))
	for _, ch := range resp.Items {
		channels = append(channels, toChannel(ch))
	}
	return channels, nil
}

// UploadsPlaylist returns the id of the channel's uploads playlist.
func (c *Client) UploadsPlaylist(ctx context.Context, channelID string) (string, error) {
	resp, err := c.service.Channels.
		List([]string{"contentDetails"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return "", classify("channels.list", err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("channel %s: %w", channelID, model.ErrNotFound)
	}
	ch := resp.Items[0]
	if ch.ContentDetails == nil || ch.ContentDetails.RelatedPlaylists == nil || ch.ContentDetails.RelatedPlaylists.Uploads == "" {
		return "", fmt.Errorf("uploads playlist for channel %s: %w", channelID, model.ErrNotFound)
	}
	return ch.ContentDetails.RelatedPlaylists.Uploads, nil
}

// PlaylistVideoIDs returns the video ids of the first page of a playlist.
func (c *Client) PlaylistVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	resp, err := c.service.PlaylistItems.
		List([]string{"contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(pageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("playlistItems.list", err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
			ids = append(ids, item.ContentDetails.VideoId)
		}
	}
	return ids, nil
}

// Videos fetches snippet and statistics for up to 50 ids in one call.
func (c *Client) Videos(ctx context.Context, ids []string) ([]model.Video, error) {
	if len(ids) == 0 {
		return []model.Video{}, nil
	}
	if len(ids) > pageSize {
		ids = ids[:pageSize]
	}
	resp, err := c.service.Videos.
		List([]string{"snippet", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("videos.list", err)
	}

	videos := make([]model.Video, 0, len(resp.Items))
	for _, v := range resp.Items {
		videos = append(videos, toVideo(v))
	}
	return videos, nil
}

// CommentThreads returns the newest page of top-level comments with their replies.
func (c *Client) CommentThreads(ctx context.Context, videoID string) ([]model.CommentThread, error) {
	resp, err := c.service.CommentThreads.
		List([]string{"snippet", "replies"}).
		VideoId(videoID).
		MaxResults(pageSize).
		Order("time").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("commentThreads.list", err)
	}

	threads := make([]model.CommentThread, 0, len(resp.Items))
	for _, th := range resp.Items {
		threads = append(threads, toThread(th))
	}
	return threads, nil
}

// InsertReply posts text as a reply to parentID.
func (c *Client) InsertReply(ctx context.Context, parentID, text string) (model.Comment, error) {
	comment := &yt.Comment{
		Snippet: &yt.CommentSnippet{
			ParentId:     parentID,
			TextOriginal: text,
		},
	}
	created, err := c.service.Comments.
		Insert([]string{"snippet"}, comment).
		Context(ctx).
		Do()
	if err != nil {
		return model.Comment{}, classify("comments.insert", err)
	}
	return toComment(created), nil
}

func thumbnail(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.Medium, t.High, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func toChannel(ch *yt.Channel) model.Channel {
	out := model.Channel{ID: ch.Id}
	if ch.Snippet != nil {
		out.Title = ch.Snippet.Title
		out.Description = ch.Snippet.Description
		out.ThumbnailURL = thumbnail(ch.Snippet.Thumbnails)
	}
	if ch.Statistics != nil {
		out.SubscriberCount = ch.Statistics.SubscriberCount
		out.VideoCount = ch.Statistics.VideoCount
		out.ViewCount = ch.Statistics.ViewCount
	}
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		out.UploadsPlaylist = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	return out
}

func toVideo(v *yt.Video) model.Video {
	out := model.Video{ID: v.Id}
	if v.Snippet != nil {
		out.ChannelID = v.Snippet.ChannelId
		out.Title = v.Snippet.Title
		out.Description = v.Snippet.Description
		out.ThumbnailURL = thumbnail(v.Snippet.Thumbnails)
		out.PublishedAt = parseTime(v.Snippet.PublishedAt)
	}
	if v.Statistics != nil {
		out.ViewCount = v.Statistics.ViewCount
		out.LikeCount = v.Statistics.LikeCount
		out.CommentCount = v.Statistics.CommentCount
	}
	return out
}

func toComment(c *yt.Comment) model.Comment {
	if c == nil {
		return model.Comment{}
	}
	out := model.Comment{ID: c.Id}
	if s := c.Snippet; s != nil {
		out.AuthorName = s.AuthorDisplayName
		out.AuthorAvatarURL = s.AuthorProfileImageUrl
		out.Text = s.TextOriginal
		out.TextDisplay = s.TextDisplay
		out.LikeCount = s.LikeCount
		out.PublishedAt = parseTime(s.PublishedAt)
		if out.Text == "" {
			out.Text = strings.TrimSpace(s.TextDisplay)
		}
	}
	return out
}

func toThread(th *yt.CommentThread) model.CommentThread {
	out := model.CommentThread{ID: th.Id}
	if s := th.Snippet; s != nil {
		out.VideoID = s.VideoId
		out.TopLevel = toComment(s.TopLevelComment)
		out.ReplyCount = s.TotalReplyCount
	}
	if th.Replies != nil {
		for _, r := range th.Replies.Comments {
			out.Replies = append(out.Replies, toComment(r))
		}
	}
	return out
}
