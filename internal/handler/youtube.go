package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/autoreply"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/quota"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/reply"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/youtube"
)

// ServiceSource builds per-user YouTube services. *youtube.Provider implements it.
type ServiceSource interface {
	ForUser(ctx context.Context, userID string) (*youtube.Service, error)
	Quota() *quota.Tracker
}

// YouTubeHandler serves the dashboard data endpoints.
type YouTubeHandler struct {
	services  ServiceSource
	templates *reply.TemplateStore
	replies   *autoreply.Manager
	jwtSecret string
	// waitForReplies blocks comment requests until auto-replies finish. The
	// Lambda runtime freezes after the response, so it cannot leave work behind.
	waitForReplies bool
	log            zerolog.Logger
}

func NewYouTubeHandler(services ServiceSource, templates *reply.TemplateStore, replies *autoreply.Manager, jwtSecret string, waitForReplies bool) *YouTubeHandler {
	return &YouTubeHandler{
		services:       services,
		templates:      templates,
		replies:        replies,
		jwtSecret:      jwtSecret,
		waitForReplies: waitForReplies,
		log:            log.With().Str("component", "youtube_handler").Logger(),
	}
}

func (h *YouTubeHandler) service(ctx context.Context, req events.APIGatewayProxyRequest) (string, *youtube.Service, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return "", nil, err
	}
	svc, err := h.services.ForUser(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	return userID, svc, nil
}

// ListChannels returns the channels of the signed-in user.
func (h *YouTubeHandler) ListChannels(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	_, svc, err := h.service(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	channels, err := svc.Channels(ctx)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, channels)
}

// ListVideos returns the uploads of a channel.
func (h *YouTubeHandler) ListVideos(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	_, svc, err := h.service(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	videos, err := svc.Videos(ctx, req.PathParameters["id"])
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, videos)
}

type commentsResponse struct {
	Comments []model.CommentThread `json:"comments"`
	Replied  map[string]bool       `json:"replied"`
	Launched int                   `json:"autoReplyLaunched"`
	Statuses []autoreply.Status    `json:"autoReplyStatuses,omitempty"`
}

// ListComments returns the comment threads of a video and, unless
// autoReply=false, starts auto-replies for the unanswered ones.
func (h *YouTubeHandler) ListComments(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := req.QueryStringParameters
	autoReply := !strings.EqualFold(q["autoReply"], "false")

	cfg, err := reply.ParseConfig(q["tone"], q["length"], q["language"])
	if err != nil {
		return errorResponse(err)
	}

	userID, svc, err := h.service(ctx, req)
	if err != nil {
		return errorResponse(err)
	}

	if raw := q["template"]; raw != "" && autoReply {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return errorResponse(fmt.Errorf("template index %q: %w", raw, model.ErrInvalidInput))
		}
		if cfg.Template, err = h.templates.Get(ctx, userID, idx); err != nil {
			return errorResponse(err)
		}
	}

	threads, err := svc.Comments(ctx, req.PathParameters["id"])
	if err != nil {
		return errorResponse(err)
	}

	resp := commentsResponse{Comments: threads}
	if autoReply && len(threads) > 0 {
		pipeline := h.replies.For(userID)
		if resp.Launched, err = pipeline.Process(ctx, svc, threads, cfg); err != nil {
			return errorResponse(err)
		}
		if h.waitForReplies {
			pipeline.Wait()
			resp.Statuses = pipeline.Statuses()
		}
	}

	if resp.Replied, err = h.replies.Record().Replied(ctx, userID); err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, resp)
}

// ListReplies returns the auto-reply statuses of the signed-in user.
func (h *YouTubeHandler) ListReplies(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, h.replies.For(userID).Statuses())
}

// CancelReply stops an in-flight auto-reply.
func (h *YouTubeHandler) CancelReply(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(err)
	}
	if !h.replies.For(userID).Cancel(req.PathParameters["id"]) {
		return errorResponse(fmt.Errorf("no running reply for %q: %w", req.PathParameters["id"], model.ErrNotFound))
	}
	return jsonResponse(http.StatusAccepted, map[string]bool{"cancelled": true})
}

// PostReply publishes a manual reply and marks the comment replied.
func (h *YouTubeHandler) PostReply(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(fmt.Errorf("invalid request body: %w", model.ErrInvalidInput))
	}

	userID, svc, err := h.service(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	commentID := req.PathParameters["id"]
	posted, err := svc.PostReply(ctx, commentID, body.Text)
	if err != nil {
		return errorResponse(err)
	}
	if err := h.replies.Record().MarkReplied(ctx, userID, commentID, ""); err != nil {
		h.log.Error().Err(err).Str("comment_id", commentID).Msg("manual reply posted but record update failed")
	}
	return jsonResponse(http.StatusCreated, posted)
}

type quotaResponse struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// GetQuota reports today's API usage.
func (h *YouTubeHandler) GetQuota(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetUserID(req, h.jwtSecret); err != nil {
		return errorResponse(err)
	}
	tracker := h.services.Quota()
	used, err := tracker.Usage(ctx)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, quotaResponse{
		Used:      used,
		Limit:     tracker.Limit(),
		Remaining: max(tracker.Limit()-used, 0),
	})
}

// ListTemplates returns the user's reply templates.
func (h *YouTubeHandler) ListTemplates(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(err)
	}
	list, err := h.templates.List(ctx, userID)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, list)
}

// AddTemplate appends a reply template.
func (h *YouTubeHandler) AddTemplate(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(err)
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(fmt.Errorf("invalid request body: %w", model.ErrInvalidInput))
	}
	list, err := h.templates.Add(ctx, userID, body.Text)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusCreated, list)
}

// DeleteTemplate removes the template at the path index.
func (h *YouTubeHandler) DeleteTemplate(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(err)
	}
	idx, err := strconv.Atoi(req.PathParameters["index"])
	if err != nil {
		return errorResponse(fmt.Errorf("template index: %w", model.ErrInvalidInput))
	}
	list, err := h.templates.Delete(ctx, userID, idx)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, list)
}

type analyticsResponse struct {
	autoreply.Summary
	QuotaUsed int `json:"quotaUsed"`
}

// GetAnalytics summarises reply activity and quota usage.
func (h *YouTubeHandler) GetAnalytics(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return errorResponse(err)
	}
	summary, err := h.replies.Record().Summarize(ctx, userID, 5)
	if err != nil {
		return errorResponse(err)
	}
	used, err := h.services.Quota().Usage(ctx)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, analyticsResponse{Summary: summary, QuotaUsed: used})
}
