package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/cache"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/metrics"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/quota"
)

// mineID is the cache identifier for the token holder's channel list.
const mineID = "mine"

// Service serves one user's reads from cache when possible and charges the
// shared quota for every successful remote call.
type Service struct {
	api    API
	userID string
	cache  *cache.Layer
	quota  *quota.Tracker
	log    zerolog.Logger
}

// NewService creates a Service for userID.
func NewService(api API, userID string, c *cache.Layer, q *quota.Tracker) *Service {
	return &Service{
		api:    api,
		userID: userID,
		cache:  c,
		quota:  q,
		log:    log.With().Str("component", "youtube").Str("user_id", userID).Logger(),
	}
}

// Channels lists the channels owned by the user.
func (s *Service) Channels(ctx context.Context) ([]model.Channel, error) {
	return fetch(ctx, s, cache.ResourceChannels, mineID, quota.CostChannels, "channels", s.api.MyChannels)
}

// Videos lists the newest uploads of a channel with statistics. The uploads
// playlist, its items and the video batch are fetched in sequence; any stage
// failing fails the whole operation.
func (s *Service) Videos(ctx context.Context, channelID string) ([]model.Video, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("channel id: %w", model.ErrInvalidInput)
	}
	return fetch(ctx, s, cache.ResourceVideos, channelID, quota.CostVideos, "videos", func(ctx context.Context) ([]model.Video, error) {
		playlistID, err := s.api.UploadsPlaylist(ctx, channelID)
		if err != nil {
			return nil, err
		}
		ids, err := s.api.PlaylistVideoIDs(ctx, playlistID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []model.Video{}, nil
		}
		return s.api.Videos(ctx, ids)
	})
}

// Comments lists the newest comment threads of a video. A video with
// comments turned off yields an empty list.
func (s *Service) Comments(ctx context.Context, videoID string) ([]model.CommentThread, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, fmt.Errorf("video id: %w", model.ErrInvalidInput)
	}
	return fetch(ctx, s, cache.ResourceComments, videoID, quota.CostComments, "comments", func(ctx context.Context) ([]model.CommentThread, error) {
		threads, err := s.api.CommentThreads(ctx, videoID)
		if errors.Is(err, model.ErrCommentsDisabled) {
			s.log.Debug().Str("video_id", videoID).Msg("comments disabled")
			return []model.CommentThread{}, nil
		}
		return threads, err
	})
}

// PostReply posts text under commentID. The call is not idempotent, so it is
// never retried and never cached.
func (s *Service) PostReply(ctx context.Context, commentID, text string) (model.Comment, error) {
	if strings.TrimSpace(commentID) == "" || strings.TrimSpace(text) == "" {
		return model.Comment{}, fmt.Errorf("reply: %w", model.ErrInvalidInput)
	}

	ok, err := s.quota.Check(ctx, quota.CostReply)
	if err != nil {
		return model.Comment{}, err
	}
	if !ok {
		return model.Comment{}, model.ErrQuotaExceeded
	}

	created, err := s.api.InsertReply(ctx, commentID, text)
	metrics.ObserveYouTube("reply", err)
	if err != nil {
		if errors.Is(err, model.ErrQuotaExceeded) {
			s.exhaust(ctx)
		}
		return model.Comment{}, err
	}
	if err := s.quota.Charge(ctx, quota.CostReply); err != nil {
		s.log.Error().Err(err).Msg("failed to charge quota for reply")
	}
	return created, nil
}

func (s *Service) exhaust(ctx context.Context) {
	if err := s.quota.Exhaust(ctx); err != nil {
		s.log.Error().Err(err).Msg("failed to mark quota exhausted")
	}
}

// fetch runs the cache-first decision procedure for one resource.
func fetch[T any](ctx context.Context, s *Service, res cache.Resource, id string, cost int, op string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	key := cache.Key(s.userID, res, id)
	logger := s.log.With().Str("resource", string(res)).Str("id", id).Logger()

	entry, hasEntry := s.cache.Get(ctx, key)
	var cached T
	if hasEntry {
		if err := entry.Decode(&cached); err != nil {
			logger.Warn().Err(err).Msg("discarding undecodable cache entry")
			hasEntry = false
		}
	}
	if hasEntry && !entry.Expired(res.TTL(), s.cache.Now()) {
		metrics.CacheResults.WithLabelValues(string(res), "fresh").Inc()
		return cached, nil
	}

	serveStale := func(reason string) (T, error) {
		metrics.CacheResults.WithLabelValues(string(res), "stale").Inc()
		logger.Warn().Str("reason", reason).Time("cached_at", entry.Timestamp).Msg("serving stale cache entry")
		return cached, nil
	}

	ok, err := s.quota.Check(ctx, cost)
	if err != nil {
		return zero, err
	}
	if !ok {
		if hasEntry {
			return serveStale("quota")
		}
		logger.Warn().Msg("quota exceeded with nothing cached")
		return zero, model.ErrQuotaExceeded
	}

	metrics.CacheResults.WithLabelValues(string(res), "miss").Inc()
	result, err := call(ctx)
	metrics.ObserveYouTube(op, err)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrQuotaExceeded):
			s.exhaust(ctx)
			if hasEntry {
				return serveStale("upstream quota")
			}
			return zero, model.ErrQuotaExceeded
		case model.IsTransport(err) && hasEntry:
			return serveStale("network")
		}
		return zero, err
	}

	if err := s.quota.Charge(ctx, cost); err != nil {
		logger.Error().Err(err).Msg("failed to charge quota")
	}
	if err := s.cache.Set(ctx, key, result); err != nil {
		logger.Error().Err(err).Msg("failed to store cache entry")
	}
	return result, nil
}
