package youtube

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/cache"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/quota"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

type stubAPI struct {
	calls map[string]int

	channels    []model.Channel
	channelsErr error
	uploads     string
	uploadsErr  error
	videoIDs    []string
	itemsErr    error
	videos      []model.Video
	videosErr   error
	threads     []model.CommentThread
	threadsErr  error
	replyErr    error
	replies     []string
}

func newStubAPI() *stubAPI {
	return &stubAPI{calls: map[string]int{}}
}

func (s *stubAPI) MyChannels(context.Context) ([]model.Channel, error) {
	s.calls["channels"]++
	return s.channels, s.channelsErr
}

func (s *stubAPI) UploadsPlaylist(context.Context, string) (string, error) {
	s.calls["uploads"]++
	return s.uploads, s.uploadsErr
}

func (s *stubAPI) PlaylistVideoIDs(context.Context, string) ([]string, error) {
	s.calls["items"]++
	return s.videoIDs, s.itemsErr
}

func (s *stubAPI) Videos(context.Context, []string) ([]model.Video, error) {
	s.calls["videos"]++
	return s.videos, s.videosErr
}

func (s *stubAPI) CommentThreads(context.Context, string) ([]model.CommentThread, error) {
	s.calls["threads"]++
	return s.threads, s.threadsErr
}

func (s *stubAPI) InsertReply(_ context.Context, parentID, text string) (model.Comment, error) {
	s.calls["reply"]++
	if s.replyErr != nil {
		return model.Comment{}, s.replyErr
	}
	s.replies = append(s.replies, parentID+"="+text)
	return model.Comment{ID: parentID + ".reply", Text: text}, nil
}

type fixture struct {
	api   *stubAPI
	svc   *Service
	store *store.Memory
	cache *cache.Layer
	quota *quota.Tracker
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		api:   newStubAPI(),
		store: store.NewMemory(),
		now:   time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
	f.cache = cache.New(f.store)
	f.cache.SetClock(func() time.Time { return f.now })
	f.quota = quota.NewTracker(f.store, time.UTC)
	f.svc = NewService(f.api, "u1", f.cache, f.quota)
	return f
}

func (f *fixture) setUsed(t *testing.T, used int) {
	t.Helper()
	require.NoError(t, store.SetJSON(context.Background(), f.store, store.QuotaKey, quota.Counter{UsedUnits: used, ResetDate: time.Now()}))
}

func (f *fixture) used(t *testing.T) int {
	t.Helper()
	n, err := f.quota.Usage(context.Background())
	require.NoError(t, err)
	return n
}

func (f *fixture) seedComments(t *testing.T, videoID string, threads []model.CommentThread, at time.Time) {
	t.Helper()
	f.cache.SetClock(func() time.Time { return at })
	require.NoError(t, f.cache.Set(context.Background(), cache.Key("u1", cache.ResourceComments, videoID), threads))
	f.cache.SetClock(func() time.Time { return f.now })
}

var sampleThreads = []model.CommentThread{{ID: "T1", TopLevel: model.Comment{ID: "C1", Text: "hi"}}}

func TestService_FreshEntryServedWithoutCallOrCharge(t *testing.T) {
	f := newFixture(t)
	f.seedComments(t, "V1", sampleThreads, f.now.Add(-10*time.Minute))

	got, err := f.svc.Comments(context.Background(), "V1")
	require.NoError(t, err)
	assert.Equal(t, sampleThreads, got)
	assert.Zero(t, f.api.calls["threads"])
	assert.Zero(t, f.used(t))
}

func TestService_ExpiredEntryRefetchedAndCharged(t *testing.T) {
	f := newFixture(t)
	f.seedComments(t, "V1", sampleThreads, f.now.Add(-31*time.Minute))
	fresh := []model.CommentThread{{ID: "T2", TopLevel: model.Comment{ID: "C2"}}}
	f.api.threads = fresh

	got, err := f.svc.Comments(context.Background(), "V1")
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
	assert.Equal(t, 1, f.api.calls["threads"])
	assert.Equal(t, 1, f.used(t))

	e, ok := f.cache.Get(context.Background(), cache.Key("u1", cache.ResourceComments, "V1"))
	require.True(t, ok)
	assert.True(t, e.Timestamp.Equal(f.now))
}

func TestService_QuotaExhaustedServesStale(t *testing.T) {
	f := newFixture(t)
	f.seedComments(t, "V1", sampleThreads, f.now.Add(-2*time.Hour))
	f.setUsed(t, quota.DailyLimit)

	got, err := f.svc.Comments(context.Background(), "V1")
	require.NoError(t, err)
	assert.Equal(t, sampleThreads, got)
	assert.Zero(t, f.api.calls["threads"])
}

func TestService_QuotaExhaustedWithoutEntryFails(t *testing.T) {
	f := newFixture(t)
	f.setUsed(t, quota.DailyLimit)

	_, err := f.svc.Comments(context.Background(), "V1")
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
	assert.Zero(t, f.api.calls["threads"])
}

func TestService_UpstreamQuotaErrorServesStale(t *testing.T) {
	f := newFixture(t)
	f.seedComments(t, "V1", sampleThreads, f.now.Add(-2*time.Hour))
	f.api.threadsErr = classifyFor(model.ErrQuotaExceeded)

	got, err := f.svc.Comments(context.Background(), "V1")
	require.NoError(t, err)
	assert.Equal(t, sampleThreads, got)

	// the tracker now refuses further calls for today
	ok, err := f.quota.Check(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_UpstreamQuotaErrorWithoutEntry(t *testing.T) {
	f := newFixture(t)
	f.api.threadsErr = classifyFor(model.ErrQuotaExceeded)

	_, err := f.svc.Comments(context.Background(), "V1")
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
}

func TestService_NetworkErrorServesStaleWhenPresent(t *testing.T) {
	f := newFixture(t)
	f.seedComments(t, "V1", sampleThreads, f.now.Add(-2*time.Hour))
	f.api.threadsErr = &model.UpstreamError{Service: "youtube", Op: "commentThreads.list", Message: "network error"}

	got, err := f.svc.Comments(context.Background(), "V1")
	require.NoError(t, err)
	assert.Equal(t, sampleThreads, got)
	assert.Zero(t, f.used(t))
}

func TestService_OtherErrorsPropagateWithoutCharge(t *testing.T) {
	f := newFixture(t)
	f.seedComments(t, "V1", sampleThreads, f.now.Add(-2*time.Hour))
	f.api.threadsErr = &model.UpstreamError{Service: "youtube", Op: "commentThreads.list", Code: http.StatusBadRequest, Message: "bad"}

	_, err := f.svc.Comments(context.Background(), "V1")
	var ue *model.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "bad", ue.Message)
	assert.Zero(t, f.used(t))
}

func TestService_CommentsDisabledIsEmptyResult(t *testing.T) {
	f := newFixture(t)
	f.api.threadsErr = classifyFor(model.ErrCommentsDisabled)

	got, err := f.svc.Comments(context.Background(), "V1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, f.used(t))
}

func TestService_VideosChain(t *testing.T) {
	f := newFixture(t)
	f.api.uploads = "UU1"
	f.api.videoIDs = []string{"a", "b"}
	f.api.videos = []model.Video{{ID: "a"}, {ID: "b"}}

	got, err := f.svc.Videos(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, f.api.calls["uploads"])
	assert.Equal(t, 1, f.api.calls["items"])
	assert.Equal(t, 1, f.api.calls["videos"])
	assert.Equal(t, quota.CostVideos, f.used(t))
}

func TestService_VideosChainAbortsOnStageFailure(t *testing.T) {
	f := newFixture(t)
	f.api.uploads = "UU1"
	f.api.itemsErr = &model.UpstreamError{Service: "youtube", Op: "playlistItems.list", Code: 500, Message: "backend"}

	_, err := f.svc.Videos(context.Background(), "UC1")
	require.Error(t, err)
	assert.Zero(t, f.api.calls["videos"])
	_, ok := f.cache.Get(context.Background(), cache.Key("u1", cache.ResourceVideos, "UC1"))
	assert.False(t, ok)
}

func TestService_VideosEmptyPlaylist(t *testing.T) {
	f := newFixture(t)
	f.api.uploads = "UU1"

	got, err := f.svc.Videos(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, f.api.calls["videos"])
}

func TestService_ChannelsCachedPerUser(t *testing.T) {
	f := newFixture(t)
	f.api.channels = []model.Channel{{ID: "UC1"}}

	_, err := f.svc.Channels(context.Background())
	require.NoError(t, err)
	_, err = f.svc.Channels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.calls["channels"])

	other := NewService(f.api, "u2", f.cache, f.quota)
	_, err = other.Channels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.api.calls["channels"])
}

func TestService_PostReply(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.PostReply(context.Background(), "C1", "thanks!")
	require.NoError(t, err)
	assert.Equal(t, "C1.reply", created.ID)
	assert.Equal(t, []string{"C1=thanks!"}, f.api.replies)
	assert.Equal(t, quota.CostReply, f.used(t))
}

func TestService_PostReplyNoRetryOnFailure(t *testing.T) {
	f := newFixture(t)
	f.api.replyErr = &model.UpstreamError{Service: "youtube", Op: "comments.insert", Code: 500, Message: "boom"}

	_, err := f.svc.PostReply(context.Background(), "C1", "thanks!")
	require.Error(t, err)
	assert.Equal(t, 1, f.api.calls["reply"])
	assert.Zero(t, f.used(t))
}

func TestService_PostReplyQuotaExceeded(t *testing.T) {
	f := newFixture(t)
	f.setUsed(t, quota.DailyLimit)

	_, err := f.svc.PostReply(context.Background(), "C1", "thanks!")
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
	assert.Zero(t, f.api.calls["reply"])
}

func TestService_PostReplyRejectsBlankText(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PostReply(context.Background(), "C1", "   ")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func classifyFor(kind error) error {
	return fmt.Errorf("youtube commentThreads.list: %w", kind)
}
