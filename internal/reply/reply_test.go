package reply

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig("", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = ParseConfig("Professional", "long", " french ")
	require.NoError(t, err)
	assert.Equal(t, Config{Tone: ToneProfessional, Length: LengthLong, Language: LanguageFrench}, cfg)

	_, err = ParseConfig("angry", "", "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = ParseConfig("", "huge", "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = ParseConfig("", "", "klingon")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestMaxTokens(t *testing.T) {
	assert.Equal(t, 50, MaxTokens(LengthShort))
	assert.Equal(t, 150, MaxTokens(LengthMedium))
	assert.Equal(t, 300, MaxTokens(LengthLong))
	assert.Equal(t, 150, MaxTokens(""))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("Great video!", Config{Tone: ToneCasual, Length: LengthShort, Language: LanguageSpanish})
	assert.Contains(t, p, "generate a casual reply in spanish")
	assert.Contains(t, p, `"Great video!"`)
	assert.Contains(t, p, "should be short in length")
	assert.Contains(t, p, "maintain a casual tone")
	assert.NotContains(t, p, "template")

	p = BuildPrompt("Hi", Config{Tone: ToneFriendly, Language: LanguageEnglish, Template: "Thanks! [REPLY]"})
	assert.Contains(t, p, "should be medium in length")
	assert.True(t, strings.HasSuffix(p, "Use this template as a guide: Thanks! [REPLY]"))
}

func TestApplyTemplate(t *testing.T) {
	assert.Equal(t, "hello", ApplyTemplate("", "hello"))
	assert.Equal(t, "Thanks! hello -- Team", ApplyTemplate("Thanks! [REPLY] -- Team", "hello"))
	assert.Equal(t, "a hello [REPLY]", ApplyTemplate("a [REPLY] [REPLY]", "hello"))
	assert.Equal(t, "no placeholder", ApplyTemplate("no placeholder", "hello"))
}

type geminiFake struct {
	status int
	body   string
	calls  int
	last   generateRequest
	path   string
	key    string
}

func (f *geminiFake) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls++
		f.path = r.URL.Path
		f.key = r.URL.Query().Get("key")
		_ = json.NewDecoder(r.Body).Decode(&f.last)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func candidate(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(b)
}

func TestGenerator_Generate(t *testing.T) {
	fake := &geminiFake{status: http.StatusOK, body: candidate("  Thank you so much!  ")}
	srv := fake.server(t)
	g := NewGenerator(GeneratorConfig{APIKey: "k1", BaseURL: srv.URL, Model: "gemini-pro"})

	cfg := Config{Tone: ToneFriendly, Length: LengthLong, Language: LanguageEnglish, Template: "[REPLY] Cheers!"}
	got, err := g.Generate(context.Background(), "Loved it", cfg)
	require.NoError(t, err)

	assert.Equal(t, "Thank you so much! Cheers!", got)
	assert.Equal(t, "/models/gemini-pro:generateContent", fake.path)
	assert.Equal(t, "k1", fake.key)
	assert.Equal(t, 300, fake.last.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.7, fake.last.GenerationConfig.Temperature, 1e-9)
	require.Len(t, fake.last.Contents, 1)
	assert.Contains(t, fake.last.Contents[0].Parts[0].Text, `"Loved it"`)
}

func TestGenerator_StripMarkdown(t *testing.T) {
	fake := &geminiFake{status: http.StatusOK, body: candidate("**Thanks** for watching!")}
	srv := fake.server(t)
	g := NewGenerator(GeneratorConfig{APIKey: "k", BaseURL: srv.URL, StripMarkdown: true})

	got, err := g.Generate(context.Background(), "nice", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "Thanks for watching!", got)
}

func TestGenerator_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		g := NewGenerator(GeneratorConfig{})
		_, err := g.Generate(context.Background(), "hi", DefaultConfig())
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})

	t.Run("empty comment makes no call", func(t *testing.T) {
		fake := &geminiFake{status: http.StatusOK, body: candidate("x")}
		srv := fake.server(t)
		g := NewGenerator(GeneratorConfig{APIKey: "k", BaseURL: srv.URL})
		_, err := g.Generate(context.Background(), "   ", DefaultConfig())
		assert.ErrorIs(t, err, model.ErrGeneration)
		assert.Zero(t, fake.calls)
	})

	t.Run("rejected key", func(t *testing.T) {
		fake := &geminiFake{status: http.StatusForbidden, body: `{"error":{"code":403,"message":"denied"}}`}
		srv := fake.server(t)
		g := NewGenerator(GeneratorConfig{APIKey: "bad", BaseURL: srv.URL})
		_, err := g.Generate(context.Background(), "hi", DefaultConfig())
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})

	t.Run("upstream failure", func(t *testing.T) {
		fake := &geminiFake{status: http.StatusInternalServerError, body: `{"error":{"code":500,"message":"backend down"}}`}
		srv := fake.server(t)
		g := NewGenerator(GeneratorConfig{APIKey: "k", BaseURL: srv.URL})
		_, err := g.Generate(context.Background(), "hi", DefaultConfig())
		var up *model.UpstreamError
		require.ErrorAs(t, err, &up)
		assert.Equal(t, "gemini", up.Service)
		assert.Equal(t, 500, up.Code)
		assert.Equal(t, "backend down", up.Message)
	})

	t.Run("no candidates", func(t *testing.T) {
		fake := &geminiFake{status: http.StatusOK, body: `{"candidates":[]}`}
		srv := fake.server(t)
		g := NewGenerator(GeneratorConfig{APIKey: "k", BaseURL: srv.URL})
		_, err := g.Generate(context.Background(), "hi", DefaultConfig())
		assert.ErrorIs(t, err, model.ErrGeneration)
	})

	t.Run("blank text", func(t *testing.T) {
		fake := &geminiFake{status: http.StatusOK, body: candidate("   ")}
		srv := fake.server(t)
		g := NewGenerator(GeneratorConfig{APIKey: "k", BaseURL: srv.URL})
		_, err := g.Generate(context.Background(), "hi", DefaultConfig())
		assert.ErrorIs(t, err, model.ErrGeneration)
	})

	t.Run("network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		g := NewGenerator(GeneratorConfig{APIKey: "k", BaseURL: url})
		_, err := g.Generate(context.Background(), "hi", DefaultConfig())
		assert.True(t, model.IsTransport(err))
	})
}

func TestTemplateStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTemplateStore(store.NewMemory())

	list, err := ts.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = ts.Add(ctx, "u1", "  ")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = ts.Add(ctx, "u1", "Thanks! [REPLY]")
	require.NoError(t, err)
	list, err = ts.Add(ctx, "u1", "[REPLY] -- team")
	require.NoError(t, err)
	assert.Equal(t, []string{"Thanks! [REPLY]", "[REPLY] -- team"}, list)

	got, err := ts.Get(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, "[REPLY] -- team", got)
	_, err = ts.Get(ctx, "u1", 2)
	assert.ErrorIs(t, err, model.ErrNotFound)

	other, err := ts.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)

	list, err = ts.Delete(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"[REPLY] -- team"}, list)

	_, err = ts.Delete(ctx, "u1", 5)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = ts.Delete(ctx, "u1", -1)
	assert.ErrorIs(t, err, model.ErrNotFound)

	list, err = ts.Delete(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
