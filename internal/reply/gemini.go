package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/markdown"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/metrics"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-pro"
	serviceName    = "gemini"
)

// GeneratorConfig configures a Generator.
type GeneratorConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	RPS           float64
	Burst         int
	StripMarkdown bool
}

// Generator calls the Gemini generateContent endpoint.
type Generator struct {
	http      *http.Client
	baseURL   string
	model     string
	apiKey    string
	limiter   *rate.Limiter
	flattener *markdown.Flattener
	log       zerolog.Logger
}

// NewGenerator creates a Generator. A missing API key is reported per call.
func NewGenerator(cfg GeneratorConfig) *Generator {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	g := &Generator{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		model:   model,
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(limit, burst),
		log:     log.With().Str("component", "gemini").Logger(),
	}
	if cfg.StripMarkdown {
		g.flattener = markdown.NewFlattener()
	}
	return g
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate produces a reply to commentText shaped by cfg, with the template
// (if any) applied.
func (g *Generator) Generate(ctx context.Context, commentText string, cfg Config) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("gemini api key is not set: %w", model.ErrConfiguration)
	}
	if strings.TrimSpace(commentText) == "" {
		return "", fmt.Errorf("empty comment text: %w", model.ErrGeneration)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	text, err := g.generate(ctx, BuildPrompt(commentText, cfg), MaxTokens(cfg.Length))
	metrics.ObserveGeneration(g.model, start, err)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if g.flattener != nil {
		text = g.flattener.PlainText(text)
	}
	if text == "" {
		return "", fmt.Errorf("model returned no text: %w", model.ErrGeneration)
	}
	return ApplyTemplate(cfg.Template, text), nil
}

func (g *Generator) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", g.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &model.UpstreamError{Service: serviceName, Op: "generateContent", Message: "network error", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &model.UpstreamError{Service: serviceName, Op: "generateContent", Message: "read response", Err: err}
	}

	if resp.StatusCode >= 400 {
		return "", g.apiError(resp.StatusCode, respBody)
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", model.ErrGeneration)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		g.log.Warn().Msg("response has no candidate text")
		return "", fmt.Errorf("gemini: no candidates in response: %w", model.ErrGeneration)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func (g *Generator) apiError(status int, body []byte) error {
	var apiErr apiErrorResponse
	msg := http.StatusText(status)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}
	g.log.Warn().Int("status", status).Str("message", msg).Msg("generateContent failed")

	if status == http.StatusUnauthorized || status == http.StatusForbidden || strings.Contains(msg, "API key not valid") {
		return fmt.Errorf("gemini: %s: %w", msg, model.ErrConfiguration)
	}
	return &model.UpstreamError{Service: serviceName, Op: "generateContent", Code: status, Message: msg}
}
