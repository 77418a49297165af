package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/auth"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/autoreply"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/cache"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/config"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/crypto"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/handler"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/lease"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/quota"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/reply"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/secret"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/youtube"
)

// App holds the dependencies shared by the Lambda and the local server.
type App struct {
	authHandler    *handler.AuthHandler
	youtubeHandler *handler.YouTubeHandler
	replies        *autoreply.Manager
	frontendURL    string
	closers        []func()
	log            zerolog.Logger
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(level string, devMode bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if devMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// New resolves secrets, opens the store and wires every component.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := log.With().Str("component", "app").Logger()

	var awsCfg aws.Config
	needsAWS := !cfg.DevMode || cfg.Store.Backend == config.BackendDynamoDB || cfg.LeaseTable != ""
	if needsAWS {
		var err error
		if awsCfg, err = awsconfig.LoadDefaultConfig(ctx); err != nil {
			return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
		}
	}

	// ---------- Secrets ----------
	var resolver secret.Resolver
	if cfg.DevMode {
		resolver = secret.NewEnvResolver()
		logger.Info().Msg("using EnvResolver (DEV_MODE=true)")
	} else {
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(awsCfg))
		logger.Info().Msg("using SSMResolver (SSM Parameter Store)")
	}
	if err := secret.Load(ctx, resolver, cfg.SecretSpecs()...); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// ---------- Storage ----------
	kv, closeStore, err := openStore(ctx, cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	a := &App{frontendURL: cfg.FrontendURL, log: logger}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}
	logger.Info().Str("backend", cfg.Store.Backend).Msg("store ready")

	var sealer crypto.Sealer
	if cfg.DevMode {
		sealer = crypto.NewPlainSealer()
		logger.Info().Msg("using PlainSealer (DEV_MODE=true)")
	} else {
		sealer = crypto.NewKMSSealer(kms.NewFromConfig(awsCfg), cfg.KMSKeyID)
	}

	loc, err := time.LoadLocation(cfg.QuotaTZ)
	if err != nil {
		return nil, fmt.Errorf("%w: QUOTA_TZ %q: %v", model.ErrConfiguration, cfg.QuotaTZ, err)
	}

	// ---------- Services ----------
	authService := auth.NewAuthService(
		auth.NewOAuthConfig(cfg.Google.ClientID, cfg.GoogleClientSecret, cfg.Google.RedirectURL),
		kv, sealer,
	)
	provider := youtube.NewProvider(authService, cfg.YouTubeAPIKey, cache.New(kv), quota.NewTracker(kv, loc))

	generator := reply.NewGenerator(reply.GeneratorConfig{
		APIKey:        cfg.GeminiAPIKey,
		BaseURL:       cfg.Gemini.BaseURL,
		Model:         cfg.Gemini.Model,
		Timeout:       cfg.Gemini.Timeout,
		RPS:           cfg.Gemini.RPS,
		Burst:         cfg.Gemini.Burst,
		StripMarkdown: cfg.Gemini.StripMarkdown,
	})
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("gemini api key not set, auto-replies will fail")
	}

	var leaser lease.Leaser = lease.NewMemoryLeaser()
	if cfg.LeaseTable != "" {
		leaser = lease.NewDynamoLeaser(newDynamoClient(awsCfg), cfg.LeaseTable)
	}
	a.replies = autoreply.NewManager(generator, autoreply.NewRecord(kv), leaser, autoreply.Options{
		Concurrency: cfg.AutoReply.Concurrency,
		LeaseTTL:    cfg.AutoReply.LeaseTTL,
	})

	// ---------- Handlers ----------
	a.authHandler = handler.NewAuthHandler(authService, cfg.JWTSecret, cfg.FrontendURL, cfg.DevMode, nil)
	a.youtubeHandler = handler.NewYouTubeHandler(provider, reply.NewTemplateStore(kv), a.replies, cfg.JWTSecret, cfg.AutoReply.Wait)

	return a, nil
}

// Close stops running auto-replies and releases store connections.
func (app *App) Close() {
	app.replies.Shutdown()
	for _, c := range app.closers {
		c()
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	method := req.HTTPMethod
	// Strip /api prefix if present (for CloudFront proxying)
	path := strings.TrimPrefix(req.Path, "/api")
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}

	app.log.Debug().Str("method", method).Str("path", path).Msg("request")

	if method == http.MethodOptions {
		return app.corsResponse(events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}), nil
	}

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}
	if req.QueryStringParameters == nil {
		req.QueryStringParameters = make(map[string]string)
	}

	a, y := app.authHandler, app.youtubeHandler
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	// /auth
	case path == "/auth/login" && method == http.MethodGet:
		return app.corsResponse(must(a.Login(ctx, req))), nil
	case path == "/auth/callback" && method == http.MethodGet:
		return app.corsResponse(must(a.Callback(ctx, req))), nil
	case path == "/auth/logout" && method == http.MethodPost:
		return app.corsResponse(must(a.Logout(ctx, req))), nil
	case path == "/auth/refresh" && method == http.MethodPost:
		return app.corsResponse(must(a.Refresh(ctx, req))), nil

	// /channels, /channels/{id}/videos
	case path == "/channels" && method == http.MethodGet:
		return app.corsResponse(must(y.ListChannels(ctx, req))), nil
	case len(parts) == 3 && parts[0] == "channels" && parts[2] == "videos" && method == http.MethodGet:
		req.PathParameters["id"] = parts[1]
		return app.corsResponse(must(y.ListVideos(ctx, req))), nil

	// /videos/{id}/comments
	case len(parts) == 3 && parts[0] == "videos" && parts[2] == "comments" && method == http.MethodGet:
		req.PathParameters["id"] = parts[1]
		return app.corsResponse(must(y.ListComments(ctx, req))), nil

	// /comments/{id}/reply
	case len(parts) == 3 && parts[0] == "comments" && parts[2] == "reply" && method == http.MethodPost:
		req.PathParameters["id"] = parts[1]
		return app.corsResponse(must(y.PostReply(ctx, req))), nil

	// /replies, /replies/{id}
	case path == "/replies" && method == http.MethodGet:
		return app.corsResponse(must(y.ListReplies(ctx, req))), nil
	case len(parts) == 2 && parts[0] == "replies" && method == http.MethodDelete:
		req.PathParameters["id"] = parts[1]
		return app.corsResponse(must(y.CancelReply(ctx, req))), nil

	// /templates
	case path == "/templates" && method == http.MethodGet:
		return app.corsResponse(must(y.ListTemplates(ctx, req))), nil
	case path == "/templates" && method == http.MethodPost:
		return app.corsResponse(must(y.AddTemplate(ctx, req))), nil
	case len(parts) == 2 && parts[0] == "templates" && method == http.MethodDelete:
		req.PathParameters["index"] = parts[1]
		return app.corsResponse(must(y.DeleteTemplate(ctx, req))), nil

	case path == "/quota" && method == http.MethodGet:
		return app.corsResponse(must(y.GetQuota(ctx, req))), nil
	case path == "/analytics" && method == http.MethodGet:
		return app.corsResponse(must(y.GetAnalytics(ctx, req))), nil
	}

	return app.corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.frontendURL
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,DELETE,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, hiding the error from the client.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		log.Error().Err(err).Msg("handler error")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
