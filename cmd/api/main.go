package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/app"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	app.SetupLogging(cfg.LogLevel, cfg.DevMode)

	// The runtime freezes between invocations, so replies must finish in-request.
	cfg.AutoReply.Wait = true

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise application")
	}
	lambda.Start(application.HandleRequest)
}
