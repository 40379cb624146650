package main

import (
	"context"
	"log"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"analystagent/config"
	"analystagent/generator"
	"analystagent/logger"
	"analystagent/natshandler"
	"analystagent/pipeline"
	"analystagent/pkg"
	"analystagent/routes"
	"analystagent/sandbox"
	"analystagent/workspace"
)

func main() {
	zl, _ := zap.NewProduction()
	defer zl.Sync()

	cfg := config.LoadConfig()

	if cfg.LLMAPIKey == "" {
		zl.Fatal("LLMAPIKEY not found. Please check your .env file.")
	}

	ws, err := workspace.Resolve(cfg.WorkspaceDir)
	if err != nil {
		zl.Fatal("Failed to resolve workspace directory",
			zap.String("dir", cfg.WorkspaceDir),
			zap.Error(err))
	}

	runner, err := sandbox.New(sandbox.Options{
		Image:         cfg.SandboxImage,
		ContainerName: cfg.ContainerName,
		Timeout:       cfg.ExecTimeout,
		MemoryLimitMB: cfg.MemoryLimitMB,
		NanoCPUs:      cfg.NanoCPUs,
	})
	if err != nil {
		zl.Fatal("Failed to create sandbox runner", zap.Error(err))
	}

	// The image is a precondition, never fetched at runtime.
	if err := runner.CheckImage(context.Background()); err != nil {
		zl.Fatal("Sandbox Docker image not found. Exiting...",
			zap.String("image", cfg.SandboxImage),
			zap.Error(err))
	}

	gen := generator.NewOpenAIGenerator(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	streamer := logger.NewStageStreamer(cfg.LogSourceToken, cfg.Environment, cfg.LogUploadURL, zl)
	pipe := pipeline.New(gen, runner, ws, cfg.SourceURL, zl, streamer)

	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			zl.Fatal("Failed to connect to NATS",
				zap.String("url", cfg.NatsURL),
				zap.Error(err))
		}
		defer nc.Close()

		nc.Subscribe("sandbox.execute.request", func(msg *nats.Msg) {
			natshandler.HandleSandboxRequest(msg, nc, runner, ws.Dir())
		})
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	limiter := pkg.NewRateLimiter(500 * time.Millisecond)
	routes.Register(r, routes.NewAnalysisService(pipe, zl), limiter)

	color.Green("analyst agent listening on :%s (workspace: %s)", cfg.Port, ws.Dir())
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
