package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"sandboxsignup/internal/botcheck"
	"sandboxsignup/internal/config"
	"sandboxsignup/internal/database"
	"sandboxsignup/internal/directory"
	"sandboxsignup/internal/middleware"
	signuphttp "sandboxsignup/internal/modules/signup"
	"sandboxsignup/internal/pkg/jwt"
)

func main() {
	_ = godotenv.Load()

	poolConfigPath := os.Getenv("POOL_CONFIG")
	if poolConfigPath == "" {
		poolConfigPath = "config/config.json"
	}

	// A config failure is fatal: without a valid directory endpoint there is
	// no form to serve.
	cfg, err := config.Load(poolConfigPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		dir     directory.Client
		devpool *directory.DevPool
	)
	switch cfg.DirectoryProvider {
	case "cognito":
		cognito, err := directory.NewCognito(context.Background(), cfg.Pool.Region, cfg.Pool.ClientID)
		if err != nil {
			log.Fatalf("cognito directory: %v", err)
		}
		dir = cognito
	default:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect failed: %v", err)
		}
		pool := directory.NewDevPool(
			db,
			directory.NewDevConsoleSender(cfg.DevCodeLog),
			jwt.New(cfg.JWTSecret, cfg.JWTTTL),
			cfg.CodePepper,
			cfg.CodeTTL,
			cfg.ResendCooldown,
		)
		if err := pool.AutoMigrate(); err != nil {
			log.Fatalf("dev pool migrate failed: %v", err)
		}
		dir = pool
		devpool = pool
	}

	var bc botcheck.Provider
	if cfg.BotCheckProvider == "http" {
		bc = botcheck.NewHTTPProvider(cfg.BotCheckEndpoint, cfg.Pool.BotCheckSiteKey)
	} else {
		bc = botcheck.NewDevProvider(cfg.DevBotToken)
	}

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	handler := signuphttp.NewHandler(cfg, dir, bc, devpool)
	handler.RegisterRoutes(v1)

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
