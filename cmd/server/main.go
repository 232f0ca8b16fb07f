package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coldsend-backend/config"
	"coldsend-backend/handlers"
	"coldsend-backend/models"
	"coldsend-backend/repository"
	"coldsend-backend/service"
	"coldsend-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize storage
	stateStore, err := initStateStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize state storage: %v", err)
	}
	documents, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize document storage: %v", err)
	}
	log.Println("Storage initialized")

	// Seed settings from the environment, then the local seed file
	seed, err := repository.NewSettingsFileRepository(cfg.SettingsFile).Load()
	if err != nil {
		log.Printf("Warning: Failed to read settings file %s: %v", cfg.SettingsFile, err)
	}
	settingsService := service.NewSettingsService(cfg.Defaults.Merge(seed))
	if resume := settingsService.Snapshot().ResumePath; resume != "" && !strings.HasPrefix(resume, "resumes/") {
		key, err := storage.ImportFile(context.Background(), documents, resume, "resumes/imported")
		if err != nil {
			log.Printf("Warning: Failed to import resume %s: %v", resume, err)
		} else {
			settingsService.Save(models.Settings{ResumePath: key})
			log.Printf("Resume %s imported as %s", resume, key)
		}
	}
	if missing := settingsService.Snapshot().MissingForGeneration(); len(missing) > 0 {
		log.Printf("Settings incomplete (missing %v); generation is disabled until /save-settings is called", missing)
	}

	// Initialize token manager
	if !cfg.OAuthConfigured() {
		log.Println("Warning: MICROSOFT_CLIENT_ID or MICROSOFT_CLIENT_SECRET not set; mail sign-in will fail")
	}
	tokenRepo := repository.NewTokenRepository(stateStore, repository.DefaultTokenKey)
	oauthConfig := service.NewMicrosoftOAuthConfig(cfg.MicrosoftClientID, cfg.MicrosoftClientSecret, cfg.MicrosoftTenantID, cfg.RedirectURL)
	tokenManager := service.NewTokenManager(tokenRepo, oauthConfig)

	location, err := service.LoadScheduleLocation(cfg.MailTimezone)
	if err != nil {
		log.Fatalf("Invalid MAIL_TIMEZONE %q: %v", cfg.MailTimezone, err)
	}

	// Initialize services
	outreachService := service.NewOutreachService(
		service.OutreachWithSettings(settingsService),
		service.OutreachWithGenerator(service.NewGeminiGenerator(cfg.GeminiModel)),
	)

	mailService := service.NewMailService(
		service.MailWithTokenRefresher(tokenManager),
		service.MailWithDocuments(documents),
		service.MailWithLocation(location),
	)

	apolloService := service.NewApolloService(settingsService, nil)

	stateKey := []byte(cfg.StateSigningKey)
	if len(stateKey) == 0 {
		// login links then only survive until restart
		stateKey = []byte(uuid.NewString())
	}
	stateSigner := service.NewStateSigner(stateKey)

	// Setup Gin router
	r := gin.Default()
	r.Use(handlers.RequestIDMiddleware(), handlers.CORSMiddleware(cfg.AllowedOrigins))

	handlers.RegisterRoutes(r, handlers.Handlers{
		Outreach: handlers.NewOutreachHandler(outreachService, mailService, tokenManager, settingsService),
		Settings: handlers.NewSettingsHandler(settingsService),
		Apollo:   handlers.NewApolloHandler(apolloService),
		Auth:     handlers.NewAuthHandler(tokenManager, stateSigner),
		Resume:   handlers.NewResumeHandler(documents, settingsService),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
}

// initStateStorage opens the local directory holding the token file, sealed
// when STATE_ENCRYPTION_KEY is set
func initStateStorage(cfg *config.Config) (storage.Storage, error) {
	local, err := storage.NewLocalStorage(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	if cfg.StateEncryptionKey == "" {
		log.Printf("Warning: STATE_ENCRYPTION_KEY not set; token file in %s is stored in plain text", cfg.StateDir)
		return local, nil
	}
	sealed, err := storage.NewSealedStorage(local, cfg.StateEncryptionKey)
	if err != nil {
		return nil, err
	}
	return sealed, nil
}
