package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"time"

	firebase "firebase.google.com/go"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"roomfinder/internal/config"
	"roomfinder/internal/contracts"
	"roomfinder/internal/geo"
	"roomfinder/internal/handlers"
	"roomfinder/internal/repositories"
	"roomfinder/internal/roomapi"
	"roomfinder/internal/services"
	"roomfinder/utils"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	logger   *slog.Logger

	auth           *services.AuthService
	rooms          *services.RoomService
	wizard         *services.ListingWizard
	hub            *EventHub
	searchDebounce time.Duration

	authHandler        *handlers.AuthHandler
	roomHandler        *handlers.RoomHandler
	bookingHandler     *handlers.BookingHandler
	draftHandler       *handlers.DraftHandler
	adminHandler       *handlers.AdminHandler
	preferencesHandler *handlers.PreferencesHandler
	deviceHandler      *handlers.DeviceHandler
}

func initializeApp(ctx context.Context, cfg config.Config, db *sql.DB, rdb *redis.Client, logger *slog.Logger, errorLog, infoLog *log.Logger) (*application, error) {
	api, err := roomapi.NewClient(roomapi.Config{
		BaseURL:      cfg.Upstream.BaseURL,
		Timeout:      cfg.Upstream.Timeout,
		Retries:      cfg.UpstreamRetries(),
		RetryBackoff: cfg.Upstream.RetryBackoff,
		Logger:       logger,

		HonorsIdempotencyKey: cfg.Upstream.HonorsIdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	tokens, err := utils.NewManager(cfg.Auth.SigningKey)
	if err != nil {
		return nil, err
	}
	validator, err := contracts.New()
	if err != nil {
		return nil, err
	}

	// Repositories
	sessions := repositories.NewSessionStore(rdb)
	reservations := repositories.NewReservationStore(rdb)
	roomCache := repositories.NewRoomCache(rdb, cfg.Bookings.RoomCacheTTL)
	locator := geo.NewListingLocator(rdb)
	drafts := &repositories.ListingDraftRepository{DB: db, Driver: cfg.Database.Driver}
	deviceTokens := &repositories.DeviceTokenRepository{DB: db, Driver: cfg.Database.Driver}
	moderation := &repositories.ModerationRepository{DB: db, Driver: cfg.Database.Driver}

	var images services.ImageStore
	if cfg.StorageEnabled() {
		store, err := utils.NewS3Storage(utils.StorageConfig{
			Endpoint:      cfg.Storage.Endpoint,
			Region:        cfg.Storage.Region,
			Bucket:        cfg.Storage.Bucket,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		images = store
	} else {
		logger.Warn("object storage is not configured, image uploads are disabled")
	}

	notifier, err := newNotifier(ctx, cfg, deviceTokens, logger)
	if err != nil {
		return nil, err
	}

	hub := NewEventHub(logger)

	// Services
	authService := services.NewAuthService(api, sessions, tokens, cfg.Auth.SessionTTL, logger)
	roomService := &services.RoomService{API: api, Cache: roomCache, Logger: logger}
	nearbyService := &services.NearbyService{
		Rooms:           api,
		Locator:         locator,
		IndexTTL:        cfg.Nearby.IndexTTL,
		DefaultRadiusKm: cfg.Nearby.DefaultRadiusKm,
		Logger:          logger,
	}
	bookingService := services.NewBookingService(api, api, roomCache, reservations, hub, notifier, cfg.Bookings.DedupWindow, logger)
	wizard := services.NewListingWizard(drafts, images, api, hub, logger)
	wizard.MaxImageBytes = cfg.Storage.MaxImageBytes
	wizard.DraftTTL = cfg.Drafts.TTL
	wizard.KeyPrefix = cfg.Storage.Prefix
	approvalService := services.NewApprovalService(api, moderation, roomCache, hub, notifier, logger)
	approvalService.Locator = locator

	// Handlers
	return &application{
		errorLog:       errorLog,
		infoLog:        infoLog,
		logger:         logger,
		auth:           authService,
		rooms:          roomService,
		wizard:         wizard,
		hub:            hub,
		searchDebounce: cfg.Search.Debounce,

		authHandler: &handlers.AuthHandler{Service: authService, Contracts: validator},
		roomHandler: &handlers.RoomHandler{
			Rooms:         roomService,
			NearbyService: nearbyService,
			Owner:         &services.OwnerService{API: api},
		},
		bookingHandler: &handlers.BookingHandler{Service: bookingService, Contracts: validator},
		draftHandler:   &handlers.DraftHandler{Wizard: wizard, Contracts: validator},
		adminHandler: &handlers.AdminHandler{
			Approval:  approvalService,
			Directory: &services.DirectoryService{API: api},
			Dashboard: &services.DashboardService{API: api, Logger: logger},
			Contracts: validator,
		},
		preferencesHandler: &handlers.PreferencesHandler{Service: &services.PreferencesService{API: api}, Contracts: validator},
		deviceHandler:      &handlers.DeviceHandler{Service: &services.DeviceService{Tokens: deviceTokens}, Contracts: validator},
	}, nil
}

// newNotifier connects Firebase Cloud Messaging when credentials are set.
func newNotifier(ctx context.Context, cfg config.Config, tokens services.DeviceTokenStore, logger *slog.Logger) (services.Notifier, error) {
	if cfg.Firebase.CredentialsFile == "" {
		logger.Warn("firebase credentials are not configured, push notifications are disabled")
		return services.NopNotifier{}, nil
	}
	fb, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := fb.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return services.NewFCMNotifier(client, tokens, logger), nil
}
