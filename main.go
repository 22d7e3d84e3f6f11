// File: harold/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"harold/config"
	"harold/cron"
	"harold/database"
	"harold/database/migrations"
	"harold/database/repository"
	faqRepo "harold/database/repository/faq"
	reservationRepo "harold/database/repository/reservation"
	"harold/handlers"
	"harold/middleware"
	"harold/routes"
	"harold/services/booking"
	ai "harold/services/intelligence"
	"harold/services/tasks"
	"harold/utils"
	"harold/utils/clock"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

// storage is the reservation backend selected by STORAGE_DRIVER.
type storage struct {
	repo repository.ReservationRepository
	faqs repository.FAQRepository
	ping utils.Pinger
}

func openStorage(ctx context.Context, logger *zap.Logger) storage {
	rooms := reservationRepo.DefaultRooms()

	switch config.AppConfig.StorageDriver {
	case "memory":
		logger.Warn("Using in-memory reservation storage; data is lost on restart")
		return storage{
			repo: repository.NewMemoryReservationRepo(rooms),
			faqs: faqRepo.DefaultFAQs(),
			ping: utils.PingFunc(func(context.Context) error { return nil }),
		}

	case "postgres":
		database.InitPostgres()
		if err := migrations.Apply(ctx, database.PostgresPool); err != nil {
			logger.Fatal("main: failed to apply migrations", zap.Error(err))
		}
		repo := repository.NewPostgresReservationRepo(database.PostgresPool)
		if err := repo.SeedRooms(ctx, rooms); err != nil {
			logger.Fatal("main: failed to seed rooms", zap.Error(err))
		}
		return storage{repo: repo, faqs: faqRepo.DefaultFAQs(), ping: database.PostgresPool}

	default:
		database.InitDB()
		repo := repository.NewMongoReservationRepo(database.MongoDB())
		if err := repo.EnsureIndexes(); err != nil {
			logger.Fatal("main: failed to ensure reservation indexes", zap.Error(err))
		}
		if err := repo.SeedRooms(ctx, rooms); err != nil {
			logger.Fatal("main: failed to seed rooms", zap.Error(err))
		}
		return storage{
			repo: repo,
			faqs: repository.NewMongoFAQRepo(database.MongoDB()),
			ping: utils.PingFunc(database.PingMongo),
		}
	}
}

// loadFAQs indexes the curated FAQs, falling back to the built-in set when the store is empty.
func loadFAQs(ctx context.Context, source repository.FAQRepository, logger *zap.Logger) *ai.BagOfWordsSearcher {
	searcher := ai.NewBagOfWordsSearcher(source)
	n, err := searcher.Load(ctx)
	if err != nil {
		logger.Error("Failed to load FAQs", zap.Error(err))
	}
	if n == 0 {
		searcher = ai.NewBagOfWordsSearcher(faqRepo.DefaultFAQs())
		n, _ = searcher.Load(ctx)
	}
	logger.Info("FAQ index ready", zap.Int("faqs", n))
	return searcher
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	clk := clock.NewSystem()
	store := openStorage(rootCtx, logger)

	// Payments.
	var payments booking.PaymentProvider = booking.NoopPaymentProvider{}
	if config.AppConfig.StripeKey != "" {
		stripe.Key = config.AppConfig.StripeKey
		payments = booking.NewStripePaymentProvider(logger)
	}

	// Conversation context and the expiry queue share the redis server.
	var (
		ctxStore     ai.ContextStore
		scheduler    booking.ExpiryScheduler
		redisClients []*redis.Client
		queue        *asynq.Client
	)
	if config.AppConfig.StorageDriver != "memory" && config.AppConfig.RedisAddr != "" {
		client := utils.GetContextClient()
		redisClients = append(redisClients, client)
		ctxStore = ai.NewRedisContextStore(client, config.AppConfig.ConversationTTL, logger)

		queue = asynq.NewClient(utils.QueueRedisOpt())
		defer queue.Close()
		scheduler = tasks.NewAsynqExpiryScheduler(queue)
	} else {
		logger.Warn("Redis disabled: conversation context is in-process and pending reservations do not expire")
		ctxStore = ai.NewMemoryContextStore(config.AppConfig.ConversationTTL)
	}

	reservations := booking.NewReservationService(store.repo, payments, scheduler, clk, logger, booking.Options{
		Currency:       config.AppConfig.Currency,
		ConfirmBaseURL: config.AppConfig.ConfirmBaseURL,
		PendingHold:    config.AppConfig.PendingHold,
	})

	if queue != nil {
		worker := cron.NewExpiryWorker(utils.QueueRedisOpt(), reservations, logger)
		worker.Start()
		defer worker.Shutdown()
	}

	// Language model. Without a key every reply uses canned text and keyword intents.
	var (
		generator  ai.Generator
		structured ai.StructuredExtractor
		classifier ai.IntentClassifier = ai.KeywordClassifier{}
	)
	if config.AppConfig.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(rootCtx, config.AppConfig.GeminiAPIKey, config.AppConfig.GeminiModel, config.AppConfig.LLMTimeout, logger)
		if err != nil {
			logger.Fatal("main: failed to initialize Gemini client", zap.Error(err))
		}
		defer gemini.Close()
		generator = gemini
		structured = gemini
		classifier = ai.FallbackClassifier{Primary: gemini, Logger: logger}
	} else {
		logger.Warn("GEMINI_API_KEY not set: using canned replies")
	}

	orchestrator := ai.NewOrchestrator(ai.OrchestratorDeps{
		Store:        ctxStore,
		Extractor:    ai.NewExtractor(reservations, structured, clk, logger),
		Classifier:   classifier,
		Generator:    generator,
		FAQ:          loadFAQs(rootCtx, store.faqs, logger),
		Reservations: reservations,
		Clock:        clk,
		Logger:       logger,
		FAQMinScore:  config.AppConfig.FAQMinScore,
	})

	utils.StartHealthMonitor(rootCtx, redisClients, store.ping, 30*time.Second)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	routes.RegisterRoutes(router, &handlers.HandlerBundle{
		Logger:       logger,
		RateLimiter:  middleware.NewRateLimiter(config.AppConfig.MaxRequestsPerMin),
		Chat:         handlers.NewChatHandler(orchestrator, logger),
		Reservations: handlers.NewReservationHandler(reservations, logger),
	})

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	stopBackground()

	logger.Sugar().Info("main: server stopped gracefully")
}
