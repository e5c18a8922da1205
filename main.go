package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/jalemieux/hermes/cmd/api"
	authDelivery "github.com/jalemieux/hermes/internal/auth/delivery"
	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	authRepo "github.com/jalemieux/hermes/internal/auth/repository"
	authUsecase "github.com/jalemieux/hermes/internal/auth/usecase"
	emailDelivery "github.com/jalemieux/hermes/internal/email/delivery"
	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	emailRepo "github.com/jalemieux/hermes/internal/email/repository"
	emailUsecase "github.com/jalemieux/hermes/internal/email/usecase"
	"github.com/jalemieux/hermes/internal/mailbox"
	newsletterDelivery "github.com/jalemieux/hermes/internal/newsletter/delivery"
	newsletterdomain "github.com/jalemieux/hermes/internal/newsletter/domain"
	newsletterRepo "github.com/jalemieux/hermes/internal/newsletter/repository"
	newsletterUsecase "github.com/jalemieux/hermes/internal/newsletter/usecase"
	"github.com/jalemieux/hermes/internal/notification"
	summaryDelivery "github.com/jalemieux/hermes/internal/summary/delivery"
	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"
	summaryRepo "github.com/jalemieux/hermes/internal/summary/repository"
	summaryUsecase "github.com/jalemieux/hermes/internal/summary/usecase"
	taskDelivery "github.com/jalemieux/hermes/internal/task/delivery"
	taskdomain "github.com/jalemieux/hermes/internal/task/domain"
	taskRepo "github.com/jalemieux/hermes/internal/task/repository"
	"github.com/jalemieux/hermes/internal/task/scheduler"
	taskUsecase "github.com/jalemieux/hermes/internal/task/usecase"
	"github.com/jalemieux/hermes/pkg/ai"
	"github.com/jalemieux/hermes/pkg/amqp"
	"github.com/jalemieux/hermes/pkg/bloom"
	"github.com/jalemieux/hermes/pkg/chroma"
	"github.com/jalemieux/hermes/pkg/config"
	"github.com/jalemieux/hermes/pkg/database"
	"github.com/jalemieux/hermes/pkg/fcm"
	"github.com/jalemieux/hermes/pkg/gmail"
	"github.com/jalemieux/hermes/pkg/imap"
	"github.com/jalemieux/hermes/pkg/logger"
	"github.com/jalemieux/hermes/pkg/secret"
	"github.com/jalemieux/hermes/pkg/sse"
	"github.com/jalemieux/hermes/pkg/storage"

	log "github.com/sirupsen/logrus"
)

const jobWatch = "gmail_watch"

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.FCMToken{},
		&emaildomain.ExtractedEmail{}, &emaildomain.Topic{}, &emaildomain.NewsItem{}, &emaildomain.Source{},
		&emaildomain.IndexEntry{},
		&newsletterdomain.Subscription{},
		&summarydomain.Summary{},
		&taskdomain.TaskExecution{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Repositories
	userRepository := authRepo.NewUserRepository(db)
	fcmTokenRepository := authRepo.NewFCMTokenRepository(db)
	ledger := emailRepo.NewExtractedEmailRepository(db)
	indexHistory := emailRepo.NewIndexHistoryRepository(db)
	subscriptions := newsletterRepo.NewSubscriptionRepository(db)
	summaries := summaryRepo.NewSummaryRepository(db)
	executions := taskRepo.NewTaskExecutionRepository(db)

	sseManager := sse.NewManager()
	go sseManager.Run()

	// LLM provider, the Ollama endpoint can be changed at runtime
	settings := api.NewRuntimeSettings(cfg.OllamaBaseURL, cfg.OllamaModel)
	provider, err := ai.NewProvider(ai.Config{
		Provider:         ai.ProviderType(cfg.AIProvider),
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIModel:      cfg.OpenAIModel,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
		AnthropicModel:   cfg.AnthropicModel,
		GeminiAPIKey:     cfg.GeminiApiKey,
		GetOllamaBaseURL: settings.OllamaBaseURL,
		GetOllamaModel:   settings.OllamaModel,
		Timeout:          cfg.Pipeline.LLMTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	log.Infof("AI provider ready: %s", provider.Name())

	// IMAP passwords are sealed at rest; without SECRET_KEY only Gmail inboxes work
	var sealer authUsecase.Sealer
	var opener mailbox.Opener
	if box, err := secret.NewBox(cfg.SecretKey); err == nil {
		sealer, opener = box, box
	} else {
		log.Warnf("SECRET_KEY not set, IMAP inboxes are disabled")
	}

	var gmailGateway mailbox.GmailGateway
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	if cfg.GoogleClientID != "" {
		gmailGateway = gmailService
	} else {
		log.Warn("GOOGLE_CLIENT_ID not set, Gmail inboxes are disabled")
	}
	imapService := imap.NewService()
	router := mailbox.NewRouter(gmailGateway, imapService, opener, userRepository)

	tasks := taskUsecase.NewTaskUsecase(executions)
	registry := newsletterUsecase.NewRegistryUsecase(subscriptions, ledger)
	authUc := authUsecase.NewAuthUsecase(userRepository, fcmTokenRepository, sealer, cfg)
	authUc.SetIMAPVerifier(imapService)

	// Ingestion
	extractor := emailUsecase.NewExtractor(ledger, registry, emailUsecase.NewNameStrategy(cfg.NameStrategy, provider), provider)
	if cfg.RedisURL != "" {
		filter, err := bloom.NewFilter(cfg.RedisURL)
		if err != nil {
			log.Warnf("Bloom filter disabled: %v", err)
		} else {
			defer filter.Close()
			extractor.SetSeenFilter(filter)
		}
	}

	var searchIndex *emailUsecase.SearchIndex
	if cfg.ChromaAPIKey != "" || cfg.ChromaURL != "" {
		chromaClient, err := chroma.NewChromaClient(cfg)
		if err != nil {
			log.Warnf("Semantic search disabled: %v", err)
		} else {
			searchIndex = emailUsecase.NewSearchIndex(chromaClient, indexHistory)
		}
	}

	ingestion := emailUsecase.NewIngestionService(userRepository, router, extractor, ledger, tasks, emailUsecase.IngestionConfig{
		Lookback:  cfg.Pipeline.Lookback,
		MaxPerRun: cfg.Pipeline.MaxNewslettersPerDay,
	})
	if searchIndex != nil {
		ingestion.SetSearchIndex(searchIndex)
	}
	emailUc := emailUsecase.NewEmailUsecase(ledger, indexHistory, searchIndex)

	// Digests and their completion sinks
	notifier := summaryUsecase.NewDigestNotifier().WithEvents(sseManager)
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Warnf("Push notifications disabled: %v", err)
		} else {
			notifier.WithPush(fcmClient, fcmTokenRepository)
		}
	}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL)
		if err == nil {
			err = amqpClient.SetupTopology(cfg.AMQPExchange)
		}
		if err != nil {
			log.Warnf("Voice pipeline messages disabled: %v", err)
		} else {
			defer amqpClient.Close()
			notifier.WithPublisher(amqp.NewPublisher(amqpClient, cfg.AMQPExchange))
		}
	}
	if cfg.S3Bucket != "" {
		scripts, err := storage.NewScriptStore(ctx, cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			log.Warnf("Script upload disabled: %v", err)
		} else {
			notifier.WithScripts(scripts)
		}
	}

	jobTimeout := 2 * cfg.Pipeline.LLMTimeout
	summaryUc := summaryUsecase.NewSummaryUsecase(
		summaries,
		summaryUsecase.NewEngine(ledger, provider),
		ledger,
		registry,
		userRepository,
		tasks,
		notifier,
		summaryUsecase.Config{
			Cooldown:   cfg.Pipeline.Cooldown,
			Window:     cfg.Pipeline.DigestWindow,
			StaleAfter: cfg.Pipeline.Cooldown + summaryUsecase.QueueDrainTime(cfg.Pipeline.SummaryWorkers, jobTimeout),
		},
	)
	worker := summaryUsecase.NewSummaryWorkerService(summaryUc, sseManager, cfg.Pipeline.SummaryWorkers, jobTimeout)
	worker.Start()

	// Batch jobs
	sched := scheduler.NewScheduler()
	mustRegister(sched, scheduler.JobIngest, cfg.Schedules.Ingest, 30*time.Minute, func(ctx context.Context) error {
		_, err := ingestion.RunAll(ctx)
		return err
	})
	mustRegister(sched, scheduler.JobDigest, cfg.Schedules.Digest, time.Hour, func(ctx context.Context) error {
		_, err := summaryUc.RunDailyDigests(ctx)
		return err
	})
	mustRegister(sched, scheduler.JobSweep, cfg.Schedules.Sweep, time.Minute, func(ctx context.Context) error {
		return tasks.Track("sweep_stale_summaries", func() error {
			_, err := summaryUc.SweepStale(time.Now())
			return err
		})
	})
	mustRegister(sched, scheduler.JobRetention, cfg.Schedules.Retention, 10*time.Minute, func(ctx context.Context) error {
		return tasks.Track("delete_emails_without_audio", func() error {
			_, err := emailUc.Purge(cfg.Pipeline.Retention)
			return err
		})
	})

	// Gmail push: ingest on arrival instead of waiting for the hourly run
	var notifService *notification.Service
	if cfg.GoogleProjectID != "" && cfg.GooglePubSubTopic != "" && gmailGateway != nil {
		notifService, err = notification.NewService(ctx, cfg.GoogleProjectID, cfg.GooglePubSubTopic, cfg.GoogleCredentials, userRepository, ingestion, sseManager)
		if err != nil {
			log.Errorf("Gmail push disabled: %v", err)
		} else {
			go notifService.Start(ctx)
			mustRegister(sched, jobWatch, "@daily", 10*time.Minute, func(ctx context.Context) error {
				return tasks.Track(jobWatch, func() error {
					return notifService.RenewWatches(ctx, gmailService)
				})
			})
			if err := sched.RunNow(jobWatch); err != nil {
				log.Warnf("Initial Gmail watch failed to start: %v", err)
			}
		}
	} else {
		log.Info("Gmail push not configured, relying on scheduled ingestion")
	}
	sched.Start()

	handler := &api.Handler{
		AuthUsecase: authUc,
		SSEManager:  sseManager,
		Settings:    settings,
		Auth:        authDelivery.NewAuthHandler(authUc),
		Emails:      emailDelivery.NewEmailHandler(emailUc, ingestion),
		Newsletters: newsletterDelivery.NewNewsletterHandler(registry),
		Summaries:   summaryDelivery.NewSummaryHandler(summaryUc, worker),
		Tasks:       taskDelivery.NewTaskHandler(tasks, sched),
	}
	server := handler.Server(":" + cfg.Port)

	go func() {
		log.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sseManager.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP shutdown: %v", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Errorf("Scheduler shutdown: %v", err)
	}
	worker.Stop(shutdownCtx)
	if notifService != nil {
		notifService.Close()
	}
}

func mustRegister(s *scheduler.Scheduler, name, spec string, timeout time.Duration, run scheduler.RunFunc) {
	if err := s.Register(name, spec, timeout, run); err != nil {
		log.Fatalf("Failed to schedule %s: %v", name, err)
	}
}
