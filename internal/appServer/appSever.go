package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bondfyr/party-service/config"
	repository "github.com/bondfyr/party-service/internal/database/postgres"
	"github.com/bondfyr/party-service/internal/entity"
	"github.com/bondfyr/party-service/internal/service"
	"github.com/bondfyr/party-service/internal/transport"
	"github.com/bondfyr/party-service/internal/worker"

	"github.com/bondfyr/party-service/pkg/banktransfer"
	"github.com/bondfyr/party-service/pkg/postgres"
	"github.com/bondfyr/party-service/pkg/queue"
	"github.com/bondfyr/party-service/pkg/redis"
	"github.com/bondfyr/party-service/pkg/scheduler"
	"github.com/bondfyr/party-service/pkg/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	partyRepo := repository.NewPartyRepository(db)
	earningsRepo := repository.NewEarningsRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)

	// Initialize Telegram bot
	var telegramBot *telegram.Bot
	if cfg.Telegram.BotToken != "" {
		telegramBot = telegram.NewBot(cfg.Telegram.BotToken)
		logrus.Info("Telegram bot initialized")
	} else {
		logrus.Warn("Telegram bot token not provided, notifications disabled")
	}

	var redisQueue queue.Queue
	var dlqHandler queue.DLQHandler
	var taskPublisher service.TaskPublisher

	if cfg.Redis.URL != "" {
		redisConfig := queue.DefaultRedisQueueConfig()
		redisConfig.Addr = cfg.Redis.URL
		redisConfig.Password = cfg.Redis.Password
		redisConfig.DB = cfg.Redis.DB

		retryManager := queue.NewRetryManager(3, 5*time.Second)
		redisClient := redis.NewRedisClient(&cfg.Redis)
		defer redisClient.Close()
		dlqHandler = queue.NewDefaultDLQHandler(redisClient, redisConfig.DLQ, redisConfig.MainQueue)

		redisQueue, err = queue.NewRedisQueue(redisConfig, retryManager, dlqHandler)
		if err != nil {
			logrus.Errorf("Failed to initialize Redis queue: %v. Continuing without queue...", err)
			redisQueue = nil
			dlqHandler = nil
		} else {
			logrus.Info("Redis queue initialized")
			// Создаем адаптер для очереди
			taskPublisher = service.NewQueueAdapter(redisQueue)
		}
	}

	// Initialize bank transfer client
	bankClient := banktransfer.NewClient(cfg.BankTransfer.BaseURL, cfg.BankTransfer.APIKey, cfg.BankTransfer.Timeout)

	// Initialize services
	admissionService := service.NewAdmissionService(partyRepo, taskPublisher)
	ledgerService := service.NewLedgerService(earningsRepo, payoutRepo)
	payoutService := service.NewPayoutService(
		earningsRepo,
		payoutRepo,
		bankClient,
		taskPublisher,
		cfg.Payout.Threshold,
		entity.PayoutMethod(cfg.Payout.Method),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize task handler if queue is available
	if redisQueue != nil {
		var bot queue.TelegramBot
		if telegramBot != nil {
			bot = telegramBot
		}
		taskHandler := queue.NewTaskHandler(bot, cfg.Telegram.OperatorChat)

		// Start queue consumer
		go func() {
			if err := redisQueue.Subscribe(ctx, taskHandler.HandleTask); err != nil {
				logrus.Errorf("Queue subscriber error: %v", err)
			}
		}()
		logrus.Info("Queue subscriber started")
	}

	// Initialize and start payout scheduler
	payoutInterval := cfg.Payout.Interval
	if payoutInterval <= 0 {
		payoutInterval = 24 * time.Hour
	}
	payoutScheduler := scheduler.NewScheduler(payoutService, payoutInterval)
	go payoutScheduler.Start(ctx)
	logrus.Info("Payout scheduler started")

	// Initialize monitoring worker
	monitorInterval := time.Duration(cfg.Worker.MonitorInterval) * time.Minute
	if monitorInterval <= 0 {
		monitorInterval = 15 * time.Minute
	}
	var monitorBot queue.TelegramBot
	if telegramBot != nil {
		monitorBot = telegramBot
	}
	monitorWorker := worker.NewPayoutMonitorWorker(
		payoutService,
		dlqHandler,
		monitorBot,
		cfg.Telegram.OperatorChat,
		monitorInterval,
		cfg.Worker.DLQAlertThreshold,
	)
	go monitorWorker.Start(ctx)
	logrus.Info("Payout monitor worker started")

	// Initialize handlers
	partyHandler := transport.NewPartyHandler(admissionService)
	webhookHandler := transport.NewWebhookHandler(admissionService, ledgerService, cfg.Payments.WebhookSecret)
	payoutHandler := transport.NewPayoutHandler(ledgerService, payoutService, dlqHandler)

	// Setup HTTP server
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		routes := transport.InitRoutes(partyHandler, webhookHandler, payoutHandler, cfg.Admin.Token)
		if err := srv.Run(cfg, routes); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	if redisQueue != nil {
		if err := redisQueue.Close(); err != nil {
			logrus.Errorf("error occured on queue shutting down: %s", err.Error())
		}
	}
}
