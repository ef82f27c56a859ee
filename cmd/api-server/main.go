// cmd/api-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agency-crm/internal/activity"
	"agency-crm/internal/api"
	"agency-crm/internal/auth"
	awsclients "agency-crm/internal/common/aws"
	"agency-crm/internal/common/config"
	"agency-crm/internal/common/database"
	"agency-crm/internal/common/logger"
	"agency-crm/internal/common/observability"
	"agency-crm/internal/notify"
	"agency-crm/internal/repository"
	"agency-crm/internal/service"
	"agency-crm/internal/storage"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting api server", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres is required.
	var pg *database.PostgresClient
	err = retryWithBackoff(ctx, 5, 2*time.Second, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	})
	if err != nil {
		log.Error("postgres unavailable", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer pg.Close()
	db := pg.GetDB()

	// Redis backs the public rate limiter. Optional: the limiter fails open.
	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		log.Warn("redis client init failed, rate limiting disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer redisClient.Close()
		if err := redisClient.Ping(ctx); err != nil {
			log.Warn("redis unreachable, rate limiter will fail open", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Elasticsearch mirrors the activity log. Optional.
	var es *elasticsearch.Client
	if cfg.Database.Elasticsearch.Enabled {
		esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			log.Warn("elasticsearch init failed, activity mirror disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			es = esClient.Client
		}
	}

	store, err := storage.Select(ctx, cfg.Storage, cfg.Integrations.AWS.Region, log)
	if err != nil {
		log.Error("storage init failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	// Outbound messaging gateway. Channels stay disabled when clients fail
	// to initialize; the queue logs and drops instead of crashing.
	var snsAPI notify.SNSAPI
	if cfg.Integrations.AWS.SNS.Enabled {
		c, err := awsclients.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			log.Warn("sns init failed, sms disabled", map[string]interface{}{"error": err.Error()})
		} else {
			snsAPI = c
		}
	}
	var sesAPI notify.SESAPI
	if cfg.Integrations.AWS.SES.Enabled {
		c, err := awsclients.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			log.Warn("ses init failed, email disabled", map[string]interface{}{"error": err.Error()})
		} else {
			sesAPI = c
		}
	}
	gateway := notify.NewGateway(snsAPI, sesAPI, cfg.Integrations)

	queue := notify.NewQueue(gateway, cfg.Notifications, log)
	queue.Start()
	defer queue.Close()

	// Repositories.
	submissionRepo := repository.NewSubmissionRepo(db)
	clientRepo := repository.NewClientRepo(db)
	linkRepo := repository.NewLinkRepo(db)
	documentRepo := repository.NewDocumentRepo(db)
	notificationRepo := repository.NewNotificationRepo(db)
	userRepo := repository.NewUserRepo(db)

	recorder := activity.NewRecorder(db, es, log)
	notifier := notify.NewService(userRepo, notificationRepo, queue, cfg, log)

	// Services.
	authSvc := auth.NewService(userRepo, recorder, cfg.Auth)
	submissionSvc := service.NewSubmissionService(db, submissionRepo, clientRepo, documentRepo, notifier, recorder, log)
	paymentSvc := service.NewPaymentService(db, submissionRepo, linkRepo, store, notifier, recorder, cfg, log)
	documentSvc := service.NewDocumentService(db, submissionRepo, linkRepo, documentRepo, store, notifier, recorder, cfg, log)
	clientSvc := service.NewClientService(clientRepo)

	rdb := redisRawClient(redisClient)
	server := api.NewServer(
		cfg, log, obs, authSvc,
		submissionSvc, paymentSvc, documentSvc, clientSvc,
		notificationRepo, userRepo, rdb,
		func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return pg.Ping(pingCtx)
		},
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("listening", map[string]interface{}{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", map[string]interface{}{"error": err.Error()})
	}
}

func redisRawClient(c *database.RedisClient) *redis.Client {
	if c == nil {
		return nil
	}
	return c.GetClient()
}

// retryWithBackoff retries fn with exponential delay. Used for dependencies
// that may come up after the service in orchestrated environments.
func retryWithBackoff(ctx context.Context, attempts int, initial time.Duration, fn func() error) error {
	delay := initial
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
