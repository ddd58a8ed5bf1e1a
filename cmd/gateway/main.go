// cmd/gateway/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"financing-gateway/internal/common/aws"
	"financing-gateway/internal/common/config"
	"financing-gateway/internal/common/database"
	"financing-gateway/internal/common/logger"
	"financing-gateway/internal/common/observability"
	"financing-gateway/internal/offers/compare"
	"financing-gateway/internal/partner/adapters/capitalfloat"
	"financing-gateway/internal/partner/adapters/lendingkart"
	"financing-gateway/internal/partner/registry"
	"financing-gateway/internal/partner/toolkit"
	"financing-gateway/internal/store"
	"financing-gateway/internal/webhook"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting financing gateway...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild the logger with the configured level and format.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Cache.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch when enabled ---
	var es *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Register partner adapters ---
	reg := registry.New(log, cfg.Ranking.Preference)

	if pcfg := config.GetPartnerConfig(cfg, "lendingkart"); pcfg.Enabled {
		tk := toolkit.New(toolkit.Options{
			PartnerID:   "lendingkart",
			Timeout:     config.GetDuration(pcfg.Timeout),
			MaxAttempts: cfg.Retry.MaxAttempts,
			BackoffBase: config.GetDuration(cfg.Retry.BackoffBase),
			Logger:      log,
			Observer:    obs,
		})
		reg.Register(lendingkart.New(lendingkart.Config{
			BaseURL:       pcfg.BaseURL,
			APIKey:        pcfg.APIKey,
			PartnerRefID:  pcfg.PartnerRefID,
			WebhookSecret: pcfg.WebhookSecret,
		}, tk, log))
	}

	if pcfg := config.GetPartnerConfig(cfg, "capital_float"); pcfg.Enabled {
		tk := toolkit.New(toolkit.Options{
			PartnerID:   "capital_float",
			Timeout:     config.GetDuration(pcfg.Timeout),
			MaxAttempts: cfg.Retry.MaxAttempts,
			BackoffBase: config.GetDuration(cfg.Retry.BackoffBase),
			Logger:      log,
			Observer:    obs,
		})
		reg.Register(capitalfloat.New(capitalfloat.Config{
			BaseURL:       pcfg.BaseURL,
			APIKey:        pcfg.APIKey,
			ClientID:      pcfg.ClientID,
			WebhookSecret: pcfg.WebhookSecret,
		}, tk, log))
	}

	zapLog.Info("partner adapters registered", zap.Int("count", reg.Count()))

	// --- Comparison service ---
	opts := []compare.Option{
		compare.WithCache(rdb.Client, config.GetDuration(cfg.Ranking.CacheTTL)),
	}
	if es != nil {
		opts = append(opts, compare.WithAuditSink(es.Client))
	}
	comparisons := compare.New(reg, log, opts...)

	// --- Persistence and notifications ---
	st := store.New(pg.DB, log)

	var email webhook.EmailSender
	if cfg.Notifications.Email.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		email = ses
	}

	var sms webhook.SMSPublisher
	if cfg.Notifications.SMS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		sms = sns
	}

	var notifier *webhook.Notifier
	if email != nil || sms != nil {
		notifier = webhook.NewNotifier(
			email, sms, log,
			cfg.Notifications.Email.FromEmail,
			cfg.Notifications.Email.ToEmail,
			cfg.Notifications.SMS.TopicARN,
		)
	}

	webhooks, err := webhook.NewHandler(reg, log, st, notifier)
	if err != nil {
		zapLog.Fatal("webhook handler failed", zap.Error(err))
	}

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.Handle("/webhooks/", webhooks)
	mux.Handle(cfg.Server.MetricsPath, promhttp.Handler())
	mux.HandleFunc("/compare", compareEndpoint(comparisons, log))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	server := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("http server listening", zap.String("address", cfg.Server.ListenAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}

// compareEndpoint accepts a comparison request and returns ranked offers.
func compareEndpoint(svc *compare.Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req compare.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		result, err := svc.Compare(r.Context(), req)
		if err != nil {
			log.Error("comparison failed", map[string]interface{}{"error": err.Error()})
			http.Error(w, "comparison failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			log.Warn("response write failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
