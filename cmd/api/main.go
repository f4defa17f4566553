package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/exam-registration/internal/application/challenge"
	"github.com/exam-registration/internal/application/examwindow"
	"github.com/exam-registration/internal/application/registration"
	"github.com/exam-registration/internal/application/slot"
	"github.com/exam-registration/internal/config"
	"github.com/exam-registration/internal/infrastructure/dynamo"
	jwtinfra "github.com/exam-registration/internal/infrastructure/jwt"
	"github.com/exam-registration/internal/infrastructure/memory"
	redisinfra "github.com/exam-registration/internal/infrastructure/redis"
	s3infra "github.com/exam-registration/internal/infrastructure/s3"
	"github.com/exam-registration/internal/infrastructure/smtp"
	"github.com/exam-registration/internal/infrastructure/sns"
	"github.com/exam-registration/internal/pkg/expiring"
	transporthttp "github.com/exam-registration/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}

	db, err := openDurable(ctx, cfg, awsCfg)
	if err != nil {
		log.Fatalf("durable store: %v", err)
	}
	stages, closeStages, err := openStageStore(ctx, cfg, awsCfg)
	if err != nil {
		log.Fatalf("stage store: %v", err)
	}
	defer closeStages()

	images, imageReader := openImages(ctx, cfg, awsCfg)

	var notifier unassignedNotifier = sns.LogNotifier{}
	if cfg.SNSTopicARN != "" {
		notifier = sns.NewNotifier(sns.NewClient(awsCfg, cfg), cfg.SNSTopicARN)
	}

	// JWT provider (optional: admin routes stay unmounted without keys).
	var tokens transporthttp.TokenVerifier
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		tokens = p
	} else {
		log.Printf("WARN: JWT provider not available, admin routes disabled: %v", err)
	}

	rc := cfg.Registration
	challengeSvc := challenge.NewService(challenge.ServiceDeps{
		Store: stages,
		Config: challenge.Config{
			StageTTL:      rc.StageTTL,
			MaxAttempts:   rc.MaxCodeAttempts,
			SendCeiling:   rc.SendCodeCeiling,
			ResendCeiling: rc.ResendCodeCeiling,
			RateWindow:    rc.CodeRateWindow,
		},
	})
	slotSvc := slot.NewService(slot.ServiceDeps{SlotRepo: db.slots, Retries: rc.SeatClaimRetries})
	regSvc := registration.NewService(registration.ServiceDeps{
		Challenge:          challengeSvc,
		AccountRepo:        db.accounts,
		WindowRepo:         db.windows,
		UnitOfWork:         db.uow,
		Images:             images,
		Mailer:             smtp.NewMailer(cfg),
		Notifier:           notifier,
		Slots:              slotSvc,
		StageTTL:           rc.StageTTL,
		DefaultSeatsPerDay: rc.DefaultSeatsPerDay,
	})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Registration:  regSvc,
		ExamWindow:    examwindow.NewService(examwindow.ServiceDeps{WindowRepo: db.windows}),
		Slots:         slotSvc,
		Registrations: db.registrations,
		Images:        imageReader,
		Tokens:        tokens,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, durable=%s, stage=%s)", cfg.AppPort, cfg.AppEnv, cfg.DurableStore, cfg.StageStore)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
		os.Exit(1)
	}
	log.Println("Server stopped")
}

func openDurable(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (*durable, error) {
	switch cfg.DurableStore {
	case "memory":
		log.Println("WARN: using in-memory durable store, data is lost on restart")
		store := memory.New()
		return &durable{
			accounts:      store.Accounts(),
			windows:       store.ExamWindow(),
			uow:           store.UnitOfWork(),
			slots:         store.Slots(),
			registrations: store.Registrations(),
		}, nil
	case "dynamo":
		client := dynamo.NewClient(awsCfg, cfg)
		// Creates the tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		t := cfg.DynamoTables
		return &durable{
			accounts:      dynamo.NewAccountRepo(client, t.Accounts),
			windows:       dynamo.NewExamWindowRepo(client, t.ExamWindow),
			uow:           dynamo.NewUnitOfWork(client, t),
			slots:         dynamo.NewSlotRepo(client, t.SlotSessions),
			registrations: dynamo.NewRegistrationRepo(client, t.Registrations),
		}, nil
	default:
		return nil, fmt.Errorf("unknown DURABLE_STORE %q", cfg.DurableStore)
	}
}

func openStageStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (expiring.Store, func(), error) {
	switch cfg.StageStore {
	case "memory":
		s := expiring.NewMemoryStore()
		s.StartJanitor(ctx, time.Minute)
		return s, func() {}, nil
	case "redis":
		client, err := redisinfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisinfra.NewStore(client), func() { _ = client.Close() }, nil
	case "dynamo":
		client := dynamo.NewClient(awsCfg, cfg)
		return dynamo.NewExpiringStore(client, cfg.DynamoTables.Staged), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown STAGE_STORE %q", cfg.StageStore)
	}
}

// openImages uses S3 for the durable dynamo setup and process memory otherwise.
func openImages(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (imageWriter, transporthttp.ImageReader) {
	if cfg.DurableStore == "memory" {
		blobs := memory.NewBlobStore()
		return blobs, blobs
	}
	store := s3infra.NewImageStore(s3infra.NewClient(awsCfg, cfg), cfg.S3BucketName)
	if cfg.AWSEndpointURL != "" {
		if err := store.EnsureBucket(ctx); err != nil {
			log.Printf("WARN: ensure bucket %s: %v", cfg.S3BucketName, err)
		}
	}
	return store, store
}
