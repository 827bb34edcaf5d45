package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"session-control-plane/internal/audit"
	kafkaproducer "session-control-plane/internal/audit/producer"
	"session-control-plane/internal/config"
	"session-control-plane/internal/db"
	"session-control-plane/internal/db/migrate"
	identityservice "session-control-plane/internal/identity/service"
	"session-control-plane/internal/security"
	"session-control-plane/internal/server"
	sessionrepo "session-control-plane/internal/session/repository"
	sessionservice "session-control-plane/internal/session/service"
	"session-control-plane/internal/telemetry/otel"
	userrepo "session-control-plane/internal/user/repository"
)

const serviceName = "session-control-plane"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}

	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	emitter := newEmitter(cfg, providers)
	if emitter != nil {
		defer func() {
			// Give in-flight async emits time to finish before closing.
			time.Sleep(audit.ShutdownDrainDuration)
			if err := emitter.Close(); err != nil {
				log.Printf("audit: close: %v", err)
			}
		}()
	}

	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.Argon2MemoryKiB, cfg.Argon2Passes, cfg.Argon2Parallelism)

	sessions := sessionrepo.NewPostgresRepository(conn)
	users := userrepo.NewPostgresRepository(conn)

	lifecycle := sessionservice.NewLifecycle(sessions, tokens, hasher, cfg.SessionTTL(), emitter)
	auth := identityservice.NewAuthService(users, lifecycle, hasher, emitter)

	if interval := cfg.SweepInterval(); interval > 0 {
		go runSweep(ctx, lifecycle, interval)
	}

	e := server.New(server.Deps{
		Auth:          auth,
		Lifecycle:     lifecycle,
		DB:            conn,
		SecureCookies: cfg.SecureCookies(),
		ServiceName:   serviceName,
	})

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// newEmitter picks the audit sink: Kafka when brokers are configured,
// otherwise OTel logs when an OTLP endpoint is set, otherwise nil (audit
// disabled).
func newEmitter(cfg *config.Config, providers *otel.Providers) audit.Emitter {
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		producer, err := kafkaproducer.NewKafkaProducer(brokers, cfg.AuditKafkaTopic)
		if err != nil {
			log.Fatalf("audit: kafka producer: %v", err)
		}
		if producer != nil {
			log.Printf("audit: emitting to Kafka topic %s", cfg.AuditKafkaTopic)
			return producer
		}
	}
	if cfg.OTLPEndpoint != "" {
		log.Println("audit: emitting as OTel log records")
		return otel.NewEventEmitter(providers.LoggerProvider)
	}
	return nil
}

// runSweep deletes expired, unrevoked sessions on a fixed interval until ctx
// is cancelled.
func runSweep(ctx context.Context, lifecycle *sessionservice.Lifecycle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := lifecycle.Sweep(sweepCtx)
			cancel()
			if err != nil {
				log.Printf("sweep: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("sweep: removed %d expired sessions", removed)
			}
		}
	}
}
