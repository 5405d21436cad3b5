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

	"github.com/hackwithabx/CDAC-Dependency-check/internal/application"
	appauth "github.com/hackwithabx/CDAC-Dependency-check/internal/application/auth"
	appscans "github.com/hackwithabx/CDAC-Dependency-check/internal/application/scans"
	"github.com/hackwithabx/CDAC-Dependency-check/internal/config"
	mysqlp "github.com/hackwithabx/CDAC-Dependency-check/internal/infra/db/mysql"
	"github.com/hackwithabx/CDAC-Dependency-check/internal/infra/engine/depcheck"
	"github.com/hackwithabx/CDAC-Dependency-check/internal/infra/httpserver"
	minioStore "github.com/hackwithabx/CDAC-Dependency-check/internal/infra/storage"
	"github.com/hackwithabx/CDAC-Dependency-check/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect MySQL
	db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("mysql connect error: %v", err)
	}
	defer db.Close()

	// init repos
	scanRepo := mysqlp.NewScanRepository(db)
	userRepo := mysqlp.NewUserRepository(db)
	sessionRepo := mysqlp.NewSessionRepository(db)
	auditRepo := mysqlp.NewAuditRepository(db)

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// init engine runner
	runner := depcheck.NewRunner(store,
		cfg.Engine.Command,
		cfg.Engine.DataDir,
		cfg.Engine.WorkDir,
		cfg.Engine.PCIArgs,
		cfg.EngineTimeout(),
	)

	// init services
	authSvc := &appauth.Service{
		Users:         userRepo,
		Sessions:      sessionRepo,
		Audit:         auditRepo,
		Clock:         application.SystemClock{},
		SessionTTL:    cfg.SessionTTL(),
		ResetTTL:      cfg.ResetTTL(),
		MaxAttempts:   cfg.Auth.MaxLoginAttempts,
		LockoutWindow: cfg.LockoutWindow(),
	}
	scanSvc := appscans.NewService(scanRepo, store, runner, auditRepo, application.SystemClock{}, cfg.Upload.MaxBytes)

	// in-process engine reports progress straight into the service
	runner.SetSink(scanSvc)

	// seed admin account
	if cfg.Auth.AdminUsername != "" && cfg.Auth.AdminPassword != "" {
		if err := authSvc.SeedAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			log.Fatalf("admin seed error: %v", err)
		}
	}

	// init router
	handler := httpserver.NewRouter(scanSvc, authSvc, httpserver.Options{
		EngineKey:      cfg.Engine.APIKey,
		UploadMaxBytes: cfg.Upload.MaxBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Health: map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: db},
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
