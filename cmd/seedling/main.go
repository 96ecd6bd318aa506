package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/thornbury/seedling/internal/backup"
	"github.com/thornbury/seedling/internal/database"
	"github.com/thornbury/seedling/internal/logging"
	"github.com/thornbury/seedling/internal/push"
	"github.com/thornbury/seedling/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("SEEDLING_LOG_LEVEL"))

	port := os.Getenv("SEEDLING_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("SEEDLING_DB_PATH")
	if dbPath == "" {
		dbPath = "seedling.db"
	}

	defaultTimezone := os.Getenv("SEEDLING_TIMEZONE")
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}

	allowedOrigins := []string{"http://localhost:5173", "http://localhost:" + port}
	if v := os.Getenv("SEEDLING_ALLOWED_ORIGINS"); v != "" {
		allowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		DefaultTimezone: defaultTimezone,
		AllowedOrigins:  allowedOrigins,
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("SEEDLING_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("SEEDLING_VAPID_PRIVATE_KEY"),
		},
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("SEEDLING_BACKUP_S3_ENDPOINT"),
				Bucket:    os.Getenv("SEEDLING_BACKUP_S3_BUCKET"),
				Region:    os.Getenv("SEEDLING_BACKUP_S3_REGION"),
				AccessKey: os.Getenv("SEEDLING_BACKUP_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("SEEDLING_BACKUP_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			Passphrase:    os.Getenv("SEEDLING_BACKUP_PASSPHRASE"),
			ScheduleHour:  envInt("SEEDLING_BACKUP_HOUR", 3),
			RetentionDays: envInt("SEEDLING_BACKUP_RETENTION_DAYS", 30),
		},
	}

	srv := server.New(db, cfg, logger)

	srv.BackupManager().Start(context.Background())

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:        ":" + port,
		Handler:     srv.Router(),
		ReadTimeout: 5 * time.Second,
		// Backup runs and downloads hold the response open.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("seedling starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	srv.BackupManager().Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
