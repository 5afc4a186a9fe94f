package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

func main() {
	envFile := flag.String("env", ".env", "optional env file")
	flag.Parse()

	if err := loadEnvFile(*envFile); err != nil {
		logrus.Fatal(err)
	}
	cfg, err := loadConfig()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}

	store, err := NewFileStore(cfg.DataFile, log)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	var ledger BackupLedger
	if cfg.MySQLDSN != "" {
		db, err := openDB(cfg.MySQLDSN, cfg.TiDBCA, log)
		if err != nil {
			log.Fatalf("backup ledger: %v", err)
		}
		defer db.Close()
		ledger = newMySQLLedger(db)
	} else {
		log.Info("MYSQL_DSN not set: backup history kept in memory")
		ledger = newMemoryLedger()
	}

	var up Uploader
	switch {
	case cfg.DevMode:
		log.Infof("DEV_MODE=true: backups are copied to %s", cfg.BackupDir)
		up = &dirUploader{dir: cfg.BackupDir}
	case cfg.CloudinaryURL != "":
		cu, err := newCloudinaryUploader(cfg.CloudinaryURL)
		if err != nil {
			log.Fatalf("backup target: %v", err)
		}
		up = cu
	default:
		log.Warn("CLOUDINARY_URL not set: backups are disabled")
	}
	connector := NewBackupConnector(store.Path(), up, ledger, cfg.BackupTimeout, log)

	if cfg.BackupSchedule != "" {
		sched, err := startBackupSchedule(cfg.BackupSchedule, connector, log)
		if err != nil {
			log.Fatal(err)
		}
		defer sched.Stop()
		log.Infof("scheduled backups: %s", cfg.BackupSchedule)
	}

	srv := NewServer(store, connector, ledger, log)
	var handler http.Handler = srv.Routes()
	if cfg.RateLimitRPS > 0 {
		handler = newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Handler(handler)
	}
	handler = newCORSMiddleware(cfg.CORSOrigins).Handler(handler)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.BackupTimeout + 15*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.WithField("data_file", cfg.DataFile).Infof("server listening on :%s", cfg.Port)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}
