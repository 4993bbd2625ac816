/**
 * Calibration Worker - Main Entry Point
 *
 * Go worker that calibrates OCR engine configurations per application:
 * - Asynq consumer for the Redis-backed calibration job queue
 * - Seven-stage calibration pipeline with commit/rollback semantics
 * - AI vision backend as the independent ground-truth oracle
 * - PostgreSQL persistence for per-application calibration profiles
 * - Redis pub/sub completion events for the capturing client
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/overlens/calibration-worker/internal/calibration"
	"github.com/overlens/calibration-worker/internal/config"
	"github.com/overlens/calibration-worker/internal/ocr"
	"github.com/overlens/calibration-worker/internal/queue"
	"github.com/overlens/calibration-worker/internal/storage"
	"github.com/overlens/calibration-worker/internal/vision"
)

func main() {
	if err := godotenv.Load(".env.calibrator"); err != nil {
		log.Printf("Warning: .env.calibrator not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Calibration worker starting...")
	log.Printf("Configuration loaded: Redis=%s, Vision=%s, Workers=%d",
		cfg.RedisURL, cfg.VisionAPIURL, cfg.WorkerConcurrency)

	// Profile store (PostgreSQL)
	log.Printf("Connecting to profile store...")
	store, err := storage.NewProfileStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize profile store: %v", err)
	}
	defer store.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.EnsureSchema(schemaCtx); err != nil {
		cancelSchema()
		log.Fatalf("Failed to ensure profile schema: %v", err)
	}
	cancelSchema()
	log.Printf("Profile store ready")

	// Live OCR engine
	engine := ocr.NewTesseractEngine(&ocr.TesseractOptions{
		Languages: strings.Split(cfg.TesseractLanguages, "+"),
	})
	log.Printf("OCR engine initialized (languages: %s)", cfg.TesseractLanguages)

	// AI vision backend
	visionClient := vision.NewClient(cfg.VisionAPIURL, cfg.VisionAPIKey, cfg.VisionTimeout)
	healthCtx, cancelHealth := context.WithTimeout(context.Background(), 5*time.Second)
	if err := visionClient.HealthCheck(healthCtx); err != nil {
		log.Printf("WARNING: Vision backend health check failed: %v. Calibration runs will fail until it is reachable.", err)
	} else {
		log.Printf("Vision backend connection verified: %s", cfg.VisionAPIURL)
	}
	cancelHealth()

	extractor := vision.NewExtractor(visionClient)
	calibrator := calibration.NewCalibrator(engine, extractor, store)
	log.Printf("Calibrator initialized")

	// Completion notifier
	notifier, err := queue.NewNotifier(cfg.RedisURL, cfg.EventChannel)
	if err != nil {
		log.Fatalf("Failed to initialize notifier: %v", err)
	}
	defer notifier.Close()

	// Queue consumer
	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:     cfg.RedisURL,
		Concurrency:  cfg.WorkerConcurrency,
		Calibrator:   calibrator,
		Notifier:     notifier,
		RunTimeout:   cfg.RunTimeout,
		MaxImageSize: cfg.MaxImageSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize queue consumer: %v", err)
	}

	if err := consumer.Start(); err != nil {
		log.Fatalf("Failed to start queue consumer: %v", err)
	}

	log.Printf("===========================================")
	log.Printf("Calibration worker is READY")
	log.Printf("Queue: %s", queue.TaskCalibrationRun)
	log.Printf("Workers: %d", cfg.WorkerConcurrency)
	log.Printf("Events: %s", cfg.EventChannel)
	log.Printf("===========================================")
	log.Printf("Waiting for jobs...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	if err := consumer.Stop(); err != nil {
		log.Printf("Error stopping queue consumer: %v", err)
	}

	log.Printf("Shutdown complete")
}
