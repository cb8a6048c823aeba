package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voicecoach-go/internal/analyzer"
	"voicecoach-go/internal/auth"
	"voicecoach-go/internal/config"
	"voicecoach-go/internal/jobs"
	"voicecoach-go/internal/logger"
	"voicecoach-go/internal/metrics"
	"voicecoach-go/internal/owner"
	"voicecoach-go/internal/pipeline"
	"voicecoach-go/internal/quota"
	"voicecoach-go/internal/storage"
	"voicecoach-go/internal/store"
	"voicecoach-go/internal/types"
)

const maxRequestBody = 4 << 20 // transcripts can run long, audio never rides along

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "voicecoach-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	blobs, err := storage.New(ctx, cfg.AudioBucket, cfg.AWSRegion)
	if err != nil {
		log.WithError(err).Fatal("failed to init object storage")
	}

	sink := metrics.NewSink(nil)
	quotas := quota.New(db, cfg.DefaultMonthlyLimit)
	owners := owner.New(cfg.OwnerAPIURL, cfg.OwnerAPIToken)
	model := analyzer.New(analyzer.Config{
		AudioModelURL: cfg.AudioModelURL,
		AudioModel:    cfg.AudioModel,
		TextModelURL:  cfg.TextModelURL,
		TextModel:     cfg.TextModel,
		APIKey:        cfg.ModelAPIKey,
	})

	orchestrator := pipeline.New(owners, quotas, blobs, model, store.New(db), sink, cfg.MaxAudioBytes)

	queue := jobs.NewQueue(cfg.QueueSize, sink)
	pool := jobs.NewPool(cfg.WorkerCount, queue, orchestrator)
	pool.Start(ctx)

	verifier := auth.NewVerifier(cfg.SharedSecret)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/analyze", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "analyze")

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			reqLog.WithError(err).Warn("failed to read request body")
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if !verifier.Verify(body, r.Header.Get(auth.Header)) {
			reqLog.Warn("rejected request with bad signature")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		var req types.AnalyzeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			reqLog.WithError(err).Warn("malformed analyze request")
			http.Error(w, "malformed JSON body", http.StatusBadRequest)
			return
		}
		if err := pipeline.Validate(req); err != nil {
			reqLog.WithError(err).Warn("invalid analyze request")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if !queue.Enqueue(req) {
			reqLog.Warn("job queue full, shedding request")
			http.Error(w, "busy, retry later", http.StatusServiceUnavailable)
			return
		}

		reqLog.WithField("transcript_id", req.TranscriptID).Info("analysis accepted")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(types.AnalyzeAck{
			Status:       "accepted",
			TranscriptID: req.TranscriptID,
			Pipeline:     req.Pipeline,
		})
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
		if err := pool.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("worker shutdown")
		}
	}()

	log.WithField("addr", cfg.Addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}
