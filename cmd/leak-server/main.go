// Package main is the entry point for the oil leak control server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/Norsninja/OilLeak-sub000/internal/engine"
	"github.com/Norsninja/OilLeak-sub000/internal/events"
	"github.com/Norsninja/OilLeak-sub000/internal/infra/storage"
	"github.com/Norsninja/OilLeak-sub000/internal/network"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/logger"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/metrics"
	"github.com/Norsninja/OilLeak-sub000/internal/platform/optimization"
)

// SQLitePersisterAdapter translates domain events to storage events.
type SQLitePersisterAdapter struct {
	repo *storage.SQLiteEventRepository
}

func (a *SQLitePersisterAdapter) Append(event events.Event) error {
	payloadBytes, _ := json.Marshal(event.Payload)
	var payloadMap map[string]interface{}
	json.Unmarshal(payloadBytes, &payloadMap)

	storageEvent := storage.RunEvent{
		ID:         event.ID,
		RunID:      event.RunID,
		Timestamp:  event.Timestamp,
		EventType:  string(event.Type),
		Origin:     event.Origin,
		TargetID:   event.TargetID,
		Payload:    payloadMap,
		RunSeconds: event.RunSeconds,
	}

	start := time.Now()
	err := a.repo.Append(context.Background(), storageEvent)
	metrics.Get().RecordEventWrite(time.Since(start), err)
	return err
}

// tuningProfile picks the optimization profile from the environment.
func tuningProfile() *optimization.Config {
	switch os.Getenv("LEAK_PROFILE") {
	case "stress":
		return optimization.StressTestConfig()
	case "dev":
		return optimization.LowResourceConfig()
	default:
		return optimization.DefaultConfig()
	}
}

func main() {
	log.Println("[LEAK-SERVER] Initializing authoritative control server...")

	appLogger := logger.NewLogger()
	tuning := tuningProfile()

	dbPath := os.Getenv("LEAK_DB")
	if dbPath == "" {
		dbPath = "leak.db"
	}
	appLogger.Info("Initializing SQLite database '" + dbPath + "'...")
	db, err := storage.InitSQLite(dbPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: " + err.Error())
		os.Exit(1)
	}
	db.SetMaxOpenConns(tuning.DBMaxOpenConns)
	db.SetMaxIdleConns(tuning.DBMaxIdleConns)

	eventRepo := storage.NewSQLiteEventRepository(db)
	eventPersister := &SQLitePersisterAdapter{repo: eventRepo}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(eventPersister)

	appLogger.Info("Bootstrapping simulation core...")
	cfg := engine.DefaultConfig()
	session, err := engine.NewSession(cfg, eventLog, appLogger)
	if err != nil {
		appLogger.Error("Failed to build session: " + err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := engine.NewTicker(session, appLogger)
	go ticker.Start(ctx)

	// Automated run snapshot backup routine
	snapRepo := storage.NewSQLiteSnapshotRepository(db)
	go func() {
		backupTicker := time.NewTicker(5 * time.Second)
		defer backupTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-backupTicker.C:
				tel := session.Telemetry()
				if tel.RunID == "" {
					continue
				}
				snap := storage.RunSnapshot{
					RunID:           tel.RunID,
					Phase:           string(tel.Phase),
					ElapsedSeconds:  tel.ElapsedMinutes * 60,
					EmissionRate:    tel.EmissionRate,
					Multiplier:      tel.Multiplier,
					RubberBand:      tel.RubberBand,
					ActiveSources:   tel.ActiveSources,
					PressurePercent: tel.PressurePercent,
					BurstActive:     tel.BurstActive,
					LastUpdated:     time.Now(),
				}
				_ = snapRepo.Upsert(ctx, snap)
			}
		}
	}()

	// Periodic tuning analysis: log recommendations, never restart mid-run.
	go func() {
		analyzeTicker := time.NewTicker(60 * time.Second)
		defer analyzeTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-analyzeTicker.C:
				rec := optimization.Analyze(metrics.Get().Snapshot())
				for _, note := range rec.Notes {
					appLogger.Warn("TUNING: " + note)
				}
			}
		}
	}()

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(session, eventLog, appLogger)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx)
	hub.StartTelemetryPush(ctx)

	reconstructor := storage.NewReconstructor(eventRepo)
	replayHandler := network.NewReplayHandler(eventLog, appLogger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		serveWs(hub, w, req, appLogger)
	})

	r.Get("/metrics", metrics.Handler())
	r.Get("/metrics/prometheus", metrics.PrometheusHandler())

	r.Get("/api/telemetry", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, session.Telemetry())
	})

	r.Post("/api/run/start", func(w http.ResponseWriter, req *http.Request) {
		writeTransition(w, session, session.BeginRun())
	})
	r.Post("/api/run/pause", func(w http.ResponseWriter, req *http.Request) {
		writeTransition(w, session, session.PauseRun())
	})
	r.Post("/api/run/resume", func(w http.ResponseWriter, req *http.Request) {
		writeTransition(w, session, session.ResumeRun())
	})
	r.Post("/api/run/end", func(w http.ResponseWriter, req *http.Request) {
		writeTransition(w, session, session.FinishRun())
	})
	r.Post("/api/run/menu", func(w http.ResponseWriter, req *http.Request) {
		writeTransition(w, session, session.BackToMenu())
	})

	// HTTP alternative to the WebSocket particle feed, mostly for testing.
	r.Post("/api/particles", func(w http.ResponseWriter, req *http.Request) {
		var report network.ParticleReport
		if err := json.NewDecoder(req.Body).Decode(&report); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		switch events.EventType(report.Type) {
		case events.EventTypeParticleBlocked:
			session.OnParticleBlocked(report.Count)
		case events.EventTypeParticleEscaped:
			session.OnParticleEscaped(report.Count)
		default:
			http.Error(w, "Unknown report type", http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		snaps, err := snapRepo.List(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, snaps)
	})

	r.Get("/api/runs/{runID}", func(w http.ResponseWriter, req *http.Request) {
		runID := chi.URLParam(req, "runID")
		snap, err := snapRepo.GetByRunID(req.Context(), runID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if snap == nil {
			// No live snapshot; fold the ledger instead.
			snap, err = reconstructor.RebuildRunSnapshot(req.Context(), runID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		if snap == nil {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		writeJSON(w, snap)
	})

	r.Get("/api/runs/{runID}/timeline", func(w http.ResponseWriter, req *http.Request) {
		runID := chi.URLParam(req, "runID")
		timeline, err := reconstructor.GenerateTimeline(req.Context(), runID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, timeline)
	})

	replayHandler.RegisterRoutes(r)

	addr := os.Getenv("LEAK_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Printf("[LEAK-SERVER] HTTP API & WS Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[LEAK-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[LEAK-SERVER] Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	ticker.Stop()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeTransition reports a lifecycle request's outcome plus the phase it landed on.
func writeTransition(w http.ResponseWriter, session *engine.Session, ok bool) {
	status := "ok"
	code := http.StatusOK
	if !ok {
		status = "rejected"
		code = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"phase":  string(session.CurrentPhase()),
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow cross-origin requests from the display layer dev server
	},
}

// serveWs handles websocket requests from the peer.
func serveWs(hub *network.Hub, w http.ResponseWriter, r *http.Request, log *logger.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade websocket connection")
		return
	}

	client := network.NewClient(hub, conn)
	client.Register()

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
