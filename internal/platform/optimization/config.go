// Package optimization provides concurrency tuning for high load.
// Channel buffers, connection pools and spectator limits live here so
// the server binary can pick a profile without touching core code.
package optimization

import (
	"runtime"
)

// Config holds tuned parameters for high-load scenarios.
type Config struct {
	// Channel buffer sizes
	EventChannelBuffer     int
	BroadcastChannelBuffer int
	ClientSendBuffer       int

	// Connection pools
	DBMaxOpenConns int
	DBMaxIdleConns int
	RedisPoolSize  int

	// Worker pools
	EventWorkers     int
	BroadcastWorkers int

	// Rate limiting
	MaxReportsPerSecond    int
	MaxSpectatorsPerServer int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		// Channel buffers - larger = more memory, less blocking.
		// Particle reports arrive in frame-batched bursts, so the event
		// buffer is sized for a burst window, not the steady rate.
		EventChannelBuffer:     1024,
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64,

		// Database connections
		DBMaxOpenConns: numCPU * 4,
		DBMaxIdleConns: numCPU * 2,

		// Redis
		RedisPoolSize: numCPU * 2,

		// Workers
		EventWorkers:     numCPU,
		BroadcastWorkers: numCPU * 2,

		// Rate limits
		MaxReportsPerSecond:    100,
		MaxSpectatorsPerServer: 200,
	}
}

// StressTestConfig returns aggressive settings for load testing with the
// agitator binary driving many simulated collaborators.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		EventChannelBuffer:     4096,
		BroadcastChannelBuffer: 512,
		ClientSendBuffer:       128,

		DBMaxOpenConns: numCPU * 8,
		DBMaxIdleConns: numCPU * 4,
		RedisPoolSize:  numCPU * 4,

		EventWorkers:     numCPU * 2,
		BroadcastWorkers: numCPU * 4,

		MaxReportsPerSecond:    500,
		MaxSpectatorsPerServer: 500,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		EventChannelBuffer:     64,
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		DBMaxOpenConns: 5,
		DBMaxIdleConns: 2,
		RedisPoolSize:  5,

		EventWorkers:     2,
		BroadcastWorkers: 2,

		MaxReportsPerSecond:    10,
		MaxSpectatorsPerServer: 20,
	}
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseEventBuffer     bool
	IncreaseBroadcastBuffer bool
	IncreaseDBConnections   bool
	IncreaseWorkers         bool
	Notes                   []string
}

// Analyze examines a metrics snapshot and returns tuning recommendations.
func Analyze(snapshot map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	// Control ticks run at 2 Hz; anything near the frame interval is a problem.
	if tick, ok := snapshot["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 100 {
			rec.IncreaseEventBuffer = true
			rec.IncreaseWorkers = true
			rec.Notes = append(rec.Notes, "Tick latency exceeds 100ms - increase event workers")
		}
	}

	// Ledger writes happen off the tick path but still signal DB pressure.
	if ev, ok := snapshot["events"].(map[string]interface{}); ok {
		if maxLat, ok := ev["max_write_lat_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write latency exceeds 50ms - increase DB connections")
		}
		if errors, ok := ev["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write errors detected - check DB connection pool")
		}
	}

	// Spectator backpressure shows up as dropped sends in the hub.
	if ws, ok := snapshot["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseEventBuffer {
		config.EventChannelBuffer *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		config.BroadcastChannelBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		config.DBMaxOpenConns = int(float64(config.DBMaxOpenConns) * 1.5)
		config.DBMaxIdleConns = int(float64(config.DBMaxIdleConns) * 1.5)
	}
	if rec.IncreaseWorkers {
		config.EventWorkers *= 2
		config.BroadcastWorkers = int(float64(config.BroadcastWorkers) * 1.5)
	}
	return config
}
