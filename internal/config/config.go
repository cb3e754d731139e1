// Package config provides configuration management for the B-roll engine.
// Configuration is loaded from a .env file (if present) and environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort     = 8687
	DefaultLogLevel = "info"
	DefaultDataDir  = ".broll-engine"

	// Environment variable names
	EnvPort          = "BROLL_PORT"
	EnvLogLevel      = "BROLL_LOG_LEVEL"
	EnvDataDir       = "BROLL_DATA_DIR"
	EnvSampleSources = "BROLL_SAMPLE_SOURCES"

	// Oracle environment variable names
	EnvGeminiProject  = "BROLL_GEMINI_PROJECT"
	EnvGeminiLocation = "BROLL_GEMINI_LOCATION"
	EnvGeminiModel    = "BROLL_GEMINI_MODEL"

	// Render environment variable names
	EnvRenderWorkers = "BROLL_RENDER_WORKERS"
	EnvRenderQueue   = "BROLL_RENDER_QUEUE"

	// Database filename
	DBFilename = "broll.db"

	// Oracle defaults
	DefaultGeminiLocation = "us-central1"
	DefaultGeminiModel    = "gemini-2.5-flash-lite"

	// Timeout defaults (seconds)
	DefaultOracleTimeout = 300
	DefaultFetchTimeout  = 120
	DefaultRenderTimeout = 900

	// Render defaults
	DefaultRenderWorkers = 2
	DefaultRenderQueue   = 16
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	OutputDir() string
	TempDir() string
	SampleSourcesPath() string
	GeminiProject() string
	GeminiLocation() string
	GeminiModel() string
	OracleTimeout() time.Duration
	FetchTimeout() time.Duration
	RenderWorkers() int
	RenderQueueSize() int
	RenderTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port          int
	logLevel      string
	dataDir       string
	sampleSources string

	geminiProject  string
	geminiLocation string
	geminiModel    string

	renderWorkers int
	renderQueue   int
}

// New creates a new EnvConfig with defaults and environment variable
// overrides. A .env file in the working directory is loaded first when it
// exists; real environment variables win over .env entries.
func New() (*EnvConfig, error) {
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		geminiLocation: DefaultGeminiLocation,
		geminiModel:    DefaultGeminiModel,
		renderWorkers:  DefaultRenderWorkers,
		renderQueue:    DefaultRenderQueue,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.sampleSources = os.Getenv(EnvSampleSources)

	cfg.geminiProject = os.Getenv(EnvGeminiProject)
	if gl := os.Getenv(EnvGeminiLocation); gl != "" {
		cfg.geminiLocation = gl
	}
	if gm := os.Getenv(EnvGeminiModel); gm != "" {
		cfg.geminiModel = gm
	}

	if rw := os.Getenv(EnvRenderWorkers); rw != "" {
		workers, err := strconv.Atoi(rw)
		if err != nil || workers < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvRenderWorkers)
		}
		cfg.renderWorkers = workers
	}

	if rq := os.Getenv(EnvRenderQueue); rq != "" {
		queue, err := strconv.Atoi(rq)
		if err != nil || queue < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvRenderQueue)
		}
		cfg.renderQueue = queue
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// OutputDir returns the directory rendered videos are written to
func (c *EnvConfig) OutputDir() string {
	return filepath.Join(c.dataDir, "outputs")
}

// TempDir returns the scratch directory for downloaded sources
func (c *EnvConfig) TempDir() string {
	return filepath.Join(c.dataDir, "tmp")
}

// SampleSourcesPath returns the path to the sample video URLs JSON file
func (c *EnvConfig) SampleSourcesPath() string {
	if c.sampleSources != "" {
		return c.sampleSources
	}
	return filepath.Join(c.dataDir, "video_urls.json")
}

func (c *EnvConfig) GeminiProject() string {
	return c.geminiProject
}

func (c *EnvConfig) GeminiLocation() string {
	return c.geminiLocation
}

func (c *EnvConfig) GeminiModel() string {
	return c.geminiModel
}

func (c *EnvConfig) OracleTimeout() time.Duration {
	return time.Duration(DefaultOracleTimeout) * time.Second
}

func (c *EnvConfig) FetchTimeout() time.Duration {
	return time.Duration(DefaultFetchTimeout) * time.Second
}

func (c *EnvConfig) RenderWorkers() int {
	return c.renderWorkers
}

func (c *EnvConfig) RenderQueueSize() int {
	return c.renderQueue
}

func (c *EnvConfig) RenderTimeout() time.Duration {
	return time.Duration(DefaultRenderTimeout) * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
