package config

import (
	"os"
	"testing"
)

func TestPort_Default(t *testing.T) {
	os.Unsetenv(EnvPort)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("default Port = %d, want %d", cfg.Port(), DefaultPort)
	}
}

func TestPort_FromEnv(t *testing.T) {
	os.Setenv(EnvPort, "9090")
	defer os.Unsetenv(EnvPort)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port())
	}
}

func TestPort_Invalid(t *testing.T) {
	os.Setenv(EnvPort, "not-a-port")
	defer os.Unsetenv(EnvPort)

	if _, err := New(); err == nil {
		t.Error("New() should return error for non-numeric port")
	}
}

func TestPort_OutOfRange(t *testing.T) {
	os.Setenv(EnvPort, "70000")
	defer os.Unsetenv(EnvPort)

	if _, err := New(); err == nil {
		t.Error("New() should return error for out-of-range port")
	}
}

func TestGeminiModel_Default(t *testing.T) {
	os.Unsetenv(EnvGeminiModel)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GeminiModel() != DefaultGeminiModel {
		t.Errorf("default GeminiModel = %q, want %q", cfg.GeminiModel(), DefaultGeminiModel)
	}
}

func TestGeminiModel_FromEnv(t *testing.T) {
	os.Setenv(EnvGeminiModel, "gemini-test-model")
	defer os.Unsetenv(EnvGeminiModel)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GeminiModel() != "gemini-test-model" {
		t.Errorf("GeminiModel = %q, want %q", cfg.GeminiModel(), "gemini-test-model")
	}
}

func TestRenderWorkers_Invalid(t *testing.T) {
	os.Setenv(EnvRenderWorkers, "0")
	defer os.Unsetenv(EnvRenderWorkers)

	if _, err := New(); err == nil {
		t.Error("New() should return error for zero render workers")
	}
}

func TestSampleSourcesPath_Default(t *testing.T) {
	os.Setenv(EnvDataDir, "/data/broll")
	defer os.Unsetenv(EnvDataDir)
	os.Unsetenv(EnvSampleSources)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SampleSourcesPath() != "/data/broll/video_urls.json" {
		t.Errorf("SampleSourcesPath = %q, want %q", cfg.SampleSourcesPath(), "/data/broll/video_urls.json")
	}
}
