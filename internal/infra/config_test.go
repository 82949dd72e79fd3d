package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("OPENAI_TEXT_MODEL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.OpenAITextModel != "gpt-4o" {
		t.Fatalf("OpenAITextModel mismatch: got %q", cfg.OpenAITextModel)
	}
	if cfg.ImageGlobalCap != 4 {
		t.Fatalf("ImageGlobalCap mismatch: got %d", cfg.ImageGlobalCap)
	}
	if cfg.DeliveryTimeout != 30*time.Second {
		t.Fatalf("DeliveryTimeout mismatch: got %s", cfg.DeliveryTimeout)
	}
	if cfg.JobStaleAfter != 30*time.Minute {
		t.Fatalf("JobStaleAfter mismatch: got %s", cfg.JobStaleAfter)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoadConfigHonorsOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("OPENAI_TEMPERATURE", "0.6")
	t.Setenv("IMAGE_COST_CENTS", "7")
	t.Setenv("JOB_POLL_INTERVAL_SECONDS", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.OpenAITemp != 0.6 {
		t.Fatalf("OpenAITemp mismatch: got %v", cfg.OpenAITemp)
	}
	if cfg.ImageCostCents != 7 {
		t.Fatalf("ImageCostCents mismatch: got %d", cfg.ImageCostCents)
	}
	if cfg.JobPollInterval != 5*time.Second {
		t.Fatalf("JobPollInterval mismatch: got %s", cfg.JobPollInterval)
	}
}
