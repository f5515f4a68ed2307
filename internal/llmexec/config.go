package llmexec

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultBaseURL           = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel             = "gemini-2.0-flash"
	DefaultRequestsPerMinute = 60
	DefaultTimeout           = 2 * time.Minute
)

// Config of the OpenAI compatible endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// RequestsPerMinute caps the request rate across every stage. 0 disables the limit.
	RequestsPerMinute int
	Temperature       float32
	Timeout           time.Duration
}

// ConfigFromEnv reads STAGEPLAN_LLM_BASE_URL, STAGEPLAN_LLM_API_KEY, STAGEPLAN_LLM_MODEL, STAGEPLAN_LLM_RPM and
// STAGEPLAN_LLM_TIMEOUT. Unset or invalid variables keep their default.
func ConfigFromEnv() Config {
	cfg := Config{
		BaseURL:           DefaultBaseURL,
		APIKey:            os.Getenv("STAGEPLAN_LLM_API_KEY"),
		Model:             DefaultModel,
		RequestsPerMinute: DefaultRequestsPerMinute,
		Timeout:           DefaultTimeout,
	}

	if v := os.Getenv("STAGEPLAN_LLM_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}

	if v := os.Getenv("STAGEPLAN_LLM_MODEL"); v != "" {
		cfg.Model = v
	}

	if v, err := strconv.Atoi(os.Getenv("STAGEPLAN_LLM_RPM")); err == nil && v >= 0 {
		cfg.RequestsPerMinute = v
	}

	if v, err := time.ParseDuration(os.Getenv("STAGEPLAN_LLM_TIMEOUT")); err == nil && v > 0 {
		cfg.Timeout = v
	}

	return cfg
}
