package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Ollama     OllamaConfig     `yaml:"ollama"`
	OCR        OCRConfig        `yaml:"ocr"`
	Processing ProcessingConfig `yaml:"processing"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	GRPCAddr         string   `yaml:"grpc_addr"`
	CORSAllowOrigins []string `yaml:"cors_allow_origins"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig holds the shared bearer secret
type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// OllamaConfig holds LLM backend configuration
type OllamaConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	NumCtx        int           `yaml:"num_ctx"`
	Timeout       time.Duration `yaml:"timeout"`
	Temperature   float32       `yaml:"temperature"`
	NumPredict    int           `yaml:"num_predict"`
	RepeatPenalty float32       `yaml:"repeat_penalty"`
	RepeatLastN   int           `yaml:"repeat_last_n"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine          string `yaml:"engine"`
	Languages       string `yaml:"languages"`
	UseGPU          bool   `yaml:"use_gpu"`
	Tesseract       string `yaml:"tesseract_bin"`
	Pdftoppm        string `yaml:"pdftoppm_bin"`
	TessdataDir     string `yaml:"tessdata_dir"`
	AzureEndpoint   string `yaml:"azure_endpoint"`
	AzureKey        string `yaml:"azure_key"`
	PreprocessWidth int    `yaml:"preprocess_max_width"`
}

// LanguageList splits the comma separated language setting.
func (o OCRConfig) LanguageList() []string {
	var out []string
	for _, l := range strings.Split(o.Languages, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ProcessingConfig holds request processing limits and prompt locations
type ProcessingConfig struct {
	MaxUploadSizeMB        int    `yaml:"max_upload_size_mb"`
	MaxTotalTokensEstimate int    `yaml:"max_total_tokens_estimate"`
	ExtractionPromptFile   string `yaml:"extraction_prompt_file"`
	ReportPromptFile       string `yaml:"report_prompt_file"`
	ExtractWorkers         int    `yaml:"extract_workers"`
	SanitizeReport         bool   `yaml:"sanitize_report"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8015,
			GRPCAddr:         ":8016",
			CORSAllowOrigins: []string{"*"},
		},
		Auth: AuthConfig{APIKey: "CHANGE_ME_TO_SECURE_KEY"},
		Ollama: OllamaConfig{
			BaseURL:       "http://localhost:11434",
			Model:         "gpt-oss:20b",
			NumCtx:        65536,
			Timeout:       600 * time.Second,
			Temperature:   0.3,
			NumPredict:    4096,
			RepeatPenalty: 1.3,
			RepeatLastN:   256,
		},
		OCR: OCRConfig{
			Engine:          "tesseract",
			Languages:       "uk,en",
			Tesseract:       "tesseract",
			Pdftoppm:        "pdftoppm",
			PreprocessWidth: 2480,
		},
		Processing: ProcessingConfig{
			MaxUploadSizeMB:        50,
			MaxTotalTokensEstimate: 60000,
			ExtractionPromptFile:   "prompts/extraction_prompt.txt",
			ReportPromptFile:       "prompts/report_prompt.txt",
			ExtractWorkers:         4,
			SanitizeReport:         true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from defaults, an optional .env file,
// an optional YAML file and finally environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewAppError(KindConfiguration, "load .env", err)
	}

	cfg := DefaultConfig()

	path := getEnv("CONFIG_FILE", "config.yaml")
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return NewAppError(KindConfiguration, "read config file "+path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return NewAppError(KindConfiguration, "parse config file "+path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.GRPCAddr = getEnvAllowEmpty("GRPC_ADDR", c.Server.GRPCAddr)
	if v := getEnv("CORS_ALLOW_ORIGINS", ""); v != "" {
		c.Server.CORSAllowOrigins = splitList(v)
	}

	c.Auth.APIKey = getEnv("API_KEY", c.Auth.APIKey)

	c.Ollama.BaseURL = getEnv("OLLAMA_BASE_URL", c.Ollama.BaseURL)
	c.Ollama.Model = getEnv("OLLAMA_MODEL", c.Ollama.Model)
	c.Ollama.NumCtx = getEnvAsInt("OLLAMA_NUM_CTX", c.Ollama.NumCtx)
	c.Ollama.Timeout = getEnvAsDuration("OLLAMA_TIMEOUT", c.Ollama.Timeout)
	c.Ollama.Temperature = getEnvAsFloat32("OLLAMA_TEMPERATURE", c.Ollama.Temperature)
	c.Ollama.NumPredict = getEnvAsInt("OLLAMA_NUM_PREDICT", c.Ollama.NumPredict)
	c.Ollama.RepeatPenalty = getEnvAsFloat32("OLLAMA_REPEAT_PENALTY", c.Ollama.RepeatPenalty)
	c.Ollama.RepeatLastN = getEnvAsInt("OLLAMA_REPEAT_LAST_N", c.Ollama.RepeatLastN)

	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.Languages = getEnv("OCR_LANGUAGES", c.OCR.Languages)
	c.OCR.UseGPU = getEnvAsBool("OCR_USE_GPU", c.OCR.UseGPU)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.AzureEndpoint = getEnv("AZURE_VISION_ENDPOINT", c.OCR.AzureEndpoint)
	c.OCR.AzureKey = getEnv("AZURE_VISION_KEY", c.OCR.AzureKey)
	c.OCR.PreprocessWidth = getEnvAsInt("OCR_PREPROCESS_MAX_WIDTH", c.OCR.PreprocessWidth)

	c.Processing.MaxUploadSizeMB = getEnvAsInt("MAX_UPLOAD_SIZE_MB", c.Processing.MaxUploadSizeMB)
	c.Processing.MaxTotalTokensEstimate = getEnvAsInt("MAX_TOTAL_TOKENS_ESTIMATE", c.Processing.MaxTotalTokensEstimate)
	c.Processing.ExtractionPromptFile = getEnv("EXTRACTION_PROMPT_FILE", c.Processing.ExtractionPromptFile)
	c.Processing.ReportPromptFile = getEnv("REPORT_PROMPT_FILE", c.Processing.ReportPromptFile)
	c.Processing.ExtractWorkers = getEnvAsInt("EXTRACT_WORKERS", c.Processing.ExtractWorkers)
	c.Processing.SanitizeReport = getEnvAsBool("SANITIZE_REPORT", c.Processing.SanitizeReport)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty lets an explicitly empty variable clear the value.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or bare seconds ("600").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Ollama.BaseURL == "" {
		return NewAppError(KindConfiguration, "OLLAMA_BASE_URL is required", ErrInvalidInput)
	}
	if c.Ollama.Model == "" {
		return NewAppError(KindConfiguration, "OLLAMA_MODEL is required", ErrInvalidInput)
	}
	if c.Ollama.Timeout <= 0 {
		return NewAppError(KindConfiguration, "OLLAMA_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.Processing.MaxUploadSizeMB <= 0 {
		return NewAppError(KindConfiguration, "MAX_UPLOAD_SIZE_MB must be positive", ErrInvalidInput)
	}
	if c.Processing.MaxTotalTokensEstimate <= 0 {
		return NewAppError(KindConfiguration, "MAX_TOTAL_TOKENS_ESTIMATE must be positive", ErrInvalidInput)
	}
	if c.Server.Port <= 0 {
		return NewAppError(KindConfiguration, "SERVER_PORT must be positive", ErrInvalidInput)
	}
	if c.Auth.APIKey == "" {
		return NewAppError(KindConfiguration, "API_KEY is required", ErrInvalidInput)
	}
	return nil
}
