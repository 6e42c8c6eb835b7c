package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	feedBaseURL     = "https://rss.arxiv.org/rss/"

	configPathEnv     = "ARXIV_CONFIG"
	feedsEnv          = "ARXIV_RSS_URLS"
	geminiAPIKeyEnv   = "ARXIV_GEMINI_API_KEY"
	geminiBaseURLEnv  = "ARXIV_GEMINI_BASE_URL"
	geminiModelEnv    = "ARXIV_GEMINI_MODEL"
	geminiPromptEnv   = "ARXIV_GEMINI_PROMPT"
	promptFileEnv     = "ARXIV_GEMINI_PROMPT_FILE"
	pdfPagesEnv       = "ARXIV_GEMINI_PDF_PAGES"
	maxTokensEnv      = "ARXIV_GEMINI_MAX_TOKENS"
	smtpHostEnv       = "ARXIV_SMTP_HOST"
	smtpPortEnv       = "ARXIV_SMTP_PORT"
	smtpUsernameEnv   = "ARXIV_SMTP_USERNAME"
	smtpPasswordEnv   = "ARXIV_SMTP_PASSWORD"
	smtpFromEnv       = "ARXIV_SMTP_FROM"
	smtpToEnv         = "ARXIV_SMTP_TO"
	storageFileEnv    = "ARXIV_STORAGE_FILE"
	cronExpressionEnv = "ARXIV_CRON"
	timezoneEnv       = "ARXIV_TIMEZONE"
	logLevelEnv       = "ARXIV_LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Feeds     []string        `yaml:"feeds"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GeminiConfig defines how to contact the summarization model. The API is the
// OpenAI-compatible chat-completions surface, pointed at Gemini by default.
type GeminiConfig struct {
	APIKey     string `yaml:"apiKey"`
	BaseURL    string `yaml:"baseUrl"`
	Model      string `yaml:"model"`
	Prompt     string `yaml:"prompt"`
	PromptFile string `yaml:"promptFile"`
	PDFPages   int    `yaml:"pdfPages"`
	MaxTokens  int    `yaml:"maxTokens"`
}

// SMTPConfig wires all data required to deliver notification mail.
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// StorageConfig locates the notification ledger file.
type StorageConfig struct {
	File string `yaml:"file"`
}

// SchedulerConfig defines when the watcher should run. An empty cron
// expression means a single run followed by process exit.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// HTTPConfig tunes outbound traffic towards arXiv.
type HTTPConfig struct {
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
	RatePerSecond  float64 `yaml:"ratePerSecond"`
}

// Timeout returns the per-request timeout as a duration.
func (h HTTPConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// FeedURLs expands shorthand category tokens into full feed URLs. Entries
// that already look like URLs pass through unchanged.
func (c Config) FeedURLs() []string {
	urls := make([]string, 0, len(c.Feeds))
	for _, feed := range c.Feeds {
		if strings.HasPrefix(feed, "http://") || strings.HasPrefix(feed, "https://") {
			urls = append(urls, feed)
			continue
		}
		urls = append(urls, feedBaseURL+feed)
	}
	return urls
}

// Load reads YAML configuration (if present) and applies environment
// overrides. The path argument wins over the ARXIV_CONFIG variable. The only
// hard failure is an unreadable prompt file; everything else falls back.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if cfg.Gemini.PromptFile != "" {
		raw, err := os.ReadFile(cfg.Gemini.PromptFile)
		if err != nil {
			return Config{}, fmt.Errorf("read prompt file %s: %w", cfg.Gemini.PromptFile, err)
		}
		cfg.Gemini.Prompt = strings.TrimSpace(string(raw))
	}

	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c Config) Validate() error {
	var missing []string

	if c.Gemini.APIKey == "" {
		missing = append(missing, "gemini.apiKey")
	}
	if c.SMTP.Host == "" {
		missing = append(missing, "smtp.host")
	}
	if c.SMTP.Username == "" {
		missing = append(missing, "smtp.username")
	}
	if c.SMTP.Password == "" {
		missing = append(missing, "smtp.password")
	}
	if c.SMTP.From == "" {
		missing = append(missing, "smtp.from")
	}
	if len(c.SMTP.To) == 0 {
		missing = append(missing, "smtp.to")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(feedsEnv); v != "" {
		c.Feeds = splitList(v)
	}

	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(geminiBaseURLEnv); v != "" {
		c.Gemini.BaseURL = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv(geminiPromptEnv); v != "" {
		c.Gemini.Prompt = v
	}
	if v := os.Getenv(promptFileEnv); v != "" {
		c.Gemini.PromptFile = v
	}
	if v := os.Getenv(pdfPagesEnv); v != "" {
		if pages, err := strconv.Atoi(v); err == nil && pages > 0 {
			c.Gemini.PDFPages = pages
		}
	}
	if v := os.Getenv(maxTokensEnv); v != "" {
		if tokens, err := strconv.Atoi(v); err == nil && tokens > 0 {
			c.Gemini.MaxTokens = tokens
		}
	}

	if v := os.Getenv(smtpHostEnv); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.SMTP.Port = port
		}
	}
	if v := os.Getenv(smtpUsernameEnv); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv(smtpFromEnv); v != "" {
		c.SMTP.From = v
	}
	if v := os.Getenv(smtpToEnv); v != "" {
		c.SMTP.To = splitList(v)
	}

	if v := os.Getenv(storageFileEnv); v != "" {
		c.Storage.File = v
	}
	if v := os.Getenv(cronExpressionEnv); v != "" {
		c.Scheduler.CronExpression = v
	}
	if v := os.Getenv(timezoneEnv); v != "" {
		c.Scheduler.Timezone = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mergeConfig(base, override Config) Config {
	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	if override.Gemini.APIKey != "" {
		base.Gemini.APIKey = override.Gemini.APIKey
	}
	if override.Gemini.BaseURL != "" {
		base.Gemini.BaseURL = override.Gemini.BaseURL
	}
	if override.Gemini.Model != "" {
		base.Gemini.Model = override.Gemini.Model
	}
	if override.Gemini.Prompt != "" {
		base.Gemini.Prompt = override.Gemini.Prompt
	}
	if override.Gemini.PromptFile != "" {
		base.Gemini.PromptFile = override.Gemini.PromptFile
	}
	if override.Gemini.PDFPages > 0 {
		base.Gemini.PDFPages = override.Gemini.PDFPages
	}
	if override.Gemini.MaxTokens > 0 {
		base.Gemini.MaxTokens = override.Gemini.MaxTokens
	}

	if override.SMTP.Host != "" {
		base.SMTP.Host = override.SMTP.Host
	}
	if override.SMTP.Port > 0 {
		base.SMTP.Port = override.SMTP.Port
	}
	if override.SMTP.Username != "" {
		base.SMTP.Username = override.SMTP.Username
	}
	if override.SMTP.Password != "" {
		base.SMTP.Password = override.SMTP.Password
	}
	if override.SMTP.From != "" {
		base.SMTP.From = override.SMTP.From
	}
	if len(override.SMTP.To) > 0 {
		base.SMTP.To = override.SMTP.To
	}

	if override.Storage.File != "" {
		base.Storage.File = override.Storage.File
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.HTTP.TimeoutSeconds > 0 {
		base.HTTP.TimeoutSeconds = override.HTTP.TimeoutSeconds
	}
	if override.HTTP.RatePerSecond > 0 {
		base.HTTP.RatePerSecond = override.HTTP.RatePerSecond
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Feeds: []string{"cs.AI", "cs.CE", "q-fin", "stat.ML", "econ"},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:   "gemini-2.5-flash-lite",
			Prompt: "Summarize this research paper concisely. " +
				"Highlight the main contributions, methodology, and key findings. " +
				"Keep it under 200 words.\n\nTitle: {title}",
			PDFPages:  20,
			MaxTokens: 4096,
		},
		SMTP:      SMTPConfig{Port: 587},
		Storage:   StorageConfig{File: "notified_papers.json"},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone, location: tz},
		HTTP:      HTTPConfig{TimeoutSeconds: 30, RatePerSecond: 1},
		Logging:   LoggingConfig{Level: "info"},
	}
}
