package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Rotation of the bot file; zero values fall back to lumberjack defaults.
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// AntiSpamConfig controls the per-user flood guard.
// More than Limit updates within IntervalMS blocks the user for BlockSeconds.
type AntiSpamConfig struct {
	Disabled     bool `yaml:"disabled" envconfig:"ANTISPAM_DISABLED"`
	Limit        int  `yaml:"limit" envconfig:"ANTISPAM_LIMIT"`
	IntervalMS   int  `yaml:"interval_ms" envconfig:"ANTISPAM_INTERVAL_MS"`
	BlockSeconds int  `yaml:"block_seconds" envconfig:"ANTISPAM_BLOCK_SECONDS"`
}

// AccessConfig carries the raw allow-lists and their parsed form.
type AccessConfig struct {
	Admins     string `yaml:"admins" envconfig:"ADMINS"`
	MainAdmins string `yaml:"main_admins" envconfig:"MAIN_ADMINS"`

	AdminIDs     []int64  `yaml:"-" ignored:"true"`
	MainAdminIDs []int64  `yaml:"-" ignored:"true"`
	Rejected     []string `yaml:"-" ignored:"true"`
}

// MailConfig holds SMTP credentials for outgoing documents.
type MailConfig struct {
	Host           string `yaml:"host" envconfig:"SMTP_HOST"`
	Port           int    `yaml:"port" envconfig:"SMTP_PORT"`
	Username       string `yaml:"username" envconfig:"GMAIL_USER"`
	Password       string `yaml:"password" envconfig:"GMAIL_APP_PASSWORD"`
	From           string `yaml:"from" envconfig:"MAIL_FROM"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"MAIL_TIMEOUT_SECONDS"`
}

// RenderConfig tunes the headless browser.
type RenderConfig struct {
	ChromePath     string  `yaml:"chrome_path" envconfig:"CHROME_PATH"`
	NoSandbox      bool    `yaml:"no_sandbox" envconfig:"CHROME_NO_SANDBOX"`
	TimeoutSeconds int     `yaml:"timeout_seconds" envconfig:"RENDER_TIMEOUT_SECONDS"`
	PDFScale       float64 `yaml:"pdf_scale"`
	ImageSelector  string  `yaml:"image_selector"`
	ImageWidth     int     `yaml:"image_width"`
	ImageScale     float64 `yaml:"image_scale"`
	// SettleMS waits for fonts and images before a screenshot; negative disables.
	SettleMS int `yaml:"settle_ms"`
}

// PathsConfig locates templates and the scratch area.
type PathsConfig struct {
	ScratchDir      string `yaml:"scratch_dir" envconfig:"SCRATCH_DIR"`
	InvoiceDir      string `yaml:"invoice_dir"`
	TitleDir        string `yaml:"title_dir"`
	TradeDir        string `yaml:"trade_dir"`
	DefaultDocument string `yaml:"default_document" envconfig:"DEFAULT_PDF_PATH"`
}

// SenderConfig configures the outbound message dispatcher.
type SenderConfig struct {
	QueueSize      int `yaml:"queue_size"`
	Workers        int `yaml:"workers"`
	MaxRetries     int `yaml:"max_retries"`
	RetryBackoffMS int `yaml:"retry_backoff_ms"`
	// RatePerSecond caps outbound Telegram calls; 0 uses the dispatcher default.
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// DatabaseConfig holds Postgres settings. The database is optional.
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"DB_ENABLED"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// DSN returns the lib/pq keyword connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// URL returns the postgres:// form expected by golang-migrate.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// Config aggregates the bot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Logging  LoggingConfig  `yaml:"logging"`
	AntiSpam AntiSpamConfig `yaml:"antispam"`
	Access   AccessConfig   `yaml:"access"`
	Mail     MailConfig     `yaml:"mail"`
	Render   RenderConfig   `yaml:"render"`
	Paths    PathsConfig    `yaml:"paths"`
	Sender   SenderConfig   `yaml:"sender"`
	Database DatabaseConfig `yaml:"database"`
}

// Load reads .env, an optional YAML file and environment variables, in that order.
// An empty path skips the YAML step.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields, applies defaults and parses allow-lists.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required (BOT_TOKEN)")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if err := normalizeAntiSpam(&cfg.AntiSpam); err != nil {
		return err
	}

	admins, rejected := ParseIDList(cfg.Access.Admins)
	mains, rejectedMain := ParseIDList(cfg.Access.MainAdmins)
	cfg.Access.AdminIDs = admins
	cfg.Access.MainAdminIDs = mains
	cfg.Access.Rejected = append(rejected, rejectedMain...)

	if cfg.Mail.Host == "" {
		cfg.Mail.Host = "smtp.gmail.com"
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 465
	}
	if cfg.Mail.Port < 0 || cfg.Mail.Port > 65535 {
		return fmt.Errorf("mail.port out of range: %d", cfg.Mail.Port)
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}
	if cfg.Mail.TimeoutSeconds <= 0 {
		cfg.Mail.TimeoutSeconds = 30
	}

	normalizeRender(&cfg.Render)
	normalizePaths(&cfg.Paths)

	if cfg.Sender.RetryBackoffMS < 0 || cfg.Sender.MaxRetries < 0 || cfg.Sender.RatePerSecond < 0 {
		return fmt.Errorf("sender retry and rate settings must be >= 0")
	}

	if cfg.Database.Enabled {
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required when database.enabled is true")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	}
	return nil
}

func normalizeAntiSpam(a *AntiSpamConfig) error {
	if a.Limit == 0 {
		a.Limit = 5
	}
	if a.IntervalMS == 0 {
		a.IntervalMS = 2000
	}
	if a.BlockSeconds == 0 {
		a.BlockSeconds = 30
	}
	if a.Limit < 0 || a.IntervalMS < 0 || a.BlockSeconds < 0 {
		return fmt.Errorf("antispam values must be >= 0")
	}
	return nil
}

func normalizeRender(r *RenderConfig) {
	if r.TimeoutSeconds <= 0 {
		r.TimeoutSeconds = 60
	}
	if r.PDFScale <= 0 {
		r.PDFScale = 1.3348
	}
	if r.ImageSelector == "" {
		r.ImageSelector = `div[data-testid="inLand"]`
	}
	if r.ImageWidth <= 0 {
		r.ImageWidth = 1200
	}
	if r.ImageScale <= 0 {
		r.ImageScale = 6
	}
	if r.SettleMS == 0 {
		r.SettleMS = 2000
	}
	if r.SettleMS < 0 {
		r.SettleMS = 0
	}
}

func normalizePaths(p *PathsConfig) {
	if p.ScratchDir == "" {
		p.ScratchDir = "temp"
	}
	if p.InvoiceDir == "" {
		p.InvoiceDir = "assets/invoice"
	}
	if p.TitleDir == "" {
		p.TitleDir = "assets/title"
	}
	if p.TradeDir == "" {
		p.TradeDir = "assets/trade"
	}
	if p.DefaultDocument == "" {
		p.DefaultDocument = "assets/default.pdf"
	}
}

// ParseIDList splits raw on commas, whitespace and newlines and parses each
// chunk as an int64. Chunks that are not integers are returned as rejected.
// Duplicates are kept once, in first-seen order.
func ParseIDList(raw string) (ids []int64, rejected []string) {
	chunks := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	seen := make(map[int64]struct{}, len(chunks))
	for _, chunk := range chunks {
		id, err := strconv.ParseInt(chunk, 10, 64)
		if err != nil {
			rejected = append(rejected, chunk)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, rejected
}

// Redacted returns a YAML dump of cfg with secrets masked.
func (c Config) Redacted() ([]byte, error) {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Telegram.Token = mask(c.Telegram.Token)
	c.Mail.Password = mask(c.Mail.Password)
	c.Database.Password = mask(c.Database.Password)
	return yaml.Marshal(c)
}
