package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the api and worker processes.
// All values must come from env (or an env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Trust    TrustConfig
	Auth     AuthConfig
	Followup FollowupConfig
	Model    ModelConfig
	Graph    GraphConfig
	Report   ReportConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// DBConfig is optional: when Host is empty the api runs on the in-memory
// conversation store. Production deployments must set it.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig is the queue backend address. It is the only required external
// dependency: follow-up timers live in the queue, not in process memory.
type RedisConfig struct {
	Host string
	Port int
}

// TrustConfig carries the two independent trust domains.
// Either secret may be empty, which degrades that domain to open mode
// (no verification). Open mode is for local development only and is
// logged loudly at startup.
type TrustConfig struct {
	// WebhookSecret verifies inbound provider payloads (X-Hub-Signature-256).
	WebhookSecret string
	// InternalSecret verifies service-to-service calls (X-Internal-Signature).
	InternalSecret string
	// InternalBaseURL is where workers reach the signed internal ingress.
	InternalBaseURL string
}

// AuthConfig protects the operator read/ops surface. Empty secret degrades to
// open mode, consistent with the trust-domain posture above.
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

type FollowupConfig struct {
	// DefaultSLA is the delay before an unanswered conversation escalates.
	DefaultSLA time.Duration
	// DebugOverride, when > 0, replaces every SLA (including per-intent ones)
	// with a single short delay for testing.
	DebugOverride time.Duration
	// ClearOverdueOnReply controls whether an agent reply clears the overdue
	// flag. Default false: escalation is sticky for reporting.
	ClearOverdueOnReply bool
}

// ModelConfig points at an OpenAI-compatible chat-completions endpoint.
// When APIKey is empty the classifier and drafter run heuristic-only.
type ModelConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GraphConfig is the outbound WhatsApp Graph API surface.
// Empty token means dev mode: sends succeed locally with fake message ids.
type GraphConfig struct {
	Token   string
	BaseURL string
}

type ReportConfig struct {
	// SnapshotInterval, when > 0, runs the nightly-report snapshot loop at
	// this interval. Zero disables the loop (snapshots on demand only).
	SnapshotInterval time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
		c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
		c.DB.Password = os.Getenv("DB_PASSWORD")
		c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
		c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Trust.WebhookSecret = os.Getenv("META_APP_SECRET")
	c.Trust.InternalSecret = os.Getenv("INTERNAL_SECRET")
	c.Trust.InternalBaseURL = strings.TrimSpace(os.Getenv("INTERNAL_BASE_URL"))

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))

	c.Followup.DefaultSLA = mustDuration("FOLLOWUP_SLA")
	c.Followup.DebugOverride = mustDuration("FOLLOWUP_DEBUG")
	c.Followup.ClearOverdueOnReply = boolEnv("CLEAR_OVERDUE_ON_REPLY")

	c.Model.APIKey = os.Getenv("OPENAI_API_KEY")
	c.Model.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	c.Model.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	c.Model.Timeout = mustDuration("OPENAI_TIMEOUT")

	c.Graph.Token = os.Getenv("WA_GRAPH_TOKEN")
	c.Graph.BaseURL = strings.TrimSpace(os.Getenv("WA_GRAPH_BASE_URL"))

	c.Report.SnapshotInterval = mustDuration("REPORT_SNAPSHOT_INTERVAL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host != "" {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("DB_HOST is required in production; the in-memory store is for local use"))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	// Open-mode trust is a documented risk, not an error, outside production.
	if c.IsProduction() {
		if c.Trust.WebhookSecret == "" {
			errs = append(errs, errors.New("META_APP_SECRET is required in production"))
		}
		if c.Trust.InternalSecret == "" {
			errs = append(errs, errors.New("INTERNAL_SECRET is required in production"))
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
	}

	if c.Followup.DefaultSLA <= 0 {
		c.Followup.DefaultSLA = 6 * time.Hour
	}
	if c.Model.Timeout <= 0 {
		c.Model.Timeout = 10 * time.Second
	}
	if c.Model.BaseURL == "" {
		c.Model.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model.Model == "" {
		c.Model.Model = "gpt-5-mini"
	}
	if c.Graph.BaseURL == "" {
		c.Graph.BaseURL = "https://graph.facebook.com/v20.0"
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) UseDB() bool {
	return c.DB.Host != ""
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// InternalURL is the base the workers call back into. Defaults to the local
// api process when unset, which matches the single-host dev setup.
func (c Config) InternalURL() string {
	if c.Trust.InternalBaseURL != "" {
		return strings.TrimRight(c.Trust.InternalBaseURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.App.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func boolEnv(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
