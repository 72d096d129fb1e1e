package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App         AppConfig
	Discord     DiscordConfig
	Roles       RolesConfig
	Channels    ChannelsConfig
	Tickets     TicketsConfig
	Suggestions SuggestionsConfig
	AutoMod     AutoModConfig
	Punishments PunishmentsConfig
	Store       StoreConfig
	Ledger      LedgerConfig
	Redis       RedisConfig
	Postgres    PostgresConfig
	Logger      LoggerConfig
	Admin       AdminConfig
}

// AppConfig controls process level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// DiscordConfig holds gateway credentials.
type DiscordConfig struct {
	Token    string
	ClientID string
	GuildID  string
}

// RolesConfig holds guild role identifiers.
type RolesConfig struct {
	Staff     string
	Moderator string
	Admin     string
	Muted     string
	AutoRole  string
}

// ChannelsConfig holds log and feature channel identifiers.
type ChannelsConfig struct {
	TicketCategory    string
	TicketLogs        string
	TicketTranscripts string
	Suggestions       string
	SuggestionLogs    string
	SuggestionResults string
	ModLogs           string
	AutoModLogs       string
	ServerLogs        string
	JoinLeave         string
}

// TicketCategory describes one selectable ticket category.
type TicketCategory struct {
	Key         string
	Name        string
	Description string
}

// TicketsConfig configures the ticket system.
type TicketsConfig struct {
	MaxTicketsPerUser int
	SupportRoles      []string
	CloseDelay        time.Duration
	TranscriptLimit   int
	Categories        []TicketCategory
}

// Category looks up a category by key.
func (t TicketsConfig) Category(key string) (TicketCategory, bool) {
	for _, c := range t.Categories {
		if c.Key == key {
			return c, true
		}
	}
	return TicketCategory{}, false
}

// SuggestionsConfig configures the suggestion system.
type SuggestionsConfig struct {
	AllowAnonymous bool
	MaxListItems   int
}

// AutoModConfig configures the message filter chain.
type AutoModConfig struct {
	Enabled                  bool
	AntiSpam                 bool
	AntiInvite               bool
	AntiCaps                 bool
	BannedWordsEnabled       bool
	SpamTimeWindow           time.Duration
	SpamMessageLimit         int
	SpamMuteDuration         time.Duration
	CapsThreshold            float64
	CapsMinLength            int
	WarningMessageDeleteTime time.Duration
	BannedWords              []string
}

// PunishmentsConfig configures warning escalation.
type PunishmentsConfig struct {
	MuteThreshold       int
	BanThreshold        int
	DefaultMuteDuration time.Duration
	MaxSanctionDuration time.Duration
}

// StoreConfig locates the JSON documents.
type StoreConfig struct {
	DataDir string
}

// LedgerConfig selects the interaction idempotency backend.
type LedgerConfig struct {
	Backend  string
	TTL      time.Duration
	Capacity int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PostgresConfig holds DB connection values for the audit sink.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AdminConfig configures the admin HTTP API.
type AdminConfig struct {
	Enabled               bool
	Host                  string
	Port                  string
	JWTSecret             string
	AccessTokenTTLMinutes int
	RequestTimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	capsThreshold, err := strconv.ParseFloat(getEnv("AUTOMOD_CAPS_THRESHOLD", "0.7"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOMOD_CAPS_THRESHOLD: %w", err)
	}

	staffRole := os.Getenv("ROLE_STAFF")
	moderatorRole := os.Getenv("ROLE_MODERATOR")
	adminRole := os.Getenv("ROLE_ADMIN")

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "modbot"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Discord: DiscordConfig{
			Token:    os.Getenv("DISCORD_TOKEN"),
			ClientID: os.Getenv("CLIENT_ID"),
			GuildID:  os.Getenv("GUILD_ID"),
		},
		Roles: RolesConfig{
			Staff:     staffRole,
			Moderator: moderatorRole,
			Admin:     adminRole,
			Muted:     os.Getenv("ROLE_MUTED"),
			AutoRole:  os.Getenv("ROLE_AUTO"),
		},
		Channels: ChannelsConfig{
			TicketCategory:    os.Getenv("CHANNEL_TICKET_CATEGORY"),
			TicketLogs:        os.Getenv("CHANNEL_TICKET_LOGS"),
			TicketTranscripts: getEnv("CHANNEL_TICKET_TRANSCRIPTS", os.Getenv("CHANNEL_TICKET_LOGS")),
			Suggestions:       os.Getenv("CHANNEL_SUGGESTIONS"),
			SuggestionLogs:    os.Getenv("CHANNEL_SUGGESTION_LOGS"),
			SuggestionResults: os.Getenv("CHANNEL_SUGGESTION_RESULTS"),
			ModLogs:           os.Getenv("CHANNEL_MOD_LOGS"),
			AutoModLogs:       os.Getenv("CHANNEL_AUTOMOD_LOGS"),
			ServerLogs:        os.Getenv("CHANNEL_SERVER_LOGS"),
			JoinLeave:         os.Getenv("CHANNEL_JOIN_LEAVE"),
		},
		Tickets: TicketsConfig{
			MaxTicketsPerUser: getEnvAsInt("TICKETS_MAX_PER_USER", 3),
			SupportRoles:      getEnvAsList("TICKETS_SUPPORT_ROLES", nonEmpty(staffRole, moderatorRole, adminRole)),
			CloseDelay:        getEnvAsDuration("TICKETS_CLOSE_DELAY", 10*time.Second),
			TranscriptLimit:   getEnvAsInt("TICKETS_TRANSCRIPT_LIMIT", 100),
			Categories:        DefaultTicketCategories(),
		},
		Suggestions: SuggestionsConfig{
			AllowAnonymous: getEnvAsBool("SUGGESTIONS_ALLOW_ANONYMOUS", true),
			MaxListItems:   getEnvAsInt("SUGGESTIONS_MAX_LIST_ITEMS", 10),
		},
		AutoMod: AutoModConfig{
			Enabled:                  getEnvAsBool("AUTOMOD_ENABLED", true),
			AntiSpam:                 getEnvAsBool("AUTOMOD_ANTI_SPAM", true),
			AntiInvite:               getEnvAsBool("AUTOMOD_ANTI_INVITE", true),
			AntiCaps:                 getEnvAsBool("AUTOMOD_ANTI_CAPS", true),
			BannedWordsEnabled:       getEnvAsBool("AUTOMOD_BANNED_WORDS", true),
			SpamTimeWindow:           getEnvAsDuration("AUTOMOD_SPAM_WINDOW", 5*time.Second),
			SpamMessageLimit:         getEnvAsInt("AUTOMOD_SPAM_LIMIT", 5),
			SpamMuteDuration:         getEnvAsDuration("AUTOMOD_SPAM_MUTE", 5*time.Minute),
			CapsThreshold:            capsThreshold,
			CapsMinLength:            getEnvAsInt("AUTOMOD_CAPS_MIN_LENGTH", 10),
			WarningMessageDeleteTime: getEnvAsDuration("AUTOMOD_NOTICE_TTL", 5*time.Second),
			BannedWords:              getEnvAsList("AUTOMOD_BANNED_WORDS_LIST", []string{"badword1", "badword2", "spam"}),
		},
		Punishments: PunishmentsConfig{
			MuteThreshold:       getEnvAsInt("PUNISH_MUTE_THRESHOLD", 3),
			BanThreshold:        getEnvAsInt("PUNISH_BAN_THRESHOLD", 5),
			DefaultMuteDuration: getEnvAsDuration("PUNISH_MUTE_DURATION", time.Hour),
			MaxSanctionDuration: getEnvAsDuration("PUNISH_MAX_DURATION", 365*24*time.Hour),
		},
		Store: StoreConfig{
			DataDir: getEnv("DATA_DIR", "data"),
		},
		Ledger: LedgerConfig{
			Backend:  getEnv("LEDGER_BACKEND", "memory"),
			TTL:      getEnvAsDuration("LEDGER_TTL", 15*time.Minute),
			Capacity: getEnvAsInt("LEDGER_CAPACITY", 10000),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Admin: AdminConfig{
			Enabled:               getEnvAsBool("ADMIN_ENABLED", true),
			Host:                  getEnv("ADMIN_HOST", "127.0.0.1"),
			Port:                  getEnv("ADMIN_PORT", "8080"),
			JWTSecret:             getEnv("ADMIN_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("ADMIN_TOKEN_TTL_MINUTES", 60),
			RequestTimeoutSeconds: getEnvAsInt("ADMIN_REQUEST_TIMEOUT_SECONDS", 30),
		},
	}

	return cfg, nil
}

// Validate checks settings the bot cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is required"))
	}
	if c.Discord.GuildID == "" {
		errs = append(errs, errors.New("GUILD_ID is required"))
	}
	if c.Punishments.MuteThreshold <= 0 || c.Punishments.BanThreshold <= c.Punishments.MuteThreshold {
		errs = append(errs, fmt.Errorf("punishment thresholds must satisfy 0 < mute (%d) < ban (%d)",
			c.Punishments.MuteThreshold, c.Punishments.BanThreshold))
	}
	if c.AutoMod.SpamMessageLimit <= 1 {
		errs = append(errs, errors.New("AUTOMOD_SPAM_LIMIT must be greater than 1"))
	}
	switch c.Ledger.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis ledger"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend))
	}
	return errors.Join(errs...)
}

// DefaultTicketCategories returns the built-in ticket categories.
func DefaultTicketCategories() []TicketCategory {
	return []TicketCategory{
		{Key: "general", Name: "General Support", Description: "General support and questions"},
		{Key: "technical", Name: "Technical Support", Description: "Technical issues and bugs"},
		{Key: "billing", Name: "Billing Support", Description: "Billing and payment issues"},
		{Key: "report", Name: "Report User", Description: "Report a user or content"},
	}
}

// Addr returns the admin HTTP bind address.
func (a AdminConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AdminConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
