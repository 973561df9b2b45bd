// internal/config/model.go
//
// Typed configuration model for the newsletter service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                              – dotenv values,
//   • `conf/global.yaml`                           – primary static file,
//   • `NEWSLETTER_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain values.
//
// Credentials are `secret.String`.  They decode from plain strings but
// never print.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import (
	"time"

	"github.com/yanizio/newsletter/internal/domain"
	"github.com/yanizio/newsletter/internal/secret"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Application section
//

// Application.BaseURL is the externally visible origin used when building
// confirmation links, e.g. https://news.example.com.
type Application struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

//
// Database section
//

// DriverMemory keeps subscriptions in process memory.  Local runs only:
// nothing survives a restart.
const DriverMemory = "memory"

// Database selects the driver and pool limits.  The MySQL DSN gets
// parseTime=true forced on at connect time.
type Database struct {
	Driver          string        `koanf:"driver"            validate:"required,oneof=mysql postgres memory"`
	DSN             secret.String `koanf:"dsn"               validate:"required_unless=Driver memory"`
	MaxOpenConns    int           `koanf:"max_open_conns"    validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`
	MigrateOnStart  bool          `koanf:"migrate_on_start"`
}

//
// Email client section
//

// EmailClient configures the transactional-email provider.
type EmailClient struct {
	BaseURL            string        `koanf:"base_url"            validate:"required,url"`
	SenderEmail        string        `koanf:"sender_email"        validate:"required"`
	AuthorizationToken secret.String `koanf:"authorization_token" validate:"required"`
	Timeout            time.Duration `koanf:"timeout"             validate:"gte=0"`
}

// Sender parses SenderEmail with the same rules applied to subscribers.
func (e EmailClient) Sender() (domain.SubscriberEmail, error) {
	return domain.ParseSubscriberEmail(e.SenderEmail)
}

//
// Log section
//

// Log tunes the daily JSON log under <root>/logs.
type Log struct {
	Level      string `koanf:"level"        validate:"omitempty,oneof=debug info warn error"`
	MaxSizeMB  int    `koanf:"max_size_mb"  validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups"  validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
}

//
// GeoIP section
//

// GeoIP.DatabasePath points at a MaxMind City database.  Empty disables
// geo enrichment.
type GeoIP struct {
	DatabasePath string `koanf:"database_path"`
}

//
// Vault section
//

// Vault toggles resolution of `vault:` values.  Address and token come from
// VAULT_ADDR and VAULT_TOKEN.
type Vault struct {
	Enabled  bool          `koanf:"enabled"`
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // NEWSLETTER_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP        HTTP        `koanf:"http"`
	Application Application `koanf:"application"`
	Database    Database    `koanf:"database"`
	EmailClient EmailClient `koanf:"email_client"`
	Log         Log         `koanf:"log"`
	GeoIP       GeoIP       `koanf:"geoip"`
	Vault       Vault       `koanf:"vault"`
	Paths       Paths       `koanf:"-"` // not loaded from config files
}

// Defaults applied after unmarshal when a field is left at its zero value.
const (
	defaultDriver          = "mysql"
	defaultMaxOpenConns    = 15
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultEmailTimeout    = 10 * time.Second
	defaultVaultCacheTTL   = 5 * time.Minute
)

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = defaultDriver
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if c.EmailClient.Timeout == 0 {
		c.EmailClient.Timeout = defaultEmailTimeout
	}
	if c.Vault.CacheTTL == 0 {
		c.Vault.CacheTTL = defaultVaultCacheTTL
	}
}
