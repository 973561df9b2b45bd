// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `NEWSLETTER_`, where `__` maps to “.”
     (e.g., `NEWSLETTER_EMAIL_CLIENT__BASE_URL → email_client.base_url`).

After merging, every string of the form `vault:<mount>/<path>#<key>` is
replaced by the secret it names.  The tree is then unmarshalled into
strongly-typed structs, defaulted, validated, enriched with the runtime
root path, and cached in an `atomic.Pointer` for lock-free reads.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, env overlay, vault resolution.
  • ERROR spans: YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span:  final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • The Vault client is opened only when a `vault:` value is present.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix   = "NEWSLETTER_"
	rootEnv     = envPrefix + "ROOT"
	vaultPrefix = "vault:"
)

// ErrVaultDisabled is returned when a value references Vault but
// vault.enabled is false.
var ErrVaultDisabled = errors.New("vault reference found but vault is disabled")

// KVReader resolves one key of a KV-v2 secret.  *vault.Client satisfies it.
type KVReader interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// KVOpener connects to Vault on demand.
type KVOpener func(ctx context.Context) (KVReader, error)

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves NEWSLETTER_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to executable heuristic for
// production layout.
func rootDir() string {
	if r := os.Getenv(rootEnv); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load discovers the root directory and loads from there.
func Load(ctx context.Context, openKV KVOpener) (*Config, error) {
	return LoadFrom(ctx, rootDir(), openKV)
}

// LoadFrom reads .env, YAML, env overrides, resolves vault values,
// validates, and caches Config.
func LoadFrom(ctx context.Context, root string, openKV KVOpener) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, fmt.Errorf("load %s: %w", yamlPath, err)
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: NEWSLETTER_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("env overlay: %w", err)
	}

	if err := resolveVault(ctx, k, openKV); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, fmt.Errorf("validate config: %w", err)
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"base_url", cfg.Application.BaseURL,
		"db_driver", cfg.Database.Driver,
		"email_base_url", cfg.EmailClient.BaseURL,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps NEWSLETTER_EMAIL_CLIENT__BASE_URL to email_client.base_url.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

/*──────────────────────────── vault values ────────────────────────────────*/

// resolveVault swaps every `vault:` string in k for the secret it names.
func resolveVault(ctx context.Context, k *koanf.Koanf, openKV KVOpener) error {
	var keys []string
	for key, val := range k.All() {
		if s, ok := val.(string); ok && strings.HasPrefix(s, vaultPrefix) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	if !k.Bool("vault.enabled") || openKV == nil {
		return fmt.Errorf("%w: %s", ErrVaultDisabled, strings.Join(keys, ", "))
	}
	kv, err := openKV(ctx)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}

	ttl := k.Duration("vault.cache_ttl")
	for _, key := range keys {
		path, field, err := ParseVaultRef(k.String(key))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		val, err := kv.GetKV(ctx, path, field, ttl)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		zap.S().Debugw("config value resolved from vault", "key", key, "path", path)
	}
	return nil
}

// ParseVaultRef splits `vault:<mount>/<path>#<key>` into secret path and key.
func ParseVaultRef(ref string) (secretPath, key string, err error) {
	body, ok := strings.CutPrefix(ref, vaultPrefix)
	if !ok {
		return "", "", fmt.Errorf("vault ref %q: missing %q prefix", ref, vaultPrefix)
	}
	secretPath, key, ok = strings.Cut(body, "#")
	if !ok || key == "" || !strings.Contains(secretPath, "/") {
		return "", "", fmt.Errorf("vault ref %q: want vault:<mount>/<path>#<key>", ref)
	}
	return secretPath, key, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the most recently loaded Config, or nil before Load.
func Get() *Config { return current.Load() }
