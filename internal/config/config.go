// Package config builds the process configuration once at startup from a
// .env file, INVENTURA_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/erazemk/inventura/internal/model"
)

// Config holds every setting the server needs.
type Config struct {
	DBPath    string
	Addr      string
	AdminUser string
	LogPath   string

	// JWTSecret signs auth tokens. Empty means use the secret stored in
	// the database.
	JWTSecret   string
	CORSOrigins []string

	// TokenTTL is how long an issued auth token stays valid.
	TokenTTL time.Duration

	// RedisAddr enables cross-instance locking when set.
	RedisAddr string

	// PhoneRegion is the default region for parsing employee phone numbers.
	PhoneRegion string

	// LocationUpdate decides how asset updates that carry location fields
	// are handled (model.LocationUpdateLedger or model.LocationUpdateReject).
	LocationUpdate string

	// Seed inserts starter reference data when the database is created.
	Seed bool
}

// DefaultTokenTTL is the auth token lifetime unless configured otherwise.
const DefaultTokenTTL = 7 * 24 * time.Hour

// DefaultEnvFile is read when Load is given no env files.
const DefaultEnvFile = ".env"

const usage = `Usage: inventura [flags]

Flags:
  -d, -db <path>            SQLite database path (default: inventura.sqlite3)
  -a, -addr <host:port>     listen address (default: :8080)
  -u, -user <name>          admin username on first run (default: Admin)
  -l, -log <path>           log file path (default: no file, stdout/stderr only)
  -s, -seed                 insert starter reference data on first run
      -jwt-secret <secret>  token signing secret (default: generated per database)
      -token-ttl <dur>      auth token lifetime (default: 168h)
      -cors <origins>       comma-separated allowed CORS origins
      -redis <host:port>    Redis address for cross-instance locks (default: in-process)
      -phone-region <CC>    default phone number region (default: RU)
      -location-update <p>  asset update location policy: ledger or reject (default: ledger)
  -h, -help                 show this help and exit

Every flag can also be set with an INVENTURA_* environment variable
(INVENTURA_DB, INVENTURA_ADDR, INVENTURA_ADMIN, INVENTURA_LOG, INVENTURA_SEED,
INVENTURA_JWT_SECRET, INVENTURA_TOKEN_TTL, INVENTURA_CORS_ORIGINS, INVENTURA_REDIS_ADDR,
INVENTURA_PHONE_REGION, INVENTURA_LOCATION_UPDATE), or in a .env file.
`

// Load parses args (without the program name) on top of the environment.
// It returns flag.ErrHelp when help was requested.
func Load(args []string, stdout io.Writer, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := &Config{}
	var cors string

	ttl, err := envDuration("INVENTURA_TOKEN_TTL", DefaultTokenTTL)
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("inventura", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { fmt.Fprint(stdout, usage) }

	stringVar(fs, &cfg.DBPath, "db", "d", env("INVENTURA_DB", "inventura.sqlite3"))
	stringVar(fs, &cfg.Addr, "addr", "a", env("INVENTURA_ADDR", ":8080"))
	stringVar(fs, &cfg.AdminUser, "user", "u", env("INVENTURA_ADMIN", "Admin"))
	stringVar(fs, &cfg.LogPath, "log", "l", env("INVENTURA_LOG", ""))
	fs.BoolVar(&cfg.Seed, "seed", envBool("INVENTURA_SEED"), "")
	fs.BoolVar(&cfg.Seed, "s", envBool("INVENTURA_SEED"), "")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", env("INVENTURA_JWT_SECRET", ""), "")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", ttl, "")
	fs.StringVar(&cors, "cors", env("INVENTURA_CORS_ORIGINS", ""), "")
	fs.StringVar(&cfg.RedisAddr, "redis", env("INVENTURA_REDIS_ADDR", ""), "")
	fs.StringVar(&cfg.PhoneRegion, "phone-region", env("INVENTURA_PHONE_REGION", "RU"), "")
	fs.StringVar(&cfg.LocationUpdate, "location-update", env("INVENTURA_LOCATION_UPDATE", model.LocationUpdateLedger), "")

	// The flag set prints usage itself on -h and on parse errors.
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg.CORSOrigins = splitList(cors)
	cfg.PhoneRegion = strings.ToUpper(strings.TrimSpace(cfg.PhoneRegion))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be verified by the flag parser.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("database path required")
	}
	if !model.ValidLocationUpdatePolicy(c.LocationUpdate) {
		return fmt.Errorf("invalid location update policy %q (want %s or %s)",
			c.LocationUpdate, model.LocationUpdateLedger, model.LocationUpdateReject)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token lifetime must be positive, got %s", c.TokenTTL)
	}
	if len(c.PhoneRegion) != 2 {
		return fmt.Errorf("invalid phone region %q", c.PhoneRegion)
	}
	return nil
}

// AllowsOrigin reports whether a browser origin may call the API.
func (c *Config) AllowsOrigin(origin string) bool {
	for _, o := range c.CORSOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func stringVar(fs *flag.FlagSet, p *string, long, short, value string) {
	fs.StringVar(p, long, value, "")
	fs.StringVar(p, short, value, "")
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
