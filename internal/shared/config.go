package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	"flex_reviews/internal/domain"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	LogLevel    string

	StoreDriver   string // mongo|mysql|memory
	MongoURI      string
	MongoDatabase string
	MySQLDSN      string

	RedisAddr string // empty disables the cache
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	HostawayBase      string
	HostawayAccountID string
	HostawayKey       string
	PlacesBase        string
	PlacesKey         string
	UpstreamRPS       int
	SyncWorkers       int

	CORSOrigins     []string
	RateLimitWindow time.Duration
	RateLimitMax    int

	UnknownCategory      domain.Category
	SynthesizeCategories bool
	FallbackFixtures     bool
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}

// Load reads an optional .env file, then an optional YAML file named by
// CONFIG_FILE, and resolves every key from the environment first.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env not loaded")
	}
	return LoadFrom(os.Getenv)
}

// LoadFrom resolves the configuration through getenv. A YAML file named by
// CONFIG_FILE supplies values the environment leaves empty; keys in the file use
// the same names as the environment variables.
func LoadFrom(getenv func(string) string) (Config, error) {
	file := map[string]string{}
	if path := getenv("CONFIG_FILE"); path != "" {
		var err error
		if file, err = readYAML(path); err != nil {
			return Config{}, err
		}
	}
	src := source{getenv: getenv, file: file}

	c := Config{
		AppEnv:      src.str("APP_ENV", "development"),
		HTTPAddr:    src.str("HTTP_ADDR", ":3001"),
		MetricsAddr: src.str("METRICS_ADDR", ""),
		LogLevel:    src.str("LOG_LEVEL", "info"),

		StoreDriver:   strings.ToLower(src.str("STORE_DRIVER", "mongo")),
		MongoURI:      src.str("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: src.str("MONGODB_DATABASE", "flex_reviews"),
		MySQLDSN:      src.str("MYSQL_DSN", "root:root@tcp(localhost:3306)/flex_reviews?parseTime=true&charset=utf8mb4&loc=UTC"),

		RedisAddr: src.str("REDIS_ADDR", ""),
		RedisPass: src.str("REDIS_PASSWORD", ""),
		RedisDB:   src.int("REDIS_DB", 0),
		CacheTTL:  time.Duration(src.int("CACHE_TTL_SECONDS", 300)) * time.Second,

		HostawayBase:      src.str("HOSTAWAY_BASE_URL", "https://api.hostaway.com/v1"),
		HostawayAccountID: src.str("HOSTAWAY_ACCOUNT_ID", ""),
		HostawayKey:       src.str("HOSTAWAY_API_KEY", ""),
		PlacesBase:        src.str("GOOGLE_PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
		PlacesKey:         src.str("GOOGLE_PLACES_API_KEY", ""),
		UpstreamRPS:       src.int("UPSTREAM_RPS", 5),
		SyncWorkers:       src.int("SYNC_WORKERS", 4),

		CORSOrigins:     splitList(src.str("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitWindow: time.Duration(src.int("RATE_LIMIT_WINDOW_SECONDS", 900)) * time.Second,
		RateLimitMax:    src.int("RATE_LIMIT_MAX_REQUESTS", 100),

		SynthesizeCategories: src.bool("SYNTHESIZE_CATEGORIES", true),
		FallbackFixtures:     src.bool("FALLBACK_FIXTURES", true),
	}

	switch p := strings.ToLower(src.str("UNKNOWN_CATEGORY_POLICY", "cleanliness")); p {
	case "cleanliness":
		c.UnknownCategory = domain.CategoryCleanliness
	case "unclassified":
		c.UnknownCategory = domain.CategoryUnclassified
	default:
		return Config{}, fmt.Errorf("UNKNOWN_CATEGORY_POLICY: unsupported value %q", p)
	}

	switch c.StoreDriver {
	case "mongo", "mysql", "memory":
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER: unsupported value %q", c.StoreDriver)
	}
	if c.SyncWorkers <= 0 {
		c.SyncWorkers = 1
	}
	if c.RateLimitWindow <= 0 || c.RateLimitMax <= 0 {
		return Config{}, fmt.Errorf("rate limit window and max must be positive")
	}

	if c.HostawayKey == "" {
		log.Warn().Msg("HOSTAWAY_API_KEY is empty, hostaway sync disabled")
	}
	if c.PlacesKey == "" {
		log.Warn().Msg("GOOGLE_PLACES_API_KEY is empty, google sync disabled")
	}
	return c, nil
}

type source struct {
	getenv func(string) string
	file   map[string]string
}

func (s source) str(k, def string) string {
	if v := strings.TrimSpace(s.getenv(k)); v != "" {
		return v
	}
	if v := strings.TrimSpace(s.file[k]); v != "" {
		return v
	}
	return def
}

func (s source) int(k string, def int) int {
	if v := s.str(k, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer config value")
	}
	return def
}

func (s source) bool(k string, def bool) bool {
	if v := s.str(k, ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-boolean config value")
	}
	return def
}

func readYAML(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
		case []interface{}:
			parts := make([]string, 0, len(t))
			for _, p := range t {
				parts = append(parts, fmt.Sprint(p))
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(t)
		}
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
