package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		ShutdownTimeout    string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		// driver: "postgres" | "memory" (memory solo para dev/tests)
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// kind: "memory" | "redis"
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
		// AppTTL: TTL del cache read-through de applications.
		AppTTL string `yaml:"app_ttl"`
	} `yaml:"cache"`

	JWT struct {
		Issuer string `yaml:"issuer"`
		// AccessTTL por defecto 1h.
		AccessTTL string `yaml:"access_ttl"`
		// RefreshTTL por defecto 2h. Intencionalmente corto para acotar la
		// ventana de replay; pendiente revisión de producto (ver DESIGN.md).
		RefreshTTL string `yaml:"refresh_ttl"`
		// KeySeed: base64(32 bytes) semilla ed25519. Si está vacío se genera
		// una clave efímera al arrancar (solo dev).
		KeySeed string `yaml:"key_seed"`
	} `yaml:"jwt"`

	Code struct {
		// TTL del authorization code (default 10m).
		TTL string `yaml:"ttl"`
	} `yaml:"code"`

	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Window  string `yaml:"window"` // ventana deslizante (default 1h)
		// Límites por tier de environment de la application.
		DevLimit  int    `yaml:"dev_limit"`  // default 1000
		ProdLimit int    `yaml:"prod_limit"` // default 10000
		Prefix    string `yaml:"prefix"`
	} `yaml:"rate"`

	Auth struct {
		IntrospectBasicUser string `yaml:"introspect_basic_user"`
		IntrospectBasicPass string `yaml:"introspect_basic_pass"`
	} `yaml:"auth"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Cache.AppTTL == "" {
		c.Cache.AppTTL = "30s"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "http://localhost:8080"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "1h"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "2h"
	}
	if c.Code.TTL == "" {
		c.Code.TTL = "10m"
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1h"
	}
	if c.Rate.DevLimit == 0 {
		c.Rate.DevLimit = 1000
	}
	if c.Rate.ProdLimit == 0 {
		c.Rate.ProdLimit = 10000
	}
	if c.Rate.Prefix == "" {
		c.Rate.Prefix = "rl:"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("CACHE_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_KEY_SEED"); ok {
		c.JWT.KeySeed = v
	}
	if v, ok := getEnvDur("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v.String()
	}
	if v, ok := getEnvDur("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v.String()
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_DEV_LIMIT"); ok {
		c.Rate.DevLimit = v
	}
	if v, ok := getEnvInt("RATE_PROD_LIMIT"); ok {
		c.Rate.ProdLimit = v
	}
	if v, ok := getEnvStr("INTROSPECT_BASIC_USER"); ok {
		c.Auth.IntrospectBasicUser = v
	}
	if v, ok := getEnvStr("INTROSPECT_BASIC_PASS"); ok {
		c.Auth.IntrospectBasicPass = v
	}
}

// Validate chequea valores críticos de configuración.
func (c *Config) Validate() error {
	if c.Storage.Driver != "postgres" && c.Storage.Driver != "memory" {
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn is required for postgres driver")
	}
	if c.Cache.Kind != "memory" && c.Cache.Kind != "redis" {
		return fmt.Errorf("config: unknown cache kind %q", c.Cache.Kind)
	}
	if c.Cache.Kind == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("config: cache.redis.addr is required for redis cache")
	}
	for _, d := range []struct{ name, val string }{
		{"jwt.access_ttl", c.JWT.AccessTTL},
		{"jwt.refresh_ttl", c.JWT.RefreshTTL},
		{"code.ttl", c.Code.TTL},
		{"rate.window", c.Rate.Window},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("config: invalid duration %s=%q", d.name, d.val)
		}
	}
	return nil
}

// ---- Duration accessors (config guarda strings, ya validados) ----

func (c *Config) AccessTTL() time.Duration  { return mustDur(c.JWT.AccessTTL) }
func (c *Config) RefreshTTL() time.Duration { return mustDur(c.JWT.RefreshTTL) }
func (c *Config) CodeTTL() time.Duration    { return mustDur(c.Code.TTL) }
func (c *Config) RateWindow() time.Duration { return mustDur(c.Rate.Window) }

func mustDur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
