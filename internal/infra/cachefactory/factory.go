package cachefactory

import (
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/pulsegram/authd/internal/cache"
	cmem "github.com/pulsegram/authd/internal/cache/memory"
	credis "github.com/pulsegram/authd/internal/cache/redis"
)

type Config struct {
	Kind  string
	Redis struct {
		Addr   string
		DB     int
		Prefix string
	}
	Memory struct{ DefaultTTL string }

	// RedisClient, si no es nil, se reutiliza en lugar de abrir otro pool.
	RedisClient *rdb.Client
}

func Open(cfg Config) cache.Cache {
	switch strings.ToLower(cfg.Kind) {
	case "redis":
		if cfg.RedisClient != nil {
			return credis.NewWithClient(cfg.RedisClient, cfg.Redis.Prefix)
		}
		return credis.New(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Prefix)
	default:
		d, _ := time.ParseDuration(cfg.Memory.DefaultTTL)
		if d == 0 {
			d = 2 * time.Minute
		}
		return cmem.New(d)
	}
}
