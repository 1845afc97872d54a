// Package pg implementa los repositorios sobre postgres vía pgxpool.
package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsegram/authd/internal/observability/logger"
)

// Store agrupa los repositorios postgres sobre un pool compartido.
type Store struct {
	pool *pgxpool.Pool
}

// PoolConfig es el tuning opcional del pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

func New(ctx context.Context, dsn string, cfg PoolConfig) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	// Mapear MaxIdleConns → MinConns (pgxpool)
	if cfg.MaxIdleConns > 0 {
		pcfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 8
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	// Arranque no bloqueante: si el ping falla, la app igual levanta y los
	// requests fallan individualmente hasta que la DB vuelva.
	log := logger.From(ctx).With(logger.Layer("store"), logger.Component("pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		log.Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}

	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (métricas/migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Apps retorna el repositorio de applications.
func (s *Store) Apps() *ApplicationStore { return &ApplicationStore{pool: s.pool} }

// Tokens retorna el repositorio de delegated tokens.
func (s *Store) Tokens() *TokenStore { return &TokenStore{pool: s.pool} }

// Users retorna el repositorio de usuarios.
func (s *Store) Users() *UserStore { return &UserStore{pool: s.pool} }
