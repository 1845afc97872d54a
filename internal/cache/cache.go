// Package cache provee una abstracción mínima de cache byte-oriented con
// backends memory (dev) y redis (producción).
package cache

import "time"

// Cache es la interfaz que consumen appstore y los services.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
