package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	StoreDriverFile   = "file"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

type StorageConfig interface {
	GetStoreDriver() string
	GetStorePath() string
	GetStorePassphrase() string
	GetRedisURL() string
	GetRedisKeyPrefix() string
	GetRedisTTL() time.Duration
}

type Storage struct {
	src source
}

var _ StorageConfig = Storage{}

func (s Storage) GetStoreDriver() string {
	return strings.ToLower(s.src.get("STORE_DRIVER", StoreDriverFile))
}

// GetStorePath is where the file driver keeps the persisted session
func (s Storage) GetStorePath() string {
	if path := s.src.get("STORE_PATH", ""); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "foodscore", "session.json")
}

// GetStorePassphrase enables at-rest encryption of the file driver when set
func (s Storage) GetStorePassphrase() string {
	return s.src.get("STORE_PASSPHRASE", "")
}

func (s Storage) GetRedisURL() string {
	return s.src.get("REDIS_URL", "redis://localhost:6379/0")
}

func (s Storage) GetRedisKeyPrefix() string {
	return s.src.get("REDIS_KEY_PREFIX", "foodscore:")
}

// GetRedisTTL expires persisted session keys in Redis. Zero keeps them until logout.
func (s Storage) GetRedisTTL() time.Duration {
	ttl := s.src.duration("REDIS_TTL", 0)
	if ttl < 0 {
		return 0
	}
	return ttl
}
