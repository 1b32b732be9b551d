package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const configFileVar = "FOODSCORE_CONFIG"

type Config interface {
	EnvConfig
	BackendConfig
	StorageConfig
	SessionConfig
	UIConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type BackendConfig interface {
	GetBackendURL() string
	GetRequestTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Backend
	Storage
	Session
	UI
}

// New builds the configuration from the process environment, a .env file in the
// working directory and the YAML file named by FOODSCORE_CONFIG, in that order of precedence.
func New() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "[config.New] godotenv.Load")
	}

	values := map[string]string{}
	if path := os.Getenv(configFileVar); path != "" {
		fileValues, err := LoadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "[config.New] LoadFile")
		}
		values = fileValues
	}
	return FromValues(values), nil
}

// FromValues builds a Config whose fallback values (below the environment) come from values.
func FromValues(values map[string]string) Config {
	src := source{file: values}
	return mainConfig{
		EnvVars: EnvVars{src: src},
		Backend: Backend{src: src},
		Storage: Storage{src: src},
		Session: Session{src: src},
		UI:      UI{src: src},
	}
}

// LoadFile reads a flat YAML document of KEY: value pairs. Keys are matched case-insensitively
// against the environment variable names.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s source) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s source) duration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s.get(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

func (s source) boolean(key string, defaultValue bool) bool {
	switch strings.ToLower(s.get(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
