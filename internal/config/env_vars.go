package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelVar    = "LOG_LEVEL"
	backendURLVar  = "BACKEND_URL"
	reqTimeoutVar  = "REQUEST_TIMEOUT"
	defaultBackend = "http://localhost:8000"
)

type EnvVars struct {
	src source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.src.get(portEnvVar, "3000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.src.get(appNameVar, "FoodScore")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.src.get(envVar, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	return e.src.get(logLevelVar, "info")
}

type Backend struct {
	src source
}

var _ BackendConfig = Backend{}

// GetBackendURL returns the base URL of the analysis backend without a trailing slash
func (b Backend) GetBackendURL() string {
	return strings.TrimRight(b.src.get(backendURLVar, defaultBackend), "/")
}

// GetRequestTimeout bounds a single backend call. Image analysis runs OCR server side so
// the default is generous.
func (b Backend) GetRequestTimeout() time.Duration {
	return b.src.duration(reqTimeoutVar, 60*time.Second)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
