package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar      = "PORT"
	appNameVar      = "APP_NAME"
	tokenSecretVar  = "JWT_SECRET"
	redisAddrVar    = "REDIS_ADDR"
	redisPassVar    = "REDIS_PASSWORD"
	tokenStoreVar   = "TOKEN_STORE"
	defaultPort     = "5000"
	defaultAppName  = "CRM Auth"
	devTokenSecret  = "dev-only-secret-change-me"
	defaultRedis    = "localhost:6379"
	defaultTknStore = "memory"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetTokenSecret() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetTokenStore() string
}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, defaultPort)
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, defaultAppName)
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetTokenSecret returns the process-wide access token signing secret.
// The dev fallback keeps local bootstrapping simple; production deployments
// must set JWT_SECRET.
func (EnvVars) GetTokenSecret() string {
	return GetEnv(tokenSecretVar, devTokenSecret)
}

func (EnvVars) GetRedisAddr() string {
	return GetEnv(redisAddrVar, defaultRedis)
}

func (EnvVars) GetRedisPassword() string {
	return GetEnv(redisPassVar, "")
}

// GetTokenStore selects the refresh token store backend: "memory" or "redis".
func (EnvVars) GetTokenStore() string {
	return GetEnv(tokenStoreVar, defaultTknStore)
}

func GetEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}
