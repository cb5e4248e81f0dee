package config

import "time"

type Config interface {
	EnvConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	// GetBaseURL is the API root including the /api prefix.
	GetBaseURL() string
	// GetCredentialsFile is where the token pair is persisted.
	GetCredentialsFile() string
	GetRequestTimeout() time.Duration
	GetPort() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
