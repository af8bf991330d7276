package config

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	CookieConfig
}

type mainConfig struct {
	EnvVars
	Cors
	Tokens
	Cookies
}

func New() Config {
	return mainConfig{}
}
