package config

type CorsConfig interface {
	GetAllowedOrigin() string
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type Cors struct{}

var _ CorsConfig = Cors{}

// GetAllowedOrigin returns the single allowed SPA origin. Credentialed CORS
// cannot use a wildcard, the origin must be echoed exactly.
func (Cors) GetAllowedOrigin() string {
	return GetEnv("CLIENT_ORIGIN", "http://localhost:3000")
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, PUT, PATCH, DELETE"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
