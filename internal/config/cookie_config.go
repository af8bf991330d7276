package config

type CookieConfig interface {
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetRefreshCookiePath() string
	GetSecureCookies() bool
}

type Cookies struct{}

var _ CookieConfig = Cookies{}

func (Cookies) GetAccessCookieName() string {
	return "token"
}

func (Cookies) GetRefreshCookieName() string {
	return "refreshToken"
}

// GetRefreshCookiePath restricts the refresh cookie so it is never sent on
// ordinary API calls.
func (Cookies) GetRefreshCookiePath() string {
	return "/auth/refresh"
}

func (c Cookies) GetSecureCookies() bool {
	return EnvVars{}.GetEnv() == "production"
}
