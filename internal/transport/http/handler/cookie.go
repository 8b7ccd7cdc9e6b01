package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

func setSessionCookie(c *gin.Context, cfg CookieConfig, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.Name, token, maxAge, "/", "", cfg.Secure, true)
}

// clearSessionCookie overwrites the cookie with an empty, already expired value.
func clearSessionCookie(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.Name, "", -1, "/", "", cfg.Secure, true)
}
