package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/streamloop/tubebackend/auth"
	"github.com/streamloop/tubebackend/config"
	"github.com/streamloop/tubebackend/dto"
	"github.com/streamloop/tubebackend/ratelimit"
)

const (
	loginAttemptLimit  = 5
	loginAttemptWindow = 15 * time.Minute
	loginBlockDuration = 30 * time.Minute
)

func Login(sessions *auth.SessionController, cfg *config.Config, limiter ratelimit.Limiter, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		ipKey := "ip:" + c.ClientIP()

		if blocked, err := limiter.IsBlocked(ctx, ipKey); err != nil {
			log.WithError(err).Error("rate limit check failed")
		} else if blocked {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts, try again later"})
			return
		}

		pair, user, err := sessions.Login(ctx, body.Identifier, body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				recordFailedLogin(c, limiter, ipKey, log)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}

		if err := limiter.Reset(ctx, ipKey); err != nil {
			log.WithError(err).Warn("rate limit reset failed")
		}

		setAuthCookies(c, cfg, sessions.Issuer(), pair)
		c.JSON(http.StatusOK, gin.H{
			"user":         user,
			"accessToken":  pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		})
	}
}

func Refresh(sessions *auth.SessionController, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Cookie first, body as fallback for non-browser clients.
		presented, _ := c.Cookie("refreshToken")
		if presented == "" {
			var body dto.RefreshDTO
			_ = c.ShouldBindJSON(&body)
			presented = body.RefreshToken
		}

		pair, err := sessions.Refresh(c.Request.Context(), presented)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnauthorized):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
			case errors.Is(err, auth.ErrTokenInvalid):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			}
			return
		}

		setAuthCookies(c, cfg, sessions.Issuer(), pair)
		c.JSON(http.StatusOK, gin.H{
			"accessToken":  pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		})
	}
}

func Logout(sessions *auth.SessionController, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Cookies go away no matter what the store says.
		clearAuthCookies(c, cfg)

		userID := c.GetString("userID")
		if err := sessions.Logout(c.Request.Context(), userID); err != nil {
			if !errors.Is(err, auth.ErrNotFound) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func ChangePassword(sessions *auth.SessionController) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ChangePasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userID := c.GetString("userID")
		err := sessions.ChangePassword(c.Request.Context(), userID, body.OldPassword, body.NewPassword)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect old password"})
			case errors.Is(err, auth.ErrNotFound):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func recordFailedLogin(c *gin.Context, limiter ratelimit.Limiter, ipKey string, log *logrus.Logger) {
	ctx := c.Request.Context()
	if err := limiter.Increment(ctx, ipKey, loginAttemptWindow); err != nil {
		log.WithError(err).Warn("rate limit increment failed")
		return
	}
	allowed, err := limiter.Allow(ctx, ipKey, loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		log.WithError(err).Warn("rate limit check failed")
		return
	}
	if !allowed {
		if err := limiter.Block(ctx, ipKey, loginBlockDuration); err != nil {
			log.WithError(err).Warn("rate limit block failed")
		}
	}
}

// Both tokens travel in HTTP-only secure cookies; client scripts never see
// them.
func setAuthCookies(c *gin.Context, cfg *config.Config, issuer *auth.TokenIssuer, pair *auth.TokenPair) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     "accessToken",
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   int(issuer.AccessTTL().Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode, // for cross-site
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     "refreshToken",
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   int(issuer.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearAuthCookies(c *gin.Context, cfg *config.Config) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   cfg.CookieDomain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: http.SameSiteNoneMode,
		})
	}
}
