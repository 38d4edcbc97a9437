package httpapi

import (
	"time"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/identity"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const principalKey = "principal"

func principalFrom(c echo.Context) (models.Principal, bool) {
	p, ok := c.Get(principalKey).(models.Principal)
	return p, ok
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := s.auth.Resolve(c.Request().Context(), c.Request().Header.Get(identity.HeaderUserID))
		if err != nil {
			return err
		}
		c.Set(principalKey, p)
		return next(c)
	}
}

func requireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := principalFrom(c)
			if !ok {
				return apperr.ErrUnauthenticated
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return apperr.ErrForbidden.WithMessage("role %s may not use this endpoint", p.Role)
		}
	}
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			res := c.Response()
			level := zapcore.InfoLevel
			if res.Status >= 500 {
				level = zapcore.ErrorLevel
			}

			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			if p, ok := principalFrom(c); ok {
				fields = append(fields, zap.Int64("user_id", p.UserID), zap.String("role", string(p.Role)))
			}
			logger.Log(level, "request", fields...)
			return nil
		}
	}
}
