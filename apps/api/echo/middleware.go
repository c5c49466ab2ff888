package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// roleMiddleware only lets authenticated users holding one of roles through.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// adminMiddleware only lets admins through; when levels are given, the
// admin level must also match one of them.
func adminMiddleware(levels ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && hasAnyAdminLevel(claims, levels) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func hasAnyAdminLevel(claims Claims, levels []string) bool {
	if len(levels) == 0 {
		return true
	}
	for _, level := range levels {
		if claims.AdminLevel == level {
			return true
		}
	}
	return false
}
