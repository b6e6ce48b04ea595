package votingpass

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const ClaimsContextKey = "voting_pass_claims"

func RequirePass(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "voting pass required")
			}

			claims, err := svc.Validate(strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, ErrExpiredPass) {
					return echo.NewHTTPError(http.StatusUnauthorized, "voting pass has expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid voting pass")
			}

			c.Set(ClaimsContextKey, claims)
			return next(c)
		}
	}
}

func ClaimsFrom(c echo.Context) *Claims {
	claims, _ := c.Get(ClaimsContextKey).(*Claims)
	return claims
}
