package ratelimit

import (
	"fmt"

	"github.com/labstack/echo/v4"
	edgejwt "github.com/tech-arch1tect/edgeguard/middleware/jwt"
)

// KeyResolver derives the bucket key of a request. A route uses exactly one resolver.
type KeyResolver func(c echo.Context) string

const (
	ResolverUser = "user"
	ResolverAuth = "auth"
	ResolverIP   = "ip"
)

func UserKeyResolver(c echo.Context) string {
	if userID := c.Request().Header.Get(edgejwt.HeaderUserID); userID != "" {
		return "user:" + userID
	}
	return anonymous(c)
}

func AuthKeyResolver(c echo.Context) string {
	if principal, ok := edgejwt.GetPrincipal(c); ok && principal.Username != "" {
		return "auth:" + principal.Username
	}
	return anonymous(c)
}

func IPKeyResolver(c echo.Context) string {
	return "ip:" + clientIP(c)
}

func ResolverByName(name string) (KeyResolver, error) {
	switch name {
	case ResolverUser:
		return UserKeyResolver, nil
	case ResolverAuth:
		return AuthKeyResolver, nil
	case ResolverIP, "":
		return IPKeyResolver, nil
	default:
		return nil, fmt.Errorf("unknown key resolver %q", name)
	}
}

func anonymous(c echo.Context) string {
	return "anonymous:" + clientIP(c)
}

func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}
