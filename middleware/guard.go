package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/api"
)

// Options narrows what a guard accepts.
type Options struct {
	// TargetType restricts sessions to accounts attached to this target type.
	TargetType string
}

// Guard authenticates requests carrying a session of the given origin.
func Guard(engine *authcore.Engine, origin authcore.Origin, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				api.WriteProblem(w, r, authcore.ErrSessionNotFound)
				return
			}

			token, ok := sessionToken(r, origin, engine.Config().Session.CookieName)
			if !ok {
				api.WriteProblem(w, r, authcore.ErrSessionNotFound)
				return
			}

			ctx := WithRequestMetadata(r)
			id, err := engine.FindSession(ctx, token, origin, opts.TargetType)
			if err != nil {
				api.WriteProblem(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(authcore.WithIdentity(ctx, id)))
		})
	}
}

// RequireAPI guards API routes with bearer tokens.
func RequireAPI(engine *authcore.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authcore.OriginAPI, Options{})
}

// RequireBrowser guards browser routes with the session cookie.
func RequireBrowser(engine *authcore.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authcore.OriginBrowser, Options{})
}

// WithRequestMetadata returns r's context carrying its client address and
// user agent, which sessions started under it record.
func WithRequestMetadata(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = authcore.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = authcore.WithUserAgent(ctx, ua)
	}
	return ctx
}

func sessionToken(r *http.Request, origin authcore.Origin, cookieName string) (string, bool) {
	if origin == authcore.OriginAPI {
		return bearerToken(r.Header.Get("Authorization"))
	}

	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
