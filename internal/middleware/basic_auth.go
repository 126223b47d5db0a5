// internal/middleware/basic_auth.go
package middleware

import (
	"log/slog"
	"net/http"

	"hr-evaluator.kz/internal/auth"
)

// RequireBasicAuth закрывает приложение общей учетной записью HR (HTTP Basic, пароль в bcrypt).
// Пустой passwordHash отключает проверку (только для разработки, config это проверяет).
// exemptPaths открыты без авторизации (healthz, metrics).
func RequireBasicAuth(username, passwordHash string, exemptPaths ...string) func(http.Handler) http.Handler {
	exempt := make(map[string]bool, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = true
	}
	return func(next http.Handler) http.Handler {
		if passwordHash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			user, pass, ok := r.BasicAuth()
			if !ok || !auth.CheckCredentials(user, pass, username, passwordHash) {
				if ok {
					slog.Warn("Неверные учетные данные", "user", user, "ip", ClientIP(r), "request_id", GetRequestID(r.Context()))
				}
				w.Header().Set("WWW-Authenticate", `Basic realm="HR Performance", charset="UTF-8"`)
				http.Error(w, "Требуется авторизация.", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
