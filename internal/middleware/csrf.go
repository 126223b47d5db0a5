// internal/middleware/csrf.go
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/justinas/nosurf"
)

// NoSurfMiddleware обеспечивает CSRF-защиту форм.
// isProduction: true для production окружения (Secure cookie).
// exemptPaths - пути без проверки токена (служебные эндпоинты).
func NoSurfMiddleware(next http.Handler, isProduction bool, exemptPaths ...string) http.Handler {
	csrfHandler := nosurf.New(next)

	csrfHandler.SetBaseCookie(http.Cookie{
		HttpOnly: true,
		Path:     "/",
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	csrfHandler.ExemptPaths(exemptPaths...)

	csrfHandler.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Warn("Неудачная проверка CSRF токена",
			"path", r.URL.Path,
			"method", r.Method,
			"reason", nosurf.Reason(r),
			"request_id", GetRequestID(r.Context()),
		)
		http.Error(w, "Ошибка безопасности: Неверный или отсутствующий CSRF токен. Обновите страницу и попробуйте снова.", http.StatusForbidden)
	}))

	return csrfHandler
}
