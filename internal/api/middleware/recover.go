package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/cloo-solutions/videochat/internal/api"
)

// Recover turns a handler panic into a 500 response. It sits outside
// SentryMiddleware, which reports the panic and re-raises it.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Printf("panic: %s %s (request %s): %v\n%s", r.Method, r.URL.Path, GetRequestID(r.Context()), rec, debug.Stack())
			api.Error(w, http.StatusInternalServerError, "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}
