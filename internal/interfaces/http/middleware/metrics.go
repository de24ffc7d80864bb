package middleware

import (
	"net/http"
	"time"
)

// RequestObserver получает данные о каждом запросе
type RequestObserver interface {
	ObserveHTTP(method, route string, status int, duration time.Duration)
}

// Metrics передает метод, маршрут, статус и длительность запроса в observer.
// route - шаблон маршрута, чтобы не раздувать кардинальность меток.
func Metrics(observer RequestObserver, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			observer.ObserveHTTP(r.Method, route, rec.statusCode, time.Since(start))
		})
	}
}
