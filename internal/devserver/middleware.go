package devserver

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
)

type contextKey string

const contextKeyAccount contextKey = "account"

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("handler panicked")
				writeDetail(w, http.StatusInternalServerError, "Внутренняя ошибка сервера")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAuth validates the Bearer access token and injects the account
// into the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeDetail(w, http.StatusUnauthorized, "Учетные данные не были предоставлены")
			return
		}

		claims, err := s.tokens.verify(strings.TrimPrefix(header, "Bearer "), tokenTypeAccess)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Токен недействителен или просрочен")
			return
		}

		acc, ok := s.store.accountBySubject(claims.Subject)
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Пользователь не найден")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyAccount, acc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFrom(r *http.Request) *account {
	acc, _ := r.Context().Value(contextKeyAccount).(*account)
	return acc
}
