package devserver

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/taxbook/taxbook-go/api"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !readJSON(w, r, &req) {
		return
	}

	acc, ok := s.store.accountByEmail(req.Email)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Пользователь с таким email не найден")
		return
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(req.Password)); err != nil {
		writeDetail(w, http.StatusUnauthorized, "Неверный пароль")
		return
	}

	access, refresh, _, err := s.tokens.mintPair(subjectOf(acc), acc.Email)
	if err != nil {
		s.log.Error().Err(err).Msg("minting token pair")
		writeDetail(w, http.StatusInternalServerError, "Не удалось выдать токены")
		return
	}

	writeJSON(w, http.StatusOK, api.TokenPair{Access: access, Refresh: refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	claims, err := s.tokens.verify(req.Refresh, tokenTypeRefresh)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Токен недействителен или просрочен")
		return
	}
	if s.store.isRevoked(claims.ID) {
		writeDetail(w, http.StatusUnauthorized, "Токен отозван")
		return
	}

	acc, ok := s.store.accountBySubject(claims.Subject)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Пользователь не найден")
		return
	}

	if s.rotateRefresh {
		access, refresh, _, err := s.tokens.mintPair(subjectOf(acc), acc.Email)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "Не удалось выдать токены")
			return
		}
		s.store.revoke(claims.ID)
		writeJSON(w, http.StatusOK, api.TokenPair{Access: access, Refresh: refresh})
		return
	}

	access, _, err := s.tokens.mint(tokenTypeAccess, claims.Subject, acc.Email, s.tokens.accessTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Не удалось выдать токены")
		return
	}
	writeJSON(w, http.StatusOK, api.TokenPair{Access: access})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !readJSON(w, r, &req) {
		return
	}

	fields := map[string][]string{}
	if req.Email == "" {
		fields["email"] = []string{"Обязательное поле."}
	}
	if len(req.Password) < 8 {
		fields["password"] = []string{"Пароль должен содержать минимум 8 символов."}
	}
	if req.Password != req.Password2 {
		fields["password2"] = []string{"Пароли не совпадают."}
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Не удалось создать пользователя")
		return
	}

	if _, ok := s.store.createAccount(req.Email, hash, req.FirstName, req.LastName); !ok {
		writeFieldErrors(w, map[string][]string{
			"email": {"Пользователь с таким email уже существует."},
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Пользователь создан"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, accountFrom(r).profile())
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, accountFrom(r).profile())
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update api.ProfileUpdate
	if !readJSON(w, r, &update) {
		return
	}

	acc := accountFrom(r)
	s.store.lock.Lock()
	if update.FirstName != nil {
		acc.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		acc.LastName = *update.LastName
	}
	if update.Email != nil {
		delete(s.store.emails, acc.Email)
		acc.Email = *update.Email
		s.store.emails[acc.Email] = acc.ID
	}
	s.store.lock.Unlock()

	writeJSON(w, http.StatusOK, acc.profile())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	claims, err := s.tokens.verify(req.Refresh, tokenTypeRefresh)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Токен недействителен или просрочен")
		return
	}

	s.store.revoke(claims.ID)
	w.WriteHeader(http.StatusNoContent)
}
