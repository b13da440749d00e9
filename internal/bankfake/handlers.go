package bankfake

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/yndnr/bankline-go/pkg/token"
)

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverPanic, s.count, s.hold, s.inject)

	r.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions", s.handleDeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/users/me", s.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/users", s.handleRegister).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[req.Username]
	if !ok || !token.CheckPassword(req.Password, u.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	tok, err := s.nextToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	s.sessions[token.Hash(tok)] = u.ID

	writeJSON(w, http.StatusCreated, map[string]string{"token": tok})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	tok, ok := bearer(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash := token.Hash(tok)
	if _, ok := s.sessions[hash]; !ok {
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}
	delete(s.sessions, hash)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": profileOf(u)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u := User{Extra: map[string]any{}}
	for k, v := range fields {
		str, _ := v.(string)
		switch k {
		case "username":
			u.Username = strings.TrimSpace(str)
		case "password":
			u.Password = str
		case "fullName":
			u.FullName = str
		case "email":
			u.Email = str
		case "id":
		default:
			u.Extra[k] = v
		}
	}
	if u.Username == "" || u.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.Username]; exists {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}
	stored, err := s.addUserLocked(u)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid password")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"data": profileOf(stored)})
}

func (s *Server) authenticate(r *http.Request) (*User, bool) {
	tok, ok := bearer(r)
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.sessions[token.Hash(tok)]
	if !ok {
		return nil, false
	}
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

func profileOf(u *User) map[string]any {
	p := make(map[string]any, len(u.Extra)+4)
	for k, v := range u.Extra {
		p[k] = v
	}
	p["id"] = u.ID
	p["username"] = u.Username
	p["fullName"] = u.FullName
	p["email"] = u.Email
	return p
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
