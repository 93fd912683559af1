package http

import (
	"net/http"

	"fintrack/internal/services"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, "register", err)
		return
	}

	session, err := s.deps.Auth.Register(r.Context(), services.RegisterRequest{
		Username: p.Get("username"),
		Password: p.Get("password"),
		Email:    p.Get("email"),
	})
	if err != nil {
		writeError(w, r, "register", err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(newSessionView(session)).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, "login", err)
		return
	}

	session, err := s.deps.Auth.Login(r.Context(), p.Get("username"), p.Get("password"))
	if err != nil {
		writeError(w, r, "login", err)
		return
	}

	NewJSONResponse().Body(newSessionView(session)).Write(w)
}
