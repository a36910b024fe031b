package server

import (
	"net/http"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	token, user, err := s.deps.Admin.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, loginResponse{Token: token, User: user})
}
