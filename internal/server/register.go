package server

import "net/http"

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type registerResponse struct {
	User  userJSON `json:"user"`
	Token string   `json:"token"`
}

// handleRegister creates an account and issues its API token. The raw token
// appears in this response and nowhere else — the server keeps only its
// digest, so a lost token means registering again.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, token, err := s.deps.Auth.Register(r.Context(), req.Email, req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		User:  toUserJSON(*user),
		Token: token,
	})
}
