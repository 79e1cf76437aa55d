package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/tokenrefresh/internal/common"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+common.DefaultRefreshPath, s.handleRefresh)
	mux.HandleFunc("GET /api/items", s.requireBearer(s.handleItems))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.refreshes.Add(1)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
		return
	}

	userID, next, err := s.refreshTokens.Rotate(ctx, req.RefreshToken)
	if errors.Is(err, ErrUnknownRefreshToken) {
		s.logger.Info(ctx, "refresh rejected", "reason", err.Error())
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_grant"})
		return
	}
	if err != nil {
		s.logger.Error(ctx, "refresh failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		return
	}

	access, err := GenerateToken(userID, s.secret, s.config.AccessTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "sign access token", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		return
	}

	s.logger.Info(ctx, "tokens refreshed", "user", userID)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: next, TokenType: "Bearer"})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  userID,
		"items": []string{"alpha", "beta", "gamma"},
	})
}

func (s *Server) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing token"})
			return
		}

		userID, err := GetUserIDFromToken(token, s.secret)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
			return
		}

		next(w, r.WithContext(withUserID(r.Context(), userID)))
	}
}
