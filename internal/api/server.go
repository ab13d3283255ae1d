package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"pharmachat/internal/auth"
	"pharmachat/internal/database"
	"pharmachat/internal/textproc"
	"pharmachat/pkg/interfaces"
	"pharmachat/pkg/types"
)

// RelayStats exposes relay counters without coupling the HTTP layer to
// the relay implementation.
type RelayStats interface {
	Stats() map[string]int
}

// Server is the HTTP surface layered outside the relay: health,
// authentication and the AI chat proxy. No routing or session logic
// lives here.
type Server struct {
	issuer         *auth.Issuer
	completer      interfaces.Completer
	relay          RelayStats
	allowedOrigins map[string]bool
	router         *http.ServeMux
}

// NewServer creates the API server and sets up its routes.
func NewServer(issuer *auth.Issuer, completer interfaces.Completer, relay RelayStats, allowedOrigins []string) *Server {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = true
	}

	s := &Server{
		issuer:         issuer,
		completer:      completer,
		relay:          relay,
		allowedOrigins: origins,
		router:         http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleHealth))))
	s.router.Handle("/api/auth/login", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleLogin))))
	s.router.Handle("/api/auth/refresh", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleRefresh))))
	s.router.Handle("/api/auth/register", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleRegister))))
	s.router.Handle("/api/ai-chat", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleAIChat))))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	User         *types.Identity `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type registerResponse struct {
	User *types.Identity `json:"user"`
}

type aiChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type aiChatResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload := map[string]interface{}{
		"status":    "OK",
		"name":      "pharmachat-relay",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if s.relay != nil {
		payload["relay"] = s.relay.Stats()
	}
	s.sendJSON(w, http.StatusOK, payload)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	access, refresh, identity, err := s.issuer.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.sendError(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Printf("Login failed for %q: %v", req.Username, err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, http.StatusOK, loginResponse{Token: access, RefreshToken: refresh, User: identity})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		s.sendError(w, "Refresh token required", http.StatusUnauthorized)
		return
	}

	access, err := s.issuer.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.sendError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	s.sendJSON(w, http.StatusOK, refreshResponse{Token: access})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	identity, err := s.issuer.Register(r.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrUsernameTaken):
			s.sendError(w, "Username already taken", http.StatusConflict)
		case errors.Is(err, types.ErrInvalidUsername),
			errors.Is(err, types.ErrPasswordTooWeak),
			errors.Is(err, types.ErrEmptyName):
			s.sendError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Registration failed for %q: %v", req.Username, err)
			s.sendError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	s.sendJSON(w, http.StatusCreated, registerResponse{User: identity})
}

// handleAIChat proxies a message to the completion backend and applies
// link formatting to the reply before returning it.
func (s *Server) handleAIChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req aiChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		s.sendError(w, "Message is required", http.StatusBadRequest)
		return
	}

	reply, err := s.completer.Complete(r.Context(), req.UserID, req.Message)
	if err != nil {
		log.Printf("Completion failed: %v", err)
		s.sendError(w, "Failed to get response from AI model", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, http.StatusOK, aiChatResponse{Message: textproc.FormatLinks(reply)})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, status int) {
	s.sendJSON(w, status, map[string]string{"error": message})
}
