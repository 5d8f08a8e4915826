package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"hoodview/internal/auth"
	"hoodview/internal/domain"
	"hoodview/internal/portfolio"
	"hoodview/internal/util"
)

// Server serves the hoodview HTTP API.
type Server struct {
	login     *auth.Service
	portfolio *portfolio.Service
	log       *slog.Logger
}

// NewServer creates a new API server over the auth and portfolio services.
func NewServer(login *auth.Service, pf *portfolio.Service, log *slog.Logger) *Server {
	return &Server{login: login, portfolio: pf, log: log}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/login/reset-verification", s.handleResetVerification)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /api/positions", s.handlePositions)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /api/crypto", s.handleCrypto)
	mux.HandleFunc("GET /api/quote/{symbol}", s.handleQuote)
	mux.HandleFunc("GET /api/trades/today", s.handleTrades)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userID identifies the caller. Single-operator deployments omit the header
// and share the "default" identity.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "default"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeServiceError maps service errors onto HTTP statuses. A missing
// session is the caller's problem, everything else is a gateway failure.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrNotConnected) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.login.Status(userID(r)))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	res := s.login.Login(r.Context(), userID(r), domain.Credentials{
		Email:       req.Email,
		Password:    req.Password,
		MFACode:     req.MFACode,
		ChallengeID: req.ChallengeID,
	})
	writeJSON(w, convertLoginResult(res))
}

func (s *Server) handleResetVerification(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	res := s.login.ResetVerification(r.Context(), userID(r), domain.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	writeJSON(w, convertLoginResult(res))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.login.Logout(r.Context(), userID(r)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	snap, err := s.portfolio.Snapshot(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.portfolio.Positions(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, positions)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.portfolio.OptionPositions(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if positions == nil {
		positions = []domain.OptionPosition{}
	}
	writeJSON(w, positions)
}

func (s *Server) handleCrypto(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.portfolio.CryptoHoldings(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if holdings == nil {
		holdings = []domain.CryptoHolding{}
	}
	writeJSON(w, holdings)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	q, err := s.portfolio.Quote(r.Context(), symbol, userID(r))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, q)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.portfolio.TodaysOptionTrades(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if trades == nil {
		trades = []domain.OptionTrade{}
	}
	writeJSON(w, TradesResponse{
		Date:   util.MarketDate(s.portfolio.Now()),
		Trades: trades,
	})
}
