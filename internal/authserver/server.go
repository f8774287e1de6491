// ABOUTME: Local OAuth helper endpoint for obtaining Strava tokens.
// ABOUTME: Redirects to consent, exchanges the callback code, writes a token file.
package authserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suweiran/roast/internal/strava"
)

// Server is a small localhost web app: /login starts the consent flow,
// /callback exchanges the code and persists the token payload, /profile
// dumps the current session so scripts can scrape it.
type Server struct {
	client      *strava.Client
	redirectURI string
	tokenDir    string
	now         func() time.Time

	mu      sync.Mutex
	states  map[string]bool
	session *strava.Token
}

// New builds a Server writing token files into tokenDir.
func New(client *strava.Client, redirectURI, tokenDir string) *Server {
	return &Server{
		client:      client,
		redirectURI: redirectURI,
		tokenDir:    tokenDir,
		now:         time.Now,
		states:      make(map[string]bool),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/callback", s.handleCallback)
	mux.HandleFunc("/profile", s.handleProfile)
	mux.HandleFunc("/logout", s.handleLogout)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	loggedIn := s.session != nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in": loggedIn,
		"login_url": "http://" + r.Host + "/login",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "read"
	}
	state := uuid.NewString()
	s.mu.Lock()
	s.states[state] = true
	s.mu.Unlock()
	http.Redirect(w, r, s.client.AuthorizeURL(s.redirectURI, scope, state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errMsg := query.Get("error"); errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": errMsg})
		return
	}
	code := query.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "回调缺少授权码。"})
		return
	}
	if state := query.Get("state"); state != "" {
		s.mu.Lock()
		known := s.states[state]
		delete(s.states, state)
		s.mu.Unlock()
		if !known {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "state 参数不匹配。"})
			return
		}
	}

	token, err := s.client.ExchangeCode(r.Context(), code)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": fmt.Sprintf("兑换 token 失败：%v", err)})
		return
	}
	path, err := strava.WriteNewToken(s.tokenDir, token, s.now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": fmt.Sprintf("保存 token 文件失败：%v", err)})
		return
	}

	s.mu.Lock()
	s.session = token
	s.mu.Unlock()
	w.Header().Set("X-Token-File", path)
	http.Redirect(w, r, "/profile", http.StatusFound)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	token := s.session
	s.mu.Unlock()
	if token == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"athlete":       token.Athlete,
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"expires_at":    token.ExpiresAt,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "已退出登录"})
}
