// Package gatewaytest runs an in-memory OneHub admin API for tests.
package gatewaytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"
)

const sessionCookie = "session"

// Call names accepted by Server.Calls.
const (
	CallSelf   = "self"
	CallLogin  = "login"
	CallList   = "list"
	CallGet    = "get"
	CallProbe  = "probe"
	CallUpdate = "update"
)

type Server struct {
	*httptest.Server

	mu          sync.Mutex
	token       string
	username    string
	password    string
	sessionID   string
	channels    []json.RawMessage
	models      map[int][]string
	failProbe   map[int]bool
	reject      map[int]bool
	failPages   map[int]bool
	totalCount  *int
	calls       map[string]int
	updates     map[int]json.RawMessage
	probes      map[int]json.RawMessage
	listQueries []url.Values
}

// NewServer starts a server without authentication. Use SetToken or
// SetAccount to require credentials.
func NewServer() *Server {
	s := &Server{
		sessionID: "test-session",
		models:    map[int][]string{},
		failProbe: map[int]bool{},
		reject:    map[int]bool{},
		failPages: map[int]bool{},
		calls:     map[string]int{},
		updates:   map[int]json.RawMessage{},
		probes:    map[int]json.RawMessage{},
	}
	r := chi.NewRouter()
	r.Get("/api/user/self", s.self)
	r.Post("/api/user/login", s.login)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/channel/", s.list)
		r.Put("/api/channel/", s.update)
		r.Post("/api/channel/provider_models_list", s.probe)
		r.Get("/api/channel/{id}", s.get)
	})
	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Server) SetAccount(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.password = password
}

// AddChannel stores a channel object; it must carry a numeric id.
func (s *Server) AddChannel(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = append(s.channels, json.RawMessage(raw))
}

func (s *Server) SetModels(id int, models ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[id] = models
}

func (s *Server) FailProbe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failProbe[id] = true
}

func (s *Server) RejectUpdate(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject[id] = true
}

// FailPage makes the list endpoint answer success=false for page.
func (s *Server) FailPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPages[page] = true
}

// SetTotalCount overrides the total_count reported by the list endpoint.
func (s *Server) SetTotalCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCount = &n
}

func (s *Server) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// Updated returns the last update body received for channel id.
func (s *Server) Updated(id int) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.updates[id]
	return b, ok
}

// Probed returns the last provider probe body received for channel id.
func (s *Server) Probed(id int) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.probes[id]
	return b, ok
}

func (s *Server) ListQueries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.listQueries...)
}

func (s *Server) count(name string) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func reject(w http.ResponseWriter, msg string) {
	writeJSON(w, map[string]any{"success": false, "message": msg})
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" && s.username == "" {
		return true
	}
	if s.token != "" && r.Header.Get("Authorization") == "Bearer "+s.token {
		return true
	}
	c, err := r.Cookie(sessionCookie)
	return err == nil && s.username != "" && c.Value == s.sessionID
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			reject(w, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) self(w http.ResponseWriter, r *http.Request) {
	s.count(CallSelf)
	if !s.authorized(r) {
		reject(w, "access token is invalid")
		return
	}
	s.mu.Lock()
	user := s.username
	s.mu.Unlock()
	if user == "" {
		user = "root"
	}
	writeJSON(w, map[string]any{"success": true, "message": "", "data": map[string]any{"username": user}})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.count(CallLogin)
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		reject(w, "invalid request")
		return
	}
	s.mu.Lock()
	ok := s.username != "" && in.Username == s.username && in.Password == s.password
	sid := s.sessionID
	s.mu.Unlock()
	if !ok {
		reject(w, "username or password is incorrect")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sid, Path: "/"})
	writeJSON(w, map[string]any{"success": true, "message": ""})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.count(CallList)
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	typ, _ := strconv.Atoi(q.Get("type"))
	status, _ := strconv.Atoi(q.Get("status"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}

	s.mu.Lock()
	s.listQueries = append(s.listQueries, q)
	failed := s.failPages[page]
	var matched []json.RawMessage
	for _, ch := range s.channels {
		if typ != 0 && int(gjson.GetBytes(ch, "type").Int()) != typ {
			continue
		}
		if status != 0 && int(gjson.GetBytes(ch, "status").Int()) != status {
			continue
		}
		matched = append(matched, ch)
	}
	total := len(matched)
	if s.totalCount != nil {
		total = *s.totalCount
	}
	s.mu.Unlock()

	if failed {
		reject(w, "database is busy")
		return
	}
	start := (page - 1) * size
	items := []json.RawMessage{}
	if start < len(matched) {
		end := min(start+size, len(matched))
		items = matched[start:end]
	}
	writeJSON(w, map[string]any{
		"success": true,
		"message": "",
		"data": map[string]any{
			"data":        items,
			"page":        page,
			"size":        size,
			"total_count": total,
		},
	})
}

func (s *Server) find(id int) (json.RawMessage, int) {
	for i, ch := range s.channels {
		if int(gjson.GetBytes(ch, "id").Int()) == id {
			return ch, i
		}
	}
	return nil, -1
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.count(CallGet)
	id, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		reject(w, "invalid id")
		return
	}
	s.mu.Lock()
	ch, _ := s.find(id)
	s.mu.Unlock()
	if ch == nil {
		reject(w, "record not found")
		return
	}
	writeJSON(w, map[string]any{"success": true, "message": "", "data": ch})
}

func readID(r *http.Request) (json.RawMessage, int, bool) {
	b, err := io.ReadAll(r.Body)
	if err != nil || !gjson.ValidBytes(b) {
		return nil, 0, false
	}
	id := gjson.GetBytes(b, "id")
	if !id.Exists() {
		return nil, 0, false
	}
	return b, int(id.Int()), true
}

func (s *Server) probe(w http.ResponseWriter, r *http.Request) {
	s.count(CallProbe)
	body, id, ok := readID(r)
	if !ok {
		reject(w, "invalid request")
		return
	}
	s.mu.Lock()
	s.probes[id] = body
	failed := s.failProbe[id]
	models := s.models[id]
	s.mu.Unlock()
	if failed {
		reject(w, "upstream returned 401")
		return
	}
	if models == nil {
		models = []string{}
	}
	writeJSON(w, map[string]any{"success": true, "message": "", "data": models})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	s.count(CallUpdate)
	body, id, ok := readID(r)
	if !ok {
		reject(w, "invalid request")
		return
	}
	s.mu.Lock()
	s.updates[id] = body
	rejected := s.reject[id]
	if !rejected {
		if _, idx := s.find(id); idx >= 0 {
			s.channels[idx] = body
		}
	}
	s.mu.Unlock()
	if rejected {
		reject(w, "channel is locked")
		return
	}
	writeJSON(w, map[string]any{"success": true, "message": ""})
}
