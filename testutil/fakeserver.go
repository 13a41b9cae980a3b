// Package testutil provides an in-memory implementation of the file manager
// server API for tests. It depends only on stdlib so any package's tests can
// start one with NewFakeServer.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// SessionCookie is the cookie name the server uses for session tokens.
const SessionCookie = "session_token"

// FakeEntry is the JSON shape of a listing entry.
type FakeEntry struct {
	Name     string `json:"name"`
	IsDir    bool   `json:"is_dir"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
	FullPath string `json:"full_path"`
}

type fakeNode struct {
	isDir    bool
	content  []byte
	modified time.Time
}

type fakeUser struct {
	password string
	email    string
	files    map[string]*fakeNode // keyed by slash path, "" is root
}

// FakeServer emulates the remote file API: sessions via cookie, per-user
// trees, and injectable failures. All methods are safe for concurrent use.
type FakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*fakeUser
	sessions map[string]string // token -> username
	failNext map[string]int    // endpoint -> status to return once
	requests []string
	now      func() time.Time
}

// NewFakeServer starts a fake server. Callers must Close it, usually via
// t.Cleanup(srv.Close).
func NewFakeServer() *FakeServer {
	fs := &FakeServer{
		users:    make(map[string]*fakeUser),
		sessions: make(map[string]string),
		failNext: make(map[string]int),
		now:      func() time.Time { return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC) },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", fs.handleLogin)
	mux.HandleFunc("POST /api/register", fs.handleRegister)
	mux.HandleFunc("POST /api/forgot-password", fs.handleMessage("Reset email sent"))
	mux.HandleFunc("POST /api/reset-password", fs.handleMessage("Password reset"))
	mux.HandleFunc("POST /api/logout", fs.requireAuth(fs.handleLogout))
	mux.HandleFunc("GET /api/user/info", fs.requireAuth(fs.handleUserInfo))
	mux.HandleFunc("POST /api/files", fs.requireAuth(fs.handleFiles))
	mux.HandleFunc("POST /api/delete", fs.requireAuth(fs.handleDelete))
	mux.HandleFunc("POST /api/create-folder", fs.requireAuth(fs.handleCreateFolder))
	mux.HandleFunc("GET /api/download", fs.requireAuth(fs.handleDownload))
	mux.HandleFunc("POST /api/upload", fs.requireAuth(fs.handleUpload))

	fs.Server = httptest.NewServer(fs.intercept(mux))

	return fs
}

// AddUser registers an account with an empty root directory.
func (fs *FakeServer) AddUser(username, password string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.users[username] = &fakeUser{
		password: password,
		email:    username + "@example.com",
		files:    map[string]*fakeNode{"": {isDir: true}},
	}
}

// Login creates a session for username directly and returns its token.
func (fs *FakeServer) Login(username string) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.newSessionLocked(username)
}

// ExpireSessions invalidates every session, so the next request gets 401.
func (fs *FakeServer) ExpireSessions() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.sessions = make(map[string]string)
}

// AddDir creates a directory (and its parents) in username's tree.
func (fs *FakeServer) AddDir(username, p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.mkdirAllLocked(fs.users[username], p)
}

// AddFile creates a file with content, creating parent directories.
func (fs *FakeServer) AddFile(username, p string, content []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	u := fs.users[username]
	fs.mkdirAllLocked(u, path.Dir(p))
	u.files[cleanPath(p)] = &fakeNode{content: content, modified: fs.now()}
}

// File returns the content of a file and whether it exists as a file.
func (fs *FakeServer) File(username, p string) ([]byte, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.users[username].files[cleanPath(p)]
	if !ok || n.isDir {
		return nil, false
	}

	return n.content, true
}

// Exists reports whether p exists in username's tree.
func (fs *FakeServer) Exists(username, p string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, ok := fs.users[username].files[cleanPath(p)]

	return ok
}

// FailNext makes the next request to endpoint (e.g. "/api/files") return status.
func (fs *FakeServer) FailNext(endpoint string, status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.failNext[endpoint] = status
}

// Requests returns the endpoint paths received so far, in order.
func (fs *FakeServer) Requests() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return append([]string(nil), fs.requests...)
}

// CountRequests returns how many requests hit endpoint.
func (fs *FakeServer) CountRequests(endpoint string) int {
	n := 0

	for _, r := range fs.Requests() {
		if r == endpoint {
			n++
		}
	}

	return n
}

func (fs *FakeServer) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.requests = append(fs.requests, r.URL.Path)
		status, fail := fs.failNext[r.URL.Path]
		delete(fs.failNext, r.URL.Path)
		fs.mu.Unlock()

		if fail {
			writeError(w, status, "injected failure")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, username string)

func (fs *FakeServer) requireAuth(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Session-Token")
		if c, err := r.Cookie(SessionCookie); err == nil && token == "" {
			token = c.Value
		}

		fs.mu.Lock()
		username, ok := fs.sessions[token]
		fs.mu.Unlock()

		if token == "" || !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		h(w, r, username)
	}
}

func (fs *FakeServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if !decode(w, r, &req) {
		return
	}

	fs.mu.Lock()
	u, ok := fs.users[req.Username]
	if !ok || u.password != req.Password {
		fs.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid username or password")

		return
	}

	token := fs.newSessionLocked(req.Username)
	fs.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true, MaxAge: 24 * 3600})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged in", "username": req.Username})
}

func (fs *FakeServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}

	if !decode(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "username, password and email are required")
		return
	}

	fs.mu.Lock()
	_, exists := fs.users[req.Username]
	fs.mu.Unlock()

	if exists {
		writeError(w, http.StatusBadRequest, "username already exists")
		return
	}

	fs.AddUser(req.Username, req.Password)
	writeJSON(w, http.StatusOK, map[string]string{"message": "registered"})
}

func (fs *FakeServer) handleMessage(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})
	}
}

func (fs *FakeServer) handleLogout(w http.ResponseWriter, r *http.Request, _ string) {
	c, _ := r.Cookie(SessionCookie)

	fs.mu.Lock()
	if c != nil {
		delete(fs.sessions, c.Value)
	}
	fs.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (fs *FakeServer) handleUserInfo(w http.ResponseWriter, _ *http.Request, username string) {
	fs.mu.Lock()
	u := fs.users[username]
	fs.mu.Unlock()

	// Like the real server, the identity carries user_dir but no username.
	writeJSON(w, http.StatusOK, map[string]any{
		"email":       u.email,
		"user_dir":    username,
		"is_verified": false,
	})
}

func (fs *FakeServer) handleFiles(w http.ResponseWriter, r *http.Request, username string) {
	var req struct {
		Path string `json:"path"`
	}

	if !decode(w, r, &req) {
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := safePath(req.Path)
	u := fs.users[username]

	entries := []FakeEntry{}

	if n, ok := u.files[dir]; !ok || !n.isDir {
		writeJSON(w, http.StatusOK, entries)
		return
	}

	for p, n := range u.files {
		if p == "" || parentOf(p) != dir {
			continue
		}

		e := FakeEntry{
			Name:     path.Base(p),
			IsDir:    n.isDir,
			Modified: n.modified.Format("2006-01-02 15:04:05"),
			FullPath: path.Join("/srv/files", username, p),
		}

		if !n.isDir {
			e.Size = int64(len(n.content))
		}

		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}

		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	writeJSON(w, http.StatusOK, entries)
}

func (fs *FakeServer) handleDelete(w http.ResponseWriter, r *http.Request, username string) {
	var req struct {
		Path  string `json:"path"`
		Name  string `json:"name"`
		IsDir bool   `json:"is_dir"`
	}

	if !decode(w, r, &req) {
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	u := fs.users[username]
	target := joinPath(safePath(req.Path), req.Name)

	if _, ok := u.files[target]; !ok {
		writeError(w, http.StatusBadRequest, "no such file or folder")
		return
	}

	for p := range u.files {
		if p == target || strings.HasPrefix(p, target+"/") {
			delete(u.files, p)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (fs *FakeServer) handleCreateFolder(w http.ResponseWriter, r *http.Request, username string) {
	var req struct {
		Path string `json:"path"`
		Name string `json:"name"`
	}

	if !decode(w, r, &req) {
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "folder name is required")
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	u := fs.users[username]
	target := joinPath(safePath(req.Path), req.Name)

	if _, ok := u.files[target]; ok {
		writeError(w, http.StatusBadRequest, "folder already exists")
		return
	}

	fs.mkdirAllLocked(u, target)
	writeJSON(w, http.StatusOK, map[string]string{"message": "created"})
}

func (fs *FakeServer) handleDownload(w http.ResponseWriter, r *http.Request, username string) {
	dir := safePath(r.URL.Query().Get("path"))
	name := r.URL.Query().Get("filename")

	if name == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	fs.mu.Lock()
	n, ok := fs.users[username].files[joinPath(dir, name)]
	fs.mu.Unlock()

	if !ok || n.isDir {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	_, _ = w.Write(n.content)
}

func (fs *FakeServer) handleUpload(w http.ResponseWriter, r *http.Request, username string) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file selected")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dir := safePath(r.FormValue("path"))

	fs.mu.Lock()
	defer fs.mu.Unlock()

	u := fs.users[username]
	fs.mkdirAllLocked(u, dir)
	u.files[joinPath(dir, header.Filename)] = &fakeNode{content: content, modified: fs.now()}

	writeJSON(w, http.StatusOK, map[string]string{"message": "uploaded"})
}

func (fs *FakeServer) newSessionLocked(username string) string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	token := hex.EncodeToString(buf)
	fs.sessions[token] = username

	return token
}

func (fs *FakeServer) mkdirAllLocked(u *fakeUser, p string) {
	p = cleanPath(p)
	for p != "" {
		if _, ok := u.files[p]; !ok {
			u.files[p] = &fakeNode{isDir: true, modified: fs.now()}
		}

		p = parentOf(p)
	}
}

// safePath mirrors the server: traversal attempts resolve to the root.
func safePath(p string) string {
	if strings.Contains(p, "..") || strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return ""
	}

	return cleanPath(strings.ReplaceAll(p, "\\", "/"))
}

func cleanPath(p string) string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}

	return p
}

func parentOf(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}

	return p[:idx]
}

func joinPath(dir, name string) string {
	return cleanPath(dir + "/" + name)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
