package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/localshare-go/api/middlewares"
	"github.com/moyoez/localshare-go/api/models"
	"github.com/moyoez/localshare-go/share"
	"github.com/moyoez/localshare-go/types"
)

const testCookie = "test_session"

// recorder collects broadcast notifications.
type recorder struct {
	mu    sync.Mutex
	notes []types.Notification
}

func (r *recorder) Broadcast(n *types.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, *n)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Type)
	}
	return out
}

type fixture struct {
	root     string
	config   *models.ConfigStore
	ledger   *models.Ledger
	sessions *models.SessionStore
	notes    *recorder
	admin    *AdminController
	router   *gin.Engine
}

// newFixture shares a temp folder holding docs/report.pdf and notes.txt,
// with password "secret" and the server running.
func newFixture(t *testing.T, requireApproval bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "docs", "report.pdf"), "%PDF-1.4 report")
	writeFile(t, filepath.Join(root, "notes.txt"), "hello")

	f := &fixture{
		root: root,
		config: models.NewConfigStore(types.ServerConfig{
			FolderPath:      root,
			Password:        "secret",
			IsRunning:       true,
			RequireApproval: requireApproval,
		}),
		ledger:   models.NewLedger(models.LedgerOptions{}),
		sessions: models.NewSessionStore(nil),
		notes:    &recorder{},
	}
	cc := &ClientController{
		Config:     f.config,
		Ledger:     f.ledger,
		Sessions:   f.sessions,
		Lister:     share.NewDirLister(nil),
		Notifier:   f.notes,
		CookieName: testCookie,
	}
	f.admin = &AdminController{
		Config:    f.config,
		Ledger:    f.ledger,
		Sessions:  f.sessions,
		Notifier:  f.notes,
		ClientURL: "http://192.168.1.5:8080",
	}
	guard := &middlewares.SessionGuard{Config: f.config, Sessions: f.sessions, CookieName: testCookie}

	router := gin.New()
	router.POST("/login", cc.Login)
	router.GET("/logout", cc.Logout)
	router.GET("/status", cc.Status)
	router.GET("/files", guard.Require, cc.Browse)
	router.POST("/request_download", guard.Require, cc.RequestDownload)
	router.POST("/cancel_request", guard.Require, cc.CancelRequest)
	router.GET("/check_request/:req_id", guard.Require, cc.CheckRequest)
	router.GET("/download_final", guard.Require, cc.DownloadFinal)

	router.GET("/admin/status", f.admin.GetStatus)
	router.PATCH("/admin/status", f.admin.UpdateStatus)
	router.GET("/admin/requests", f.admin.ListRequests)
	router.POST("/admin/decision", f.admin.Decide)
	router.POST("/admin/logout_all", f.admin.LogoutAll)
	router.POST("/admin/pick_folder", f.admin.PickFolder)
	router.GET("/admin/qrcode", f.admin.QRCode)
	f.router = router
	return f
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// do sends a request, with a JSON body when body is not nil.
func (f *fixture) do(method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "127.0.0.1:40000"
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// login returns the session cookie for a successful login.
func (f *fixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := f.do("POST", "/login", map[string]string{"password": "secret"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}
