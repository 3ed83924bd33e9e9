package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/moyoez/localshare-go/api/models"
	"github.com/moyoez/localshare-go/types"
)

func boolPtr(b bool) *bool { return &b }

func TestLoginOfflineWrongAndRight(t *testing.T) {
	f := newFixture(t, false)

	w := f.do("POST", "/login", map[string]string{"password": "nope"}, nil)
	if w.Code != http.StatusUnauthorized || decode(t, w)["error"] != "invalid_password" {
		t.Fatalf("wrong password: got %d %s", w.Code, w.Body.String())
	}

	cookie := f.login(t)
	if cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("unexpected session cookie: %+v", cookie)
	}

	f.config.Update(types.ConfigPatch{IsRunning: boolPtr(false)})
	w = f.do("POST", "/login", map[string]string{"password": "secret"}, nil)
	if w.Code != http.StatusServiceUnavailable || decode(t, w)["error"] != "offline" {
		t.Fatalf("offline login: got %d %s", w.Code, w.Body.String())
	}
}

func TestLoginAcceptsFormBody(t *testing.T) {
	f := newFixture(t, false)
	req, _ := http.NewRequest("POST", "/login", strings.NewReader(url.Values{"password": {"secret"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || decode(t, w)["redirect"] != "/files" {
		t.Fatalf("form login: got %d %s", w.Code, w.Body.String())
	}
}

func TestPasswordMatchesBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	cfg := types.ServerConfig{PasswordHash: string(hash)}
	if !passwordMatches(cfg, "hunter2") {
		t.Fatal("hash should accept the right password")
	}
	if passwordMatches(cfg, "hunter3") || passwordMatches(cfg, "") {
		t.Fatal("hash accepted a wrong password")
	}
	// a plain password takes precedence over a stale hash
	cfg.Password = "plain"
	if passwordMatches(cfg, "hunter2") || !passwordMatches(cfg, "plain") {
		t.Fatal("plain password should win")
	}
}

func TestLoginRotatesSessionID(t *testing.T) {
	f := newFixture(t, false)
	first := f.login(t)
	w := f.do("POST", "/login", map[string]string{"password": "secret"}, first)
	var second string
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			second = c.Value
		}
	}
	if second == "" || second == first.Value {
		t.Fatal("login must issue a fresh session id")
	}
	if _, ok := f.sessions.Get(first.Value); ok {
		t.Fatal("the previous session id must be dropped")
	}
}

func TestBrowseListsRootAndSubfolder(t *testing.T) {
	f := newFixture(t, false)
	cookie := f.login(t)

	w := f.do("GET", "/files", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["parent_path"] != nil {
		t.Fatalf("root listing must not have a parent, got %v", body["parent_path"])
	}
	if body["config_id"] != f.config.Read().ConfigID {
		t.Fatal("listing must carry the current config id")
	}
	folders := body["folders"].([]any)
	files := body["files"].([]any)
	if len(folders) != 1 || len(files) != 1 {
		t.Fatalf("unexpected listing: %s", w.Body.String())
	}

	w = f.do("GET", "/files?path=docs", nil, cookie)
	body = decode(t, w)
	if body["parent_path"] != "" || body["current_path"] != "docs" {
		t.Fatalf("unexpected sub listing: %s", w.Body.String())
	}
	file := body["files"].([]any)[0].(map[string]any)
	if file["rel_path"] != "docs/report.pdf" {
		t.Fatalf("unexpected rel_path %v", file["rel_path"])
	}
}

func TestBrowseRequiresSession(t *testing.T) {
	f := newFixture(t, false)
	w := f.do("GET", "/files", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	body := decode(t, w)
	if body["redirect"] != "/" || body["error"] != string(models.ReasonLoginRequired) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestBrowseAndDownloadRejectTraversal(t *testing.T) {
	f := newFixture(t, false)
	cookie := f.login(t)

	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.txt"), "top secret")
	relOut, err := filepath.Rel(f.root, filepath.Join(outside, "secret.txt"))
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{"..", "../", "docs/../../", "/../..", `..\..`} {
		w := f.do("GET", "/files?path="+url.QueryEscape(p), nil, cookie)
		if w.Code != http.StatusForbidden {
			t.Errorf("browse %q: expected 403, got %d", p, w.Code)
		}
	}
	w := f.do("GET", "/download_final?filepath="+url.QueryEscape(filepath.ToSlash(relOut)), nil, cookie)
	if w.Code != http.StatusForbidden {
		t.Fatalf("download outside root: expected 403, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "top secret") {
		t.Fatal("leaked bytes from outside the root")
	}
}

func TestBrowseRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	f := newFixture(t, false)
	cookie := f.login(t)
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(f.root, "escape")); err != nil {
		t.Fatal(err)
	}
	if w := f.do("GET", "/files?path=escape", nil, cookie); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestBrowseVanishedFolderRedirectsToRoot(t *testing.T) {
	f := newFixture(t, false)
	cookie := f.login(t)
	if err := os.RemoveAll(filepath.Join(f.root, "docs")); err != nil {
		t.Fatal(err)
	}
	w := f.do("GET", "/files?path=docs", nil, cookie)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/files" {
		t.Fatalf("expected 303 to /files, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestBrowseMissingRootIsServerError(t *testing.T) {
	f := newFixture(t, false)
	cookie := f.login(t)
	if err := os.RemoveAll(f.root); err != nil {
		t.Fatal(err)
	}
	if w := f.do("GET", "/files", nil, cookie); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestStatusReportsForceLogout(t *testing.T) {
	f := newFixture(t, true)
	cookie := f.login(t)

	body := decode(t, f.do("GET", "/status", nil, cookie))
	if body["force_logout"] != false || body["running"] != true || body["require_approval"] != true {
		t.Fatalf("unexpected status %v", body)
	}

	f.config.RotateSessionToken()
	body = decode(t, f.do("GET", "/status", nil, cookie))
	if body["force_logout"] != true {
		t.Fatalf("expected force_logout after rotation, got %v", body)
	}
	// an anonymous poll is never told to log out
	body = decode(t, f.do("GET", "/status", nil, nil))
	if body["force_logout"] != false {
		t.Fatalf("anonymous poll: %v", body)
	}
}

func TestDirectDownloadWithoutApproval(t *testing.T) {
	f := newFixture(t, false)
	cookie := f.login(t)

	w := f.do("POST", "/request_download", map[string]string{"filename": "notes.txt", "path": "notes.txt"}, cookie)
	body := decode(t, w)
	if body["status"] != "approved" {
		t.Fatalf("expected approved, got %s", w.Body.String())
	}
	link := body["direct_link"].(string)
	w = f.do("GET", link, nil, cookie)
	if w.Code != http.StatusOK || w.Body.String() != "hello" {
		t.Fatalf("direct download: %d %q", w.Code, w.Body.String())
	}
	if f.ledger.CountPending() != 0 {
		t.Fatal("no ticket should exist when approval is off")
	}
}

func TestRequestDownloadMissingFile(t *testing.T) {
	f := newFixture(t, true)
	cookie := f.login(t)
	w := f.do("POST", "/request_download", map[string]string{"filename": "nope.pdf", "path": "docs/nope.pdf"}, cookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	w = f.do("POST", "/request_download", map[string]string{"filename": "docs", "path": "docs"}, cookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("a directory is not downloadable, got %d", w.Code)
	}
}

func TestPauseBlocksApprovedTicketWithoutConsumingIt(t *testing.T) {
	f := newFixture(t, true)
	cookie := f.login(t)

	body := decode(t, f.do("POST", "/request_download", map[string]string{"filename": "report.pdf", "path": "docs/report.pdf"}, cookie))
	id := body["req_id"].(string)
	if _, err := f.ledger.Decide(id, types.RequestApproved); err != nil {
		t.Fatal(err)
	}
	link := downloadLink("docs/report.pdf", id)

	f.config.Update(types.ConfigPatch{IsPaused: boolPtr(true)})
	if w := f.do("GET", link, nil, cookie); w.Code != http.StatusForbidden {
		t.Fatalf("paused download: expected 403, got %d", w.Code)
	}
	if req, err := f.ledger.Poll(id); err != nil || req.Status != types.RequestApproved {
		t.Fatalf("ticket must stay approved while paused: %+v %v", req, err)
	}

	f.config.Update(types.ConfigPatch{IsPaused: boolPtr(false)})
	if w := f.do("GET", link, nil, cookie); w.Code != http.StatusOK {
		t.Fatalf("download after unpause: expected 200, got %d", w.Code)
	}
}

func TestDownloadTicketIsBoundToItsFile(t *testing.T) {
	f := newFixture(t, true)
	cookie := f.login(t)
	req := f.ledger.Create("report.pdf", "docs/report.pdf", "")
	if _, err := f.ledger.Decide(req.ID, types.RequestApproved); err != nil {
		t.Fatal(err)
	}

	if w := f.do("GET", downloadLink("notes.txt", req.ID), nil, cookie); w.Code != http.StatusForbidden {
		t.Fatalf("ticket for another file: expected 403, got %d", w.Code)
	}
	if w := f.do("GET", downloadLink("docs/report.pdf", ""), nil, cookie); w.Code != http.StatusForbidden {
		t.Fatalf("missing token: expected 403, got %d", w.Code)
	}
	if w := f.do("GET", downloadLink("docs/report.pdf", req.ID), nil, cookie); w.Code != http.StatusOK {
		t.Fatalf("matching ticket: expected 200, got %d", w.Code)
	}
}

func TestPendingTicketCannotDownload(t *testing.T) {
	f := newFixture(t, true)
	cookie := f.login(t)
	req := f.ledger.Create("report.pdf", "docs/report.pdf", "")
	if w := f.do("GET", downloadLink("docs/report.pdf", req.ID), nil, cookie); w.Code != http.StatusForbidden {
		t.Fatalf("pending ticket: expected 403, got %d", w.Code)
	}
	if _, err := f.ledger.Poll(req.ID); err != nil {
		t.Fatal("refused download must not delete the ticket")
	}
}

func TestCancelAndCheckRequest(t *testing.T) {
	f := newFixture(t, true)
	cookie := f.login(t)

	body := decode(t, f.do("POST", "/request_download", map[string]string{"filename": "notes.txt", "path": "notes.txt"}, cookie))
	id := body["req_id"].(string)

	body = decode(t, f.do("GET", "/check_request/"+id, nil, cookie))
	if body["status"] != "pending" || body["link"] != nil {
		t.Fatalf("pending check: %v", body)
	}

	body = decode(t, f.do("POST", "/cancel_request", map[string]string{"req_id": id}, cookie))
	if body["status"] != "cancelled" {
		t.Fatalf("cancel: %v", body)
	}
	body = decode(t, f.do("POST", "/cancel_request", map[string]string{"req_id": id}, cookie))
	if body["status"] != "not_found" {
		t.Fatalf("second cancel: %v", body)
	}
	if w := f.do("GET", "/check_request/"+id, nil, cookie); w.Code != http.StatusNotFound {
		t.Fatalf("check after cancel: expected 404, got %d", w.Code)
	}

	kinds := f.notes.kinds()
	if len(kinds) != 2 || kinds[0] != types.NotifyTypeRequestCreated || kinds[1] != types.NotifyTypeRequestCancelled {
		t.Fatalf("unexpected notifications %v", kinds)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture(t, false)
	cookie := f.login(t)
	if w := f.do("GET", "/logout", nil, cookie); w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	if w := f.do("GET", "/files", nil, cookie); w.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: expected 401, got %d", w.Code)
	}
}

func TestNamesWithSurroundingSpacesStayDistinct(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("windows strips trailing spaces from file names")
	}
	f := newFixture(t, true)
	cookie := f.login(t)
	writeFile(t, filepath.Join(f.root, "notes.txt "), "trailing space")
	if err := os.Mkdir(filepath.Join(f.root, " old"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(f.root, " old", "a.txt"), "old a")

	w := f.do("GET", "/files?path="+url.QueryEscape(" old"), nil, cookie)
	if w.Code != http.StatusOK || decode(t, w)["current_path"] != " old" {
		t.Fatalf("browse %q: %d %s", " old", w.Code, w.Body.String())
	}

	want := map[string]string{"notes.txt": "hello", "notes.txt ": "trailing space", " old/a.txt": "old a"}
	for rel, content := range want {
		body := decode(t, f.do("POST", "/request_download", map[string]string{"filename": rel, "path": rel}, cookie))
		id, _ := body["req_id"].(string)
		req, err := f.ledger.Poll(id)
		if err != nil || req.RelativePath != rel {
			t.Fatalf("%q: ticket recorded %q (%v)", rel, req.RelativePath, err)
		}
		if _, err := f.ledger.Decide(id, types.RequestApproved); err != nil {
			t.Fatal(err)
		}
		link := decode(t, f.do("GET", "/check_request/"+id, nil, cookie))["link"].(string)
		w := f.do("GET", link, nil, cookie)
		if w.Code != http.StatusOK || w.Body.String() != content {
			t.Errorf("%q: expected %q, got %d %q", rel, content, w.Code, w.Body.String())
		}
	}
}

func TestDirectDownloadTrailingSpaceName(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("windows strips trailing spaces from file names")
	}
	f := newFixture(t, false)
	cookie := f.login(t)
	writeFile(t, filepath.Join(f.root, "notes.txt "), "TRAILING-SPACE-FILE")

	for rel, content := range map[string]string{"notes.txt": "hello", "notes.txt ": "TRAILING-SPACE-FILE"} {
		w := f.do("GET", "/download_final?filepath="+url.QueryEscape(rel), nil, cookie)
		if w.Code != http.StatusOK || w.Body.String() != content {
			t.Errorf("%q: expected %q, got %d %q", rel, content, w.Code, w.Body.String())
		}
	}
}
