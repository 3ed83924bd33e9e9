package controllers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/moyoez/localshare-go/api/models"
	"github.com/moyoez/localshare-go/notify"
	"github.com/moyoez/localshare-go/share"
	"github.com/moyoez/localshare-go/tool"
	"github.com/moyoez/localshare-go/types"
)

const (
	filesRoute    = "/files"
	downloadRoute = "/download_final"
)

// ClientController serves the public listener: login, browsing and the
// download approval handshake.
type ClientController struct {
	Config   *models.ConfigStore
	Ledger   *models.Ledger
	Sessions *models.SessionStore
	Lister   share.Lister
	Notifier notify.Broadcaster

	CookieName   string
	SecureCookie bool
}

// Login checks the shared password and starts a fresh session.
// POST /login
func (cc *ClientController) Login(c *gin.Context) {
	var body types.LoginBody
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body"))
		return
	}
	cfg := cc.Config.Read()
	if !cfg.IsRunning {
		c.JSON(http.StatusServiceUnavailable, tool.FastReturnError(string(models.ReasonOffline)))
		return
	}
	if !passwordMatches(cfg, body.Password) {
		tool.DefaultLogger.Warnf("[Login] Wrong password from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, tool.FastReturnError("invalid_password"))
		return
	}

	oldID, _ := c.Cookie(cc.CookieName)
	sess := cc.Sessions.Login(oldID, cfg.SessionToken, c.ClientIP())
	cc.setSessionCookie(c, sess.ID, 0)
	tool.DefaultLogger.Infof("[Login] %s logged in", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"status": "ok", "redirect": filesRoute})
}

// Logout forgets the session and clears the cookie.
// GET /logout
func (cc *ClientController) Logout(c *gin.Context) {
	if id, err := c.Cookie(cc.CookieName); err == nil {
		cc.Sessions.Logout(id)
	}
	cc.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "redirect": "/"})
}

// Status is polled by the browser. force_logout tells a page holding a dead
// session to go back to the login form.
// GET /status
func (cc *ClientController) Status(c *gin.Context) {
	cfg := cc.Config.Read()
	forceLogout := false
	if id, err := c.Cookie(cc.CookieName); err == nil {
		if sess, ok := cc.Sessions.Get(id); ok {
			forceLogout = !cfg.IsRunning || !sess.LoggedIn || sess.Token != cfg.SessionToken
		}
	}
	c.JSON(http.StatusOK, types.StatusResponse{
		Paused:          cfg.IsPaused,
		Running:         cfg.IsRunning,
		ForceLogout:     forceLogout,
		ConfigID:        cfg.ConfigID,
		RequireApproval: cfg.RequireApproval,
	})
}

// Browse lists one directory of the shared root.
// GET /files?path=
func (cc *ClientController) Browse(c *gin.Context) {
	cfg := cc.Config.Read()
	rel := tool.CleanRelPath(c.Query("path"))
	abs, ok := cc.resolve(c, cfg, rel)
	if !ok {
		return
	}

	listing, err := cc.Lister.List(abs, rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, share.ErrNotDirectory) {
			if rel == "" {
				c.JSON(http.StatusInternalServerError, tool.FastReturnError("Shared folder is not available"))
				return
			}
			// the admin probably switched folders under this client
			tool.DefaultLogger.Debugf("[Browse] %q vanished, sending %s back to root", rel, c.ClientIP())
			c.Redirect(http.StatusSeeOther, filesRoute)
			return
		}
		tool.DefaultLogger.Errorf("[Browse] Listing %q failed: %v", rel, err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError(err.Error()))
		return
	}
	listing.ParentPath = tool.ParentRelPath(rel)
	listing.ConfigID = cfg.ConfigID
	c.JSON(http.StatusOK, listing)
}

// RequestDownload starts a download. Without approval mode the direct link
// comes back at once; otherwise a pending ticket is opened for the admin.
// POST /request_download
func (cc *ClientController) RequestDownload(c *gin.Context) {
	var body types.DownloadRequestBody
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body"))
		return
	}
	rel := tool.CleanRelPath(body.Path)
	if rel == "" {
		rel = tool.CleanRelPath(body.FileName)
	}
	if rel == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing file path"))
		return
	}
	cfg := cc.Config.Read()
	abs, ok := cc.resolve(c, cfg, rel)
	if !ok {
		return
	}
	if !isRegularFile(abs) {
		c.JSON(http.StatusNotFound, tool.FastReturnError("File not found"))
		return
	}
	name := body.FileName
	if name == "" {
		name = filepath.Base(abs)
	}

	if !cfg.RequireApproval {
		c.JSON(http.StatusOK, gin.H{"status": types.RequestApproved, "direct_link": downloadLink(rel, "")})
		return
	}

	req := cc.Ledger.Create(name, rel, c.ClientIP())
	tool.DefaultLogger.Infof("[Ledger] %s asked for %q (request %s)", c.ClientIP(), rel, req.ID)
	cc.notify(&types.Notification{
		Type:    types.NotifyTypeRequestCreated,
		Title:   "Download request",
		Message: name,
		Data: map[string]any{
			"req_id":        req.ID,
			"file_name":     req.FileName,
			"relative_path": req.RelativePath,
			"remote_addr":   req.RemoteAddr,
		},
	})
	c.JSON(http.StatusOK, gin.H{"status": types.RequestPending, "req_id": req.ID})
}

// CancelRequest withdraws a ticket the client no longer wants.
// POST /cancel_request
func (cc *ClientController) CancelRequest(c *gin.Context) {
	var body types.CancelRequestBody
	if err := c.ShouldBind(&body); err != nil || body.RequestID == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing req_id"))
		return
	}
	if !cc.Ledger.Cancel(body.RequestID) {
		c.JSON(http.StatusOK, tool.FastReturnStatus("not_found"))
		return
	}
	cc.notify(&types.Notification{
		Type: types.NotifyTypeRequestCancelled,
		Data: map[string]any{"req_id": body.RequestID},
	})
	c.JSON(http.StatusOK, tool.FastReturnStatus("cancelled"))
}

// CheckRequest reports a ticket's status, with the download link once approved.
// GET /check_request/:req_id
func (cc *ClientController) CheckRequest(c *gin.Context) {
	req, err := cc.Ledger.Poll(c.Param("req_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, tool.FastReturnError("Request not found"))
		return
	}
	resp := gin.H{"status": req.Status}
	if req.Status == types.RequestApproved {
		resp["link"] = downloadLink(req.RelativePath, req.ID)
	}
	c.JSON(http.StatusOK, resp)
}

// DownloadFinal streams the file. Pause wins over everything; in approval
// mode the ticket is redeemed before the first byte is sent.
// GET /download_final?filepath=&token=
func (cc *ClientController) DownloadFinal(c *gin.Context) {
	cfg := cc.Config.Read()
	if cfg.IsPaused {
		c.JSON(http.StatusForbidden, tool.FastReturnError("paused"))
		return
	}
	rel := tool.CleanRelPath(c.Query("filepath"))
	abs, ok := cc.resolve(c, cfg, rel)
	if !ok {
		return
	}
	if rel == "" || !isRegularFile(abs) {
		c.JSON(http.StatusNotFound, tool.FastReturnError("File not found"))
		return
	}

	if cfg.RequireApproval {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusForbidden, tool.FastReturnError("Approval required"))
			return
		}
		if _, err := cc.Ledger.Consume(token, rel); err != nil {
			switch {
			case errors.Is(err, models.ErrTicketNotFound):
				c.JSON(http.StatusNotFound, tool.FastReturnError("Request not found"))
			default:
				tool.DefaultLogger.Warnf("[Download] %s refused for %q: %v", c.ClientIP(), rel, err)
				c.JSON(http.StatusForbidden, tool.FastReturnError(err.Error()))
			}
			return
		}
	}

	tool.DefaultLogger.Infof("[Download] Sending %q to %s", rel, c.ClientIP())
	c.FileAttachment(abs, filepath.Base(abs))
}

// resolve maps rel under the shared root and writes the error response itself
// when that fails.
func (cc *ClientController) resolve(c *gin.Context, cfg types.ServerConfig, rel string) (string, bool) {
	abs, err := tool.ResolveWithinRoot(cfg.FolderPath, rel)
	switch {
	case err == nil:
		return abs, true
	case errors.Is(err, tool.ErrPathTraversal):
		tool.DefaultLogger.Warnf("[Browse] Traversal attempt from %s: %q", c.ClientIP(), rel)
		c.JSON(http.StatusForbidden, tool.FastReturnError("access_denied"))
	case errors.Is(err, tool.ErrRootNotSet), errors.Is(err, tool.ErrRootMissing):
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Shared folder is not available"))
	default:
		c.JSON(http.StatusInternalServerError, tool.FastReturnError(err.Error()))
	}
	return "", false
}

func (cc *ClientController) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cc.CookieName, value, maxAge, "/", "", cc.SecureCookie, true)
}

func (cc *ClientController) notify(n *types.Notification) {
	if cc.Notifier != nil {
		cc.Notifier.Broadcast(n)
	}
}

// passwordMatches compares the plain password when one is set, else the bcrypt hash.
func passwordMatches(cfg types.ServerConfig, submitted string) bool {
	if submitted == "" {
		return false
	}
	if cfg.Password != "" {
		return subtle.ConstantTimeCompare([]byte(cfg.Password), []byte(submitted)) == 1
	}
	if cfg.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(submitted)) == nil
	}
	return false
}

func isRegularFile(abs string) bool {
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

func downloadLink(rel, token string) string {
	q := url.Values{}
	q.Set("filepath", rel)
	if token != "" {
		q.Set("token", token)
	}
	return downloadRoute + "?" + q.Encode()
}
