package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/localshare-go/api/models"
	"github.com/moyoez/localshare-go/notify"
	"github.com/moyoez/localshare-go/share"
	"github.com/moyoez/localshare-go/tool"
	"github.com/moyoez/localshare-go/types"
)

// DefaultActiveWindow is how recently a session must have been seen to count
// as an active user.
const DefaultActiveWindow = 5 * time.Minute

// AdminController serves the loopback-only operator listener.
type AdminController struct {
	Config   *models.ConfigStore
	Ledger   *models.Ledger
	Sessions *models.SessionStore
	Picker   share.FolderPicker
	Notifier notify.Broadcaster

	// ClientURL is the address announced to clients and encoded in the QR code.
	ClientURL    string
	ActiveWindow time.Duration
}

// GetStatus returns the config plus live counters.
// GET /admin/status
func (ac *AdminController) GetStatus(c *gin.Context) {
	cfg := ac.Config.Read()
	window := ac.ActiveWindow
	if window <= 0 {
		window = DefaultActiveWindow
	}
	c.JSON(http.StatusOK, types.AdminStatusResponse{
		Config:       cfg,
		HasPassword:  cfg.HasPassword(),
		ActiveUsers:  ac.Sessions.ActiveCount(cfg.SessionToken, window),
		PendingCount: ac.Ledger.CountPending(),
		ClientURL:    ac.ClientURL,
	})
}

// UpdateStatus applies a partial config change. Rejected fields are listed in
// the response while the others still take effect.
// POST|PATCH /admin/status
func (ac *AdminController) UpdateStatus(c *gin.Context) {
	var patch types.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}
	if patch.IsEmpty() {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("No config fields given"))
		return
	}
	ac.applyPatch(c, patch)
}

// LogoutAll rotates the session token so every client must log in again.
// POST /admin/logout_all
func (ac *AdminController) LogoutAll(c *gin.Context) {
	ac.Config.RotateSessionToken()
	tool.DefaultLogger.Infof("[Admin] Session token rotated, all clients logged out")
	ac.notify(&types.Notification{
		Type:  types.NotifyTypeSessionsRevoked,
		Title: "All sessions revoked",
	})
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// ListRequests returns the pending review queue, oldest first.
// GET /admin/requests
func (ac *AdminController) ListRequests(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"requests": ac.Ledger.ListPending()})
}

// Decide approves or rejects a ticket.
// POST /admin/decision
func (ac *AdminController) Decide(c *gin.Context) {
	var body types.DecisionBody
	if err := c.ShouldBind(&body); err != nil || body.RequestID == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing req_id or decision"))
		return
	}
	req, err := ac.Ledger.Decide(body.RequestID, body.Decision)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidDecision):
			c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		case errors.Is(err, models.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, tool.FastReturnError(err.Error()))
		case errors.Is(err, models.ErrAlreadyDecided):
			c.JSON(http.StatusConflict, tool.FastReturnErrorWithData(err.Error(), map[string]any{"request": req}))
		default:
			c.JSON(http.StatusInternalServerError, tool.FastReturnError(err.Error()))
		}
		return
	}
	tool.DefaultLogger.Infof("[Admin] Request %s %s (%q)", req.ID, req.Status, req.RelativePath)
	ac.notify(&types.Notification{
		Type: types.NotifyTypeRequestDecided,
		Data: map[string]any{"req_id": req.ID, "status": req.Status},
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok", "request": req})
}

// PickFolder opens the native folder dialog on the server machine and shares
// the chosen folder.
// POST /admin/pick_folder
func (ac *AdminController) PickFolder(c *gin.Context) {
	if ac.Picker == nil {
		c.JSON(http.StatusNotImplemented, tool.FastReturnError(share.ErrPickerUnavailable.Error()))
		return
	}
	folder, err := ac.Picker.PickFolder(c.Request.Context())
	switch {
	case errors.Is(err, share.ErrPickerCancelled):
		c.JSON(http.StatusOK, tool.FastReturnStatus("cancelled"))
		return
	case errors.Is(err, share.ErrPickerUnavailable):
		c.JSON(http.StatusNotImplemented, tool.FastReturnError(err.Error()))
		return
	case err != nil:
		tool.DefaultLogger.Errorf("[Admin] Folder picker failed: %v", err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError(err.Error()))
		return
	}
	ac.applyPatch(c, types.ConfigPatch{FolderPath: &folder})
}

func (ac *AdminController) applyPatch(c *gin.Context, patch types.ConfigPatch) {
	result := ac.Config.Update(patch)
	for _, r := range result.Rejected {
		tool.DefaultLogger.Warnf("[Admin] Rejected %s: %s", r.Field, r.Reason)
	}
	if result.FolderChanged {
		tool.DefaultLogger.Infof("[Admin] Sharing %s", result.Applied.FolderPath)
	}
	ac.notify(&types.Notification{
		Type: types.NotifyTypeConfigChanged,
		Data: map[string]any{
			"config_id":      result.Applied.ConfigID,
			"folder_changed": result.FolderChanged,
			"token_rotated":  result.TokenRotated,
			"is_running":     result.Applied.IsRunning,
			"is_paused":      result.Applied.IsPaused,
		},
	})
	c.JSON(http.StatusOK, result)
}

func (ac *AdminController) notify(n *types.Notification) {
	if ac.Notifier != nil {
		ac.Notifier.Broadcast(n)
	}
}
