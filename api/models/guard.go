package models

import "github.com/moyoez/localshare-go/types"

// DenyReason says why a session was refused.
type DenyReason string

const (
	ReasonOffline        DenyReason = "offline"
	ReasonLoginRequired  DenyReason = "login_required"
	ReasonSessionExpired DenyReason = "session_expired"
)

// Decision is the guard outcome: either Allowed with the session, or a reason.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Session types.ClientSession
}

// Authorize checks, in order, that the server is running, that the session is
// logged in, and that its token snapshot still equals the live token. Any
// failure clears the session's login state.
func Authorize(sess *types.ClientSession, cfg types.ServerConfig) Decision {
	reason := DenyReason("")
	switch {
	case !cfg.IsRunning:
		reason = ReasonOffline
	case !sess.LoggedIn:
		reason = ReasonLoginRequired
	case sess.Token != cfg.SessionToken:
		reason = ReasonSessionExpired
	}
	if reason != "" {
		sess.LoggedIn = false
		sess.Token = ""
		return Decision{Reason: reason}
	}
	return Decision{Allowed: true, Session: *sess}
}
