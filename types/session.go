package types

import "time"

// ClientSession is the server-side state behind a client's session cookie.
// Token is a snapshot of ServerConfig.SessionToken taken at login.
type ClientSession struct {
	ID         string
	LoggedIn   bool
	Token      string
	CreatedAt  time.Time
	LastSeen   time.Time
	RemoteAddr string
}

// LoginBody is the body for POST /login. Form and JSON are both accepted.
type LoginBody struct {
	Password string `json:"password" form:"password"`
}
