package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/localshare-go/api/models"
	"github.com/moyoez/localshare-go/tool"
)

// SessionGuard wraps client routes with the session authorization check.
type SessionGuard struct {
	Config     *models.ConfigStore
	Sessions   *models.SessionStore
	CookieName string
}

// Require lets the request through only for a running server and a logged-in
// session whose token snapshot is current. Refused callers get 401 and are
// sent back to the login page; the reason tells the page what to show.
func (g *SessionGuard) Require(c *gin.Context) {
	id, _ := c.Cookie(g.CookieName)
	decision := g.Sessions.Authorize(id, g.Config.Read())
	if !decision.Allowed {
		tool.DefaultLogger.Debugf("[Guard] %s %s refused: %s", c.ClientIP(), c.Request.URL.Path, decision.Reason)
		c.AbortWithStatusJSON(http.StatusUnauthorized, tool.FastReturnRedirect(string(decision.Reason), "/"))
		return
	}
	c.Next()
}
