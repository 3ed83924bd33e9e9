package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/localshare-go/tool"
)

// OnlyAllowLocal rejects callers whose address is not loopback. The engine
// using it must not trust forwarding headers (SetTrustedProxies(nil)).
func OnlyAllowLocal(c *gin.Context) {
	if tool.IsLoopbackIP(c.ClientIP()) {
		c.Next()
		return
	}
	tool.DefaultLogger.Warnf("[Admin] Refused non-local caller %s %s", c.ClientIP(), c.Request.URL.Path)
	c.AbortWithStatusJSON(http.StatusForbidden, tool.FastReturnError("Forbidden"))
}
