package notifyhub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/localshare-go/tool"
)

// admin pages only ever send close frames and pongs
const maxInboundMessage = 512

var upgrader = websocket.Upgrader{
	// the admin listener is loopback-only, so any origin there is the operator
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleNotifyWS streams admin events: new download requests, decisions and
// config changes. The connection stays registered until the page closes it.
func HandleNotifyWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			tool.DefaultLogger.Debugf("[Events] Upgrade failed for %s: %v", c.ClientIP(), err)
			return
		}
		conn.SetReadLimit(maxInboundMessage)
		extend := func(string) error {
			return conn.SetReadDeadline(time.Now().Add(hub.idle))
		}
		_ = extend("")
		conn.SetPongHandler(extend)

		hub.Register(conn)
		tool.DefaultLogger.Debugf("[Events] Admin page connected (%d listening)", hub.Len())
		done := make(chan struct{})
		defer func() {
			close(done)
			hub.Unregister(conn)
			if err := conn.Close(); err != nil {
				tool.DefaultLogger.Debugf("[Events] Close: %v", err)
			}
		}()
		go keepAlive(hub, conn, done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			_ = extend("")
		}
	}
}

// keepAlive pings the page so its pongs keep the read deadline moving.
func keepAlive(hub *Hub, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(hub.pingInterval())
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := hub.ping(conn); err != nil {
				tool.DefaultLogger.Debugf("[Events] Ping failed: %v", err)
				return
			}
		}
	}
}
