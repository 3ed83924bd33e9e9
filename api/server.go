package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/localshare-go/api/controllers"
	"github.com/moyoez/localshare-go/api/middlewares"
	"github.com/moyoez/localshare-go/api/models"
	"github.com/moyoez/localshare-go/api/notifyhub"
	"github.com/moyoez/localshare-go/notify"
	"github.com/moyoez/localshare-go/share"
	"github.com/moyoez/localshare-go/tool"
)

// Deps are the shared stores and collaborators wired into both listeners.
type Deps struct {
	Config   *models.ConfigStore
	Ledger   *models.Ledger
	Sessions *models.SessionStore
	Lister   share.Lister
	Picker   share.FolderPicker
	Notifier notify.Broadcaster
	Hub      *notifyhub.Hub

	CookieName   string
	SecureCookie bool
	LoginLimiter *middlewares.LoginLimiter
	ClientURL    string
}

// SetGinMode runs gin in debug mode only when the logger is at debug level.
func SetGinMode() {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

// NewClientEngine builds the public listener's routes.
func NewClientEngine(d Deps) *gin.Engine {
	engine := gin.Default()
	cc := &controllers.ClientController{
		Config:       d.Config,
		Ledger:       d.Ledger,
		Sessions:     d.Sessions,
		Lister:       d.Lister,
		Notifier:     d.Notifier,
		CookieName:   d.CookieName,
		SecureCookie: d.SecureCookie,
	}
	guard := &middlewares.SessionGuard{Config: d.Config, Sessions: d.Sessions, CookieName: d.CookieName}

	login := []gin.HandlerFunc{cc.Login}
	if d.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{d.LoginLimiter.Middleware}, login...)
	}
	engine.POST("/login", login...)
	engine.GET("/logout", cc.Logout)
	engine.GET("/status", cc.Status)

	authed := engine.Group("/", guard.Require)
	{
		authed.GET("/files", cc.Browse)
		authed.POST("/request_download", cc.RequestDownload)
		authed.POST("/cancel_request", cc.CancelRequest)
		authed.GET("/check_request/:req_id", cc.CheckRequest)
		authed.GET("/download_final", cc.DownloadFinal)
	}
	return engine
}

// NewAdminEngine builds the operator listener's routes. Every route is
// restricted to loopback callers, and forwarding headers are never trusted.
func NewAdminEngine(d Deps) *gin.Engine {
	engine := gin.Default()
	if err := engine.SetTrustedProxies(nil); err != nil {
		tool.DefaultLogger.Warnf("[Admin] Failed to reset trusted proxies: %v", err)
	}
	ac := &controllers.AdminController{
		Config:    d.Config,
		Ledger:    d.Ledger,
		Sessions:  d.Sessions,
		Picker:    d.Picker,
		Notifier:  d.Notifier,
		ClientURL: d.ClientURL,
	}

	admin := engine.Group("/admin", middlewares.OnlyAllowLocal)
	{
		admin.GET("/status", ac.GetStatus)
		admin.POST("/status", ac.UpdateStatus)
		admin.PATCH("/status", ac.UpdateStatus)
		admin.GET("/requests", ac.ListRequests)
		admin.POST("/decision", ac.Decide)
		admin.POST("/logout_all", ac.LogoutAll)
		admin.POST("/pick_folder", ac.PickFolder)
		admin.GET("/qrcode", ac.QRCode)
		if d.Hub != nil {
			admin.GET("/events", notifyhub.HandleNotifyWS(d.Hub))
		}
	}
	return engine
}

// Server is one HTTP listener.
type Server struct {
	name    string
	host    string
	port    int
	handler http.Handler
	tlsCert *tls.Certificate
	server  *http.Server
	mu      sync.RWMutex
}

func NewServer(name, host string, port int, handler http.Handler) *Server {
	return &Server{name: name, host: host, port: port, handler: handler}
}

// UseTLS makes Start serve HTTPS with cert.
func (s *Server) UseTLS(cert tls.Certificate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tlsCert = &cert
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Start blocks serving requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:    s.Addr(),
		Handler: s.handler,
	}
	srv := s.server
	cert := s.tlsCert
	if cert != nil {
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{*cert}}
	}
	s.mu.Unlock()

	var err error
	if cert != nil {
		tool.DefaultLogger.Infof("Starting %s server on https://%s", s.name, s.Addr())
		err = srv.ListenAndServeTLS("", "")
	} else {
		tool.DefaultLogger.Infof("Starting %s server on http://%s", s.name, s.Addr())
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s server: %w", s.name, err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
