package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/localshare-go/api"
	"github.com/moyoez/localshare-go/api/middlewares"
	"github.com/moyoez/localshare-go/api/models"
	"github.com/moyoez/localshare-go/api/notifyhub"
	"github.com/moyoez/localshare-go/notify"
	"github.com/moyoez/localshare-go/share"
	"github.com/moyoez/localshare-go/tool"
	"github.com/moyoez/localshare-go/types"
)

const (
	sweepInterval   = time.Minute
	sessionIdleTime = 30 * time.Minute
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg := tool.SetFlags()

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.ApplyFlagOverrides(&appCfg, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configStore := models.NewConfigStore(types.ServerConfig{
		FolderPath:      appCfg.FolderPath,
		Password:        appCfg.Password,
		PasswordHash:    appCfg.PasswordHash,
		IsRunning:       appCfg.StartRunning,
		RequireApproval: appCfg.RequireApproval,
	})
	ledger := models.NewLedger(models.LedgerOptions{
		TTL:             time.Duration(appCfg.TicketTTLSeconds) * time.Second,
		StrictDecisions: appCfg.StrictDecisions,
	})
	ledger.StartSweeper(ctx, sweepInterval)
	sessions := models.NewSessionStore(nil)
	sessions.StartPruner(ctx, configStore, sweepInterval, sessionIdleTime)

	hub := notifyhub.New()
	socketPath := ""
	if !cfg.SkipNotify {
		socketPath = appCfg.NotifySocket
		if socketPath == "" {
			socketPath = notify.DefaultUnixSocketPath
		}
	}
	dispatcher := notify.NewDispatcher(socketPath, hub)

	clientHost := appCfg.ClientHost
	if clientHost == "" || clientHost == "0.0.0.0" || clientHost == "::" {
		clientHost = tool.PreferredLANAddress()
	}
	clientURL := tool.BuildClientURL(appCfg.Protocol, clientHost, appCfg.ClientPort)

	deps := api.Deps{
		Config:       configStore,
		Ledger:       ledger,
		Sessions:     sessions,
		Lister:       share.NewDirLister(nil),
		Picker:       share.NewCommandPicker(),
		Notifier:     dispatcher,
		Hub:          hub,
		CookieName:   appCfg.SessionCookie,
		SecureCookie: appCfg.Protocol == "https",
		LoginLimiter: middlewares.NewLoginLimiter(appCfg.LoginRatePerMinute),
		ClientURL:    clientURL,
	}
	api.SetGinMode()

	clientServer := api.NewServer("client", appCfg.ClientHost, appCfg.ClientPort, api.NewClientEngine(deps))
	if appCfg.Protocol == "https" {
		cert, err := tool.GetOrCreateTLSCertificate(&appCfg)
		if err != nil {
			tool.DefaultLogger.Fatalf("Failed to prepare TLS certificate: %v", err)
		}
		clientServer.UseTLS(cert)
	}
	adminServer := api.NewServer("admin", appCfg.AdminHost, appCfg.AdminPort, api.NewAdminEngine(deps))

	errCh := make(chan error, 2)
	for _, srv := range []*api.Server{clientServer, adminServer} {
		srv := srv
		go func() {
			errCh <- srv.Start()
		}()
	}

	current := configStore.Read()
	if current.IsRunning {
		tool.DefaultLogger.Infof("Running on %s", clientURL)
	} else {
		tool.DefaultLogger.Warnf("Server is stopped; set a folder and a password on http://%s/admin/status", adminServer.Addr())
	}

	select {
	case <-ctx.Done():
		tool.DefaultLogger.Infof("Shutting down...")
	case err := <-errCh:
		if err != nil {
			tool.DefaultLogger.Errorf("%v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range []*api.Server{clientServer, adminServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			tool.DefaultLogger.Warnf("Shutdown: %v", err)
		}
	}
	dispatcher.Close()
}
