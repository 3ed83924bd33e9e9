package tool

import (
	"flag"
	"os"

	"github.com/moyoez/localshare-go/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	return ParseFlags(flag.CommandLine, os.Args[1:])
}

// ParseFlags registers the CLI flags on fs and parses args.
func ParseFlags(fs *flag.FlagSet, args []string) types.Config {
	var cfg types.Config
	fs.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	fs.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	fs.StringVar(&cfg.UseFolder, "useFolder", "", "folder to share")
	fs.StringVar(&cfg.UsePassword, "usePassword", "", "web access password")
	fs.BoolVar(&cfg.UseRequireApproval, "useRequireApproval", false, "if true, every download needs an admin decision")
	fs.BoolVar(&cfg.UseHttps, "useHttps", false, "serve the client listener over https with a self-signed certificate")
	fs.IntVar(&cfg.UseClientPort, "useClientPort", 0, "override client listener port")
	fs.IntVar(&cfg.UseAdminPort, "useAdminPort", 0, "override admin listener port (always bound to loopback)")
	fs.BoolVar(&cfg.SkipNotify, "skipNotify", false, "if true, skip pushing events to the desktop GUI socket")
	_ = fs.Parse(args)
	return cfg
}

// ApplyFlagOverrides merges non-zero CLI overrides into the boot config.
func ApplyFlagOverrides(appCfg *types.AppConfig, flags types.Config) {
	if flags.UseFolder != "" {
		appCfg.FolderPath = flags.UseFolder
	}
	if flags.UsePassword != "" {
		appCfg.Password = flags.UsePassword
		appCfg.PasswordHash = ""
	}
	if flags.UseRequireApproval {
		appCfg.RequireApproval = true
	}
	if flags.UseHttps {
		appCfg.Protocol = "https"
	}
	if flags.UseClientPort > 0 {
		appCfg.ClientPort = flags.UseClientPort
	}
	if flags.UseAdminPort > 0 {
		appCfg.AdminPort = flags.UseAdminPort
	}
}
