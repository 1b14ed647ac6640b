package banner

import (
	"fmt"

	"hangarcore/pkg/config"
)

const banner = `
██╗  ██╗ █████╗ ███╗   ██╗ ██████╗  █████╗ ██████╗     ██████╗ ██████╗ ██████╗ ███████╗
██║  ██║██╔══██╗████╗  ██║██╔════╝ ██╔══██╗██╔══██╗   ██╔════╝██╔═══██╗██╔══██╗██╔════╝
███████║███████║██╔██╗ ██║██║  ███╗███████║██████╔╝   ██║     ██║   ██║██████╔╝█████╗
██╔══██║██╔══██║██║╚██╗██║██║   ██║██╔══██║██╔══██╗   ██║     ██║   ██║██╔══██╗██╔══╝
██║  ██║██║  ██║██║ ╚████║╚██████╔╝██║  ██║██║  ██║   ╚██████╗╚██████╔╝██║  ██║███████╗
╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═══╝ ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝    ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚══════╝
`

// PrintWithEff prints the daemon banner using an effective config so
// runtime info (config source, keys, store path) is shown centrally.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Storage.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("Store:    %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config: %s\n", src)

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl 'http://<host>:<port>/v1/collections/module_indexes_modules_main'")
	fmt.Println("curl 'http://<host>:<port>/v1/collections/invocations_u1/docs/u1_inventory'")

	fmt.Println("\n== Production? =================================================")
	be := 0
	if eff.Config != nil {
		be = len(eff.Config.Security.APIKeys.Backend)
	}
	if be > 0 {
		fmt.Printf("- API keys: OK (%d)\n", be)
	} else if eff.Config != nil && eff.Config.Security.APIKeys.AllowUnauth {
		fmt.Println("- API keys: disabled (allow_unauth, keep the daemon on loopback)")
	} else {
		fmt.Println("- API keys: MISSING (required for module host access)")
	}
	if dbPath != "" {
		fmt.Printf("- Store path: %s\n", dbPath)
	} else {
		fmt.Println("- Store path: not set (use --db or HC_DB_PATH)")
	}

	fmt.Println("\n== Logs: =================================================")
}
