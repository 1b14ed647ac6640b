package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// EffectiveConfigResult is the merged configuration the process runs with,
// plus the source that won for addr/db resolution.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", or "env"
}

// ParseCommandFlags parses the shared command-line flags.
func ParseCommandFlags() Flags {
	addrPtr := flag.String("addr", ":7421", "daemon HTTP listen address")
	dbPtr := flag.String("db", "./.database", "pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: set}
}

// ResolveConfigPath picks the config file path: an explicit flag wins, then
// HC_CONFIG, then the flag default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet {
		return flagVal
	}
	if v := strings.TrimSpace(os.Getenv("HC_CONFIG")); v != "" {
		return v
	}
	return flagVal
}

// ApplyEnv overlays HC_* (and the MQTT credential) environment variables
// onto cfg and reports whether any were used.
func ApplyEnv(cfg *Config) bool {
	used := false
	setStr := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			used = true
			*dst = v
		}
	}

	if v := os.Getenv("HC_ADDR"); v != "" {
		used = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	setStr("HC_DB_PATH", &cfg.Storage.DBPath)
	setStr("HC_DAEMON_URL", &cfg.Storage.DaemonURL)
	setStr("HC_DATA_DIR", &cfg.App.DataDir)
	setStr("HC_USER_ID", &cfg.App.UserID)
	setStr("HC_SOURCE_ROOT", &cfg.Indexer.SourceRoot)
	setStr("HC_MODULES_DIR", &cfg.Launcher.ModulesDir)
	setStr("HC_BRANCHLESS_MODE", &cfg.Discovery.BranchlessMode)
	setStr("HC_SESSION_TOPIC", &cfg.SSO.SessionTopic)
	setStr("HC_SERVER_ENGINE", &cfg.Server.Engine)

	if v := strings.TrimSpace(os.Getenv("HC_INVOCATION_TTL")); v != "" {
		used = true
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Invocation.TTL = Duration(d)
		} else if secs, err := strconv.Atoi(v); err == nil {
			cfg.Invocation.TTL = Duration(time.Duration(secs) * time.Second)
		}
	}
	if v := strings.TrimSpace(os.Getenv("HC_API_KEYS")); v != "" {
		used = true
		cfg.Security.APIKeys.Backend = cfg.Security.APIKeys.Backend[:0]
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.Security.APIKeys.Backend = append(cfg.Security.APIKeys.Backend, s)
			}
		}
	}

	setStr("HC_MQTT_BROKER", &cfg.MQTT.Broker)
	if v := strings.TrimSpace(os.Getenv("HC_MQTT_PORT")); v != "" {
		used = true
		if pi, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Port = pi
		}
	}
	if v := strings.TrimSpace(os.Getenv("HC_MQTT_ENABLED")); v != "" {
		used = true
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			cfg.MQTT.Enabled = true
		default:
			cfg.MQTT.Enabled = false
		}
	}
	// credential envs keep their historical names so broker provisioning
	// scripts keep working
	setStr("MQTT_USERNAME", &cfg.MQTT.Username)
	setStr("MQTT_PASSWORD", &cfg.MQTT.Password)

	return used
}

// LoadEffective merges config file, environment and flags (flag > env >
// file) into the effective configuration.
func LoadEffective(flags Flags) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return res, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
		if flags.Set["config"] {
			return res, fmt.Errorf("config file %s not found", cfgPath)
		}
		cfg = &Config{}
		res.Source = "env"
	} else {
		res.Source = "config"
	}

	if ApplyEnv(cfg) && res.Source != "config" {
		res.Source = "env"
	}

	if flags.Set["addr"] {
		res.Source = "flags"
	} else if a := cfg.Addr(); a != "" {
		flags.Addr = a
	}
	if flags.Set["db"] {
		res.Source = "flags"
	} else if p := strings.TrimSpace(cfg.Storage.DBPath); p != "" {
		flags.DB = p
	}

	cfg.Normalize()
	res.Config = cfg
	res.Addr = flags.Addr
	res.DBPath = flags.DB

	keys := map[string]struct{}{}
	for _, k := range cfg.Security.APIKeys.Backend {
		keys[k] = struct{}{}
	}
	SetRuntime(&RuntimeConfig{BackendKeys: keys})

	return res, nil
}
