package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BranchlessMode controls how module discovery resolves the legacy
// per-branch screen schema against the newer branchless one.
type BranchlessMode string

const (
	BranchlessOff       BranchlessMode = "off"
	BranchlessPreferNew BranchlessMode = "prefer_new"
	BranchlessPreferOld BranchlessMode = "prefer_old"
)

// ParseBranchlessMode normalizes a mode string; unknown values degrade to
// off so a typo cannot hide catalogs.
func ParseBranchlessMode(s string) BranchlessMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(BranchlessPreferNew):
		return BranchlessPreferNew
	case string(BranchlessPreferOld):
		return BranchlessPreferOld
	default:
		return BranchlessOff
	}
}

// Config is the on-disk YAML configuration shared by the daemon and the
// console host. Zero values are usable; Normalize fills defaults.
type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		// Engine selects the HTTP engine for the daemon: nethttp | fasthttp.
		Engine string `yaml:"engine"`
	} `yaml:"server"`

	Storage struct {
		DBPath string `yaml:"db_path"`
		// DaemonURL switches the process to the remote backend when set.
		DaemonURL string `yaml:"daemon_url"`
	} `yaml:"storage"`

	Security struct {
		APIKeys struct {
			Backend     []string `yaml:"backend"`
			AllowUnauth bool     `yaml:"allow_unauth"`
		} `yaml:"api_keys"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`

	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		// DataDir holds secret.key, device_id.txt and the state tree.
		DataDir string `yaml:"data_dir"`
		// UserID identifies the signed-in operator for invocation routing;
		// normally set at runtime after login, configurable for module
		// processes launched headless.
		UserID string `yaml:"user_id"`
	} `yaml:"app"`

	Indexer struct {
		SourceRoot string `yaml:"source_root"`
		Glob       string `yaml:"glob"`
		// Pattern overrides the screen-declaration regex. The default is
		// deliberately permissive; false positives are tolerated and
		// counted.
		Pattern string `yaml:"pattern"`
		// ReindexCron re-runs the staleness check on development branches.
		// Empty disables the scheduler.
		ReindexCron string `yaml:"reindex_cron"`
	} `yaml:"indexer"`

	Discovery struct {
		// BranchlessMode: off | prefer_new | prefer_old.
		BranchlessMode string `yaml:"branchless_mode"`
		// Dedupe: id_branch (default, shows every branch) or id (current
		// branch wins, older branches hidden).
		Dedupe string `yaml:"dedupe"`
	} `yaml:"discovery"`

	Invocation struct {
		TTL Duration `yaml:"ttl"`
	} `yaml:"invocation"`

	SSO struct {
		SessionTopic string `yaml:"session_topic"`
	} `yaml:"sso"`

	MQTT struct {
		Broker   string `yaml:"broker"`
		Port     int    `yaml:"port"`
		Enabled  bool   `yaml:"enabled"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"mqtt"`

	Launcher struct {
		// ModulesDir holds one executable per satellite module.
		ModulesDir string `yaml:"modules_dir"`
	} `yaml:"launcher"`

	Router struct {
		// ModuleMap resolves legacy application_name task fields.
		ModuleMap map[string]string `yaml:"module_map"`
	} `yaml:"router"`
}

// Addr returns the daemon listen address in host:port form.
func (c *Config) Addr() string {
	if c.Server.Address == "" && c.Server.Port == 0 {
		return ""
	}
	host := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 7421
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Normalize fills defaults.
func (c *Config) Normalize() {
	if c.App.Name == "" {
		c.App.Name = "hangarcore"
	}
	if c.App.DataDir == "" {
		c.App.DataDir = "./.hangarcore"
	}
	if c.Indexer.SourceRoot == "" {
		c.Indexer.SourceRoot = "./ui"
	}
	if c.Indexer.Glob == "" {
		c.Indexer.Glob = "*.go"
	}
	if c.Invocation.TTL.Duration() <= 0 {
		c.Invocation.TTL = Duration(120 * time.Second)
	}
	if c.SSO.SessionTopic == "" {
		c.SSO.SessionTopic = "hangarcore/sso/sessions"
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.Server.Engine == "" {
		c.Server.Engine = "nethttp"
	}
}

// Duration supports YAML parsing from strings like "90s" or plain numbers
// (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
