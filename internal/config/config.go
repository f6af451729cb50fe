// Package config loads runtime and toolchain settings with Viper from AI_*
// environment variables, an optional YAML file and bound command-line
// flags.
//
// Keys are the lower-case variable names without the AI_ prefix, so
// AI_RUNTIME_PORT is "runtime_port" in a config file:
//
//	core_dir: ai/core
//	runtime_port: 7788
//	policy_allow_ops: "1001,1002"
//
// Precedence, highest first: flags, environment, config file, defaults.
// Numeric settings that do not parse fall back to their default and are
// then clamped to their range, so a bad value never aborts startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/aiir/internal/corpus"
	"github.com/roach88/aiir/internal/dispatch"
)

// EnvPrefix is prepended to every key to form its environment variable.
const EnvPrefix = "AI"

// Keys.
const (
	KeyConfigFile      = "config_file"
	KeyCoreDir         = "core_dir"
	KeyHost            = "runtime_host"
	KeyPort            = "runtime_port"
	KeyDBExecMode      = "db_exec_mode"
	KeyMaxReqBytes     = "max_req_bytes"
	KeyMaxBodyBytes    = "max_body_bytes"
	KeyIOTimeoutMS     = "io_timeout_ms"
	KeyRateLimitRPS    = "rate_limit_rps"
	KeyCBFailThreshold = "cb_fail_threshold"
	KeyCBCooldownSec   = "cb_cooldown_sec"
	KeyAllowDBExec     = "policy_allow_db_exec"
	KeyAllowOps        = "policy_allow_ops"
	KeyWALPath         = "wal_path"
	KeySnapshotPath    = "snapshot_path"
	KeyDriftCheckEvery = "drift_check_every"
	KeyMaxFilesTotal   = "max_files_total"
	KeyMaxFilesPerRepo = "max_files_per_repo"
	KeyMaxFileBytes    = "max_file_bytes"
	KeyPreviewBytes    = "preview_bytes"
	KeyMaxTokens       = "max_tokens"
	KeyMaxAdaptBytes   = "max_adapt_bytes"
)

// Defaults.
const (
	DefaultCoreDir         = "ai/core"
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 7788
	DefaultDBExecMode      = dispatch.ModeDryRun
	DefaultWALPath         = "ai/state/ai.wal"
	DefaultSnapshotPath    = "ai/state/snapshot.json"
	DefaultDriftCheckEvery = 200
	MaxDriftCheckEvery     = 1000000

	// HardMaxReqBytes is the ceiling of the request cap.
	HardMaxReqBytes = 1 << 20
)

// Config is the resolved configuration.
type Config struct {
	CoreDir    string
	Host       string
	Port       int
	DBExecMode string

	MaxReqBytes     int
	MaxBodyBytes    int
	IOTimeout       time.Duration
	RateLimitRPS    int
	CBFailThreshold int
	CBCooldown      time.Duration

	Policy dispatch.StaticPolicy

	WALPath         string
	SnapshotPath    string
	DriftCheckEvery int

	Limits corpus.Limits
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewViper returns a Viper instance reading AI_* variables. When
// configFile is empty, AI_CONFIG_FILE names the file; with neither set no
// file is read.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = v.GetString(KeyConfigFile)
	}
	if configFile == "" {
		return v, nil
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configFile, err)
	}
	return v, nil
}

// Load resolves a Config from v.
func Load(v *viper.Viper) *Config {
	cfg := &Config{
		CoreDir:      stringOr(v, KeyCoreDir, DefaultCoreDir),
		Host:         stringOr(v, KeyHost, DefaultHost),
		Port:         port(v.GetString(KeyPort)),
		DBExecMode:   stringOr(v, KeyDBExecMode, DefaultDBExecMode),
		WALPath:      stringOr(v, KeyWALPath, DefaultWALPath),
		SnapshotPath: stringOr(v, KeySnapshotPath, DefaultSnapshotPath),
		Policy:       ParsePolicy(v.GetString(KeyAllowDBExec), v.GetString(KeyAllowOps)),
	}

	cfg.MaxReqBytes = Size(v.GetString(KeyMaxReqBytes), 262144, 4096, HardMaxReqBytes)
	cfg.MaxBodyBytes = Size(v.GetString(KeyMaxBodyBytes), 65536, 1024, cfg.MaxReqBytes)
	cfg.IOTimeout = time.Duration(Size(v.GetString(KeyIOTimeoutMS), 1500, 100, 60000)) * time.Millisecond
	cfg.RateLimitRPS = Size(v.GetString(KeyRateLimitRPS), 60, 1, 100000)
	cfg.CBFailThreshold = Size(v.GetString(KeyCBFailThreshold), 20, 1, 100000)
	cfg.CBCooldown = time.Duration(Size(v.GetString(KeyCBCooldownSec), 15, 1, 3600)) * time.Second
	cfg.DriftCheckEvery = driftEvery(v.GetString(KeyDriftCheckEvery))

	def := corpus.DefaultLimits()
	const maxLimit = 1<<31 - 1
	cfg.Limits = corpus.Limits{
		MaxFilesTotal:   Size(v.GetString(KeyMaxFilesTotal), def.MaxFilesTotal, 0, maxLimit),
		MaxFilesPerRepo: Size(v.GetString(KeyMaxFilesPerRepo), def.MaxFilesPerRepo, 0, maxLimit),
		MaxFileBytes:    Size(v.GetString(KeyMaxFileBytes), def.MaxFileBytes, 0, maxLimit),
		PreviewBytes:    Size(v.GetString(KeyPreviewBytes), def.PreviewBytes, 0, maxLimit),
		MaxTokens:       Size(v.GetString(KeyMaxTokens), def.MaxTokens, 0, maxLimit),
		MaxAdaptBytes:   Size(v.GetString(KeyMaxAdaptBytes), def.MaxAdaptBytes, 0, maxLimit),
	}
	return cfg
}

// FromEnv loads the configuration from the process environment and
// AI_CONFIG_FILE.
func FromEnv() (*Config, error) {
	v, err := NewViper(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	return Load(v), nil
}

func stringOr(v *viper.Viper, key, def string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	return def
}

// Size parses s as a plain decimal. Empty or malformed input gives def;
// the result is clamped to [lo, hi]. Decimals too large for uint64
// saturate to hi.
func Size(s string, def, lo, hi int) int {
	n := def
	if s != "" {
		u, err := strconv.ParseUint(s, 10, 64)
		switch {
		case errors.Is(err, strconv.ErrRange):
			return hi
		case err == nil:
			if u > uint64(hi) {
				return hi
			}
			n = int(u)
		}
	}
	return min(max(n, lo), hi)
}

func port(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 || n > 65535 {
		return DefaultPort
	}
	return n
}

// driftEvery accepts a leading decimal in [1, MaxDriftCheckEvery];
// anything else gives the default.
func driftEvery(s string) int {
	u, ok := leadingUint(strings.TrimLeft(s, " \t"))
	if !ok || u == 0 || u > MaxDriftCheckEvery {
		return DefaultDriftCheckEvery
	}
	return int(u)
}
