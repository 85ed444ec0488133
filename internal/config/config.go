// Package config resolves runtime settings for the sync CLI.
//
// Precedence, lowest first: built-in defaults, settings.yaml in the config
// directory, SSHMENUC_* environment variables, command-line flags bound by
// the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/disoardi/sshmenuc/internal/profile"
	"github.com/disoardi/sshmenuc/internal/vcs"
)

// EnvPrefix is prepended to every environment override, e.g.
// SSHMENUC_LOG_LEVEL.
const EnvPrefix = "SSHMENUC"

// Keys understood by Load.
const (
	KeyConfigDir          = "config_dir"
	KeyConfigFile         = "config_file"
	KeySyncFile           = "sync_file"
	KeyContextsFile       = "contexts_file"
	KeyContextsDir        = "contexts_dir"
	KeyJournal            = "journal"
	KeyLogFile            = "log.file"
	KeyLogLevel           = "log.level"
	KeyLogMaxSize         = "log.max_size_mb"
	KeyLogMaxBackups      = "log.max_backups"
	KeyLogMaxAge          = "log.max_age_days"
	KeyPassphraseAttempts = "passphrase_attempts"
	KeyWatchDebounce      = "watch.debounce"
	KeyTimeoutProbe       = "git.timeout.probe"
	KeyTimeoutClone       = "git.timeout.clone"
	KeyTimeoutFetch       = "git.timeout.fetch"
	KeyTimeoutMerge       = "git.timeout.merge"
	KeyTimeoutCommit      = "git.timeout.commit"
	KeyTimeoutPush        = "git.timeout.push"
)

// Settings is the resolved configuration.
type Settings struct {
	ConfigDir    string
	ConfigFile   string
	SyncFile     string
	ContextsFile string
	ContextsDir  string
	Journal      string

	LogFile       string
	LogLevel      string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	PassphraseAttempts int
	WatchDebounce      time.Duration
	Timeouts           vcs.Timeouts
}

// Paths returns the profile store locations.
func (s Settings) Paths() profile.Paths {
	return profile.Paths{
		ConfigFile:   s.ConfigFile,
		SyncFile:     s.SyncFile,
		ContextsFile: s.ContextsFile,
		ContextsDir:  s.ContextsDir,
	}
}

// DefaultConfigDir is ~/.config/sshmenuc.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "sshmenuc")
	}
	return filepath.Join(home, ".config", "sshmenuc")
}

// New returns a viper instance with defaults and environment binding set up.
// Callers bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := vcs.DefaultTimeouts()
	v.SetDefault(KeyConfigDir, DefaultConfigDir())
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogMaxSize, 5)
	v.SetDefault(KeyLogMaxBackups, 3)
	v.SetDefault(KeyLogMaxAge, 30)
	v.SetDefault(KeyPassphraseAttempts, 3)
	v.SetDefault(KeyWatchDebounce, 500*time.Millisecond)
	v.SetDefault(KeyTimeoutProbe, d.Probe)
	v.SetDefault(KeyTimeoutClone, d.Clone)
	v.SetDefault(KeyTimeoutFetch, d.Fetch)
	v.SetDefault(KeyTimeoutMerge, d.Merge)
	v.SetDefault(KeyTimeoutCommit, d.Commit)
	v.SetDefault(KeyTimeoutPush, d.Push)
	return v
}

// Load reads settings.yaml from the config directory, if present, and
// resolves every path relative to that directory unless set explicitly.
func Load(v *viper.Viper) (Settings, error) {
	dir := profile.ExpandHome(v.GetString(KeyConfigDir))

	v.SetConfigName("settings")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
	}

	path := func(key, def string) string {
		if p := v.GetString(key); p != "" {
			return profile.ExpandHome(p)
		}
		return filepath.Join(dir, def)
	}

	s := Settings{
		ConfigDir:    dir,
		ConfigFile:   path(KeyConfigFile, "config.json"),
		SyncFile:     path(KeySyncFile, "sync.json"),
		ContextsFile: path(KeyContextsFile, "contexts.json"),
		ContextsDir:  path(KeyContextsDir, "contexts"),
		Journal:      path(KeyJournal, "sync.db"),
		LogFile:      path(KeyLogFile, filepath.Join("logs", "sync.log")),

		LogLevel:      v.GetString(KeyLogLevel),
		LogMaxSizeMB:  v.GetInt(KeyLogMaxSize),
		LogMaxBackups: v.GetInt(KeyLogMaxBackups),
		LogMaxAgeDays: v.GetInt(KeyLogMaxAge),

		PassphraseAttempts: v.GetInt(KeyPassphraseAttempts),
		WatchDebounce:      v.GetDuration(KeyWatchDebounce),
		Timeouts: vcs.Timeouts{
			Probe:  v.GetDuration(KeyTimeoutProbe),
			Clone:  v.GetDuration(KeyTimeoutClone),
			Fetch:  v.GetDuration(KeyTimeoutFetch),
			Merge:  v.GetDuration(KeyTimeoutMerge),
			Commit: v.GetDuration(KeyTimeoutCommit),
			Push:   v.GetDuration(KeyTimeoutPush),
		}.WithDefaults(),
	}
	if s.PassphraseAttempts < 1 {
		return Settings{}, fmt.Errorf("%s must be at least 1, got %d", KeyPassphraseAttempts, s.PassphraseAttempts)
	}
	if s.WatchDebounce < 0 {
		return Settings{}, fmt.Errorf("%s must not be negative", KeyWatchDebounce)
	}
	return s, nil
}
