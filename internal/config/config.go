package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Config holds the settings shared by the alarm daemon and the helper CLI.
type Config struct {
	// ServerAddress is the gRPC address the daemon listens on and the helper dials.
	ServerAddress string `yaml:"server_addr"`
	// Timeout is the duration for RPC calls made by the helper.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum zap level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// StoreBackend selects where alarm records are kept: "file" or "sqlite".
	StoreBackend string `yaml:"store_backend"`
	// DataDir is the directory holding the alarm store.
	DataDir string `yaml:"data_dir"`
	// AutoStop is the ceiling after which a ringing alarm is silenced automatically.
	AutoStop time.Duration `yaml:"auto_stop"`
	// Player is the external program that plays a sound file passed as its last argument.
	Player string `yaml:"player"`
	// PlayerArgs are extra arguments placed before the sound path.
	PlayerArgs []string `yaml:"player_args"`
	// SoundsDir is the directory the symbolic sound names are resolved against.
	SoundsDir string `yaml:"sounds_dir"`
	// DefaultSound is used when an alarm is created without a sound.
	DefaultSound string `yaml:"default_sound"`
	// Notifier selects the notification surface: "desktop" or "none".
	Notifier string `yaml:"notifier"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-clock-settings.yaml"

	// DefaultServerAddress is a loopback address; the daemon is per-user.
	DefaultServerAddress = "127.0.0.1:50551"

	// DefaultTimeout is the default duration for RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultAutoStop is how long an alarm rings before it expires.
	DefaultAutoStop = 60 * time.Second

	// DefaultSound is the symbolic name of the sound used when none is chosen.
	DefaultSound = "Radial"

	// DefaultFilePermissions is the default file permission for config and data files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is used when the data directory has to be created.
	DefaultDirPermissions = 0o700

	// BackendFile keeps the alarm collection in a JSON file.
	BackendFile = "file"
	// BackendSQLite keeps the alarm collection in an SQLite key-value table.
	BackendSQLite = "sqlite"

	// NotifierDesktop raises native desktop notifications.
	NotifierDesktop = "desktop"
	// NotifierNone disables notifications.
	NotifierNone = "none"

	// darwinRingtonesDir holds the system ringtones on macOS.
	darwinRingtonesDir = "/System/Library/PrivateFrameworks/ToneLibrary.framework/Versions/A/Resources/Ringtones"
	// freedesktopSoundsDir holds the stock sound theme on Linux desktops.
	freedesktopSoundsDir = "/usr/share/sounds/freedesktop/stereo"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerAddressRequired is returned when server address is missing.
	errServerAddressRequired = errors.New("server address must be provided")
	// errUnknownBackend is returned for unsupported store backends.
	errUnknownBackend = errors.New("unknown store backend")
	// errUnknownNotifier is returned for unsupported notifier kinds.
	errUnknownNotifier = errors.New("unknown notifier")
	// errUnknownLogLevel is returned when the log level cannot be parsed.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns a configuration populated with platform defaults.
func Default() *Config {
	cfg := &Config{
		ServerAddress: DefaultServerAddress,
	}

	// Validate only fails on a bad address, and the default address is valid.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file at the default location is not an error: defaults are used instead.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills in defaults.
//
//nolint:cyclop // Each branch is a single independent default.
func Validate(settings *Config) error {
	if settings.ServerAddress == "" {
		return errServerAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	// Set default timeout if not specified.
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.AutoStop <= 0 {
		settings.AutoStop = DefaultAutoStop
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	switch strings.ToLower(settings.StoreBackend) {
	case "":
		settings.StoreBackend = BackendFile
	case BackendFile, BackendSQLite:
		settings.StoreBackend = strings.ToLower(settings.StoreBackend)
	default:
		return fmt.Errorf("%w: %q", errUnknownBackend, settings.StoreBackend)
	}

	switch strings.ToLower(settings.Notifier) {
	case "":
		settings.Notifier = NotifierDesktop
	case NotifierDesktop, NotifierNone:
		settings.Notifier = strings.ToLower(settings.Notifier)
	default:
		return fmt.Errorf("%w: %q", errUnknownNotifier, settings.Notifier)
	}

	if settings.DataDir == "" {
		settings.DataDir = defaultDataDir()
	}

	if settings.Player == "" {
		settings.Player = defaultPlayer()
	}

	if settings.SoundsDir == "" {
		settings.SoundsDir = defaultSoundsDir()
	}

	if settings.DefaultSound == "" {
		settings.DefaultSound = DefaultSound
	}

	return nil
}

// defaultDataDir returns ~/.alarm-clock, or a relative directory when the home is unknown.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".alarm-clock"
	}

	return filepath.Join(home, ".alarm-clock")
}

// defaultPlayer picks the stock command-line audio player of the platform.
func defaultPlayer() string {
	if runtime.GOOS == "darwin" {
		return "afplay"
	}

	return "paplay"
}

func defaultSoundsDir() string {
	if runtime.GOOS == "darwin" {
		return darwinRingtonesDir
	}

	return freedesktopSoundsDir
}
