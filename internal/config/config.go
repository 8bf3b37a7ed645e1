package config

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leycm/vault/internal/filesys"
	"github.com/leycm/vault/pkg/tree"
	"github.com/leycm/vault/pkg/types"
	"github.com/leycm/vault/pkg/vault"
)

var (
	// ErrInvalidConfig is returned when the settings are invalid.
	ErrInvalidConfig = errors.New("invalid settings")
)

const (
	// DefaultSettingsPath is the settings file, relative to the home directory.
	DefaultSettingsPath = ".vault/settings.yaml"
	// DefaultDir is the directory file arguments are resolved against.
	DefaultDir = "."
	// DefaultLogLevel is the level the CLI logs at.
	DefaultLogLevel = "warn"
)

//go:embed resources
var embedded embed.FS

// Settings holds the CLI settings.
type Settings struct {
	Dir        string `config:"dir"`
	LogLevel   string `config:"log_level"`
	AtomicSave bool   `config:"atomic_save"`
}

// Provider defines the interface for loading and storing settings.
type Provider interface {
	Load() (*Settings, error)
	Save(*Settings) error
}

// FSProvider loads settings from a file through a vault Factory.
type FSProvider struct {
	fs     filesys.FS
	path   string
	logger *zap.Logger
}

var _ Provider = (*FSProvider)(nil)

// New returns a provider for ~/.vault/settings.yaml on the local disk. If
// the home directory cannot be determined the current directory is used.
func New(logger *zap.Logger) Provider {
	home, err := os.UserHomeDir()
	if err != nil {
		logger.Warn("could not determine home directory", zap.Error(err))
		home = ""
	}
	return NewWithPath(filesys.OS(), filepath.Join(home, DefaultSettingsPath), logger)
}

// NewWithPath returns a provider for the settings file at path.
func NewWithPath(fsys filesys.FS, path string, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FSProvider{fs: fsys, path: path, logger: logger}
}

// Default returns the settings used for keys the file does not set.
func Default() *Settings {
	return &Settings{
		Dir:      DefaultDir,
		LogLevel: DefaultLogLevel,
	}
}

// Load reads the settings file. A missing file is created from the bundled
// commented defaults.
func (p *FSProvider) Load() (*Settings, error) {
	store, err := p.open()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.Dir = vault.GetOr(store, "dir", cfg.Dir)
	cfg.LogLevel = vault.GetOr(store, "log_level", cfg.LogLevel)
	cfg.AtomicSave = vault.GetOr(store, "atomic_save", cfg.AtomicSave)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Save writes cfg to the settings file, keeping its comments.
func (p *FSProvider) Save(cfg *Settings) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	store, err := p.open()
	if err != nil {
		return err
	}
	raw, ok := types.Encode(store.Types(), *cfg).(*tree.Map)
	if !ok {
		return fmt.Errorf("%w: cannot encode settings", ErrInvalidConfig)
	}
	raw.Range(func(key string, v any) bool {
		store.SetRaw(key, v)
		return true
	})
	return store.Save()
}

func (p *FSProvider) open() (*vault.Store, error) {
	res, err := fs.Sub(embedded, "resources")
	if err != nil {
		return nil, err
	}
	f, err := vault.New(filepath.Dir(p.path),
		vault.WithFS(p.fs),
		vault.WithResources(res),
		vault.WithLogger(p.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("opening settings directory: %w", err)
	}
	vault.RegisterType[Settings](f, types.Struct[Settings]())

	store, err := f.Create(p.path)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return store, nil
}

// Validate checks every setting and reports all problems at once.
func (s *Settings) Validate() error {
	var err error
	if strings.TrimSpace(s.Dir) == "" {
		err = multierr.Append(err, errors.New("dir cannot be empty"))
	}
	if _, lerr := zapcore.ParseLevel(s.LogLevel); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log_level %q is not a level", s.LogLevel))
	}
	return err
}

// ResolveDir returns Dir with a leading "~" expanded to the home directory.
func (s *Settings) ResolveDir() string {
	if s.Dir == "~" || strings.HasPrefix(s.Dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(s.Dir, "~"))
		}
	}
	return s.Dir
}
