package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/leycm/vault/internal/filesys"
	"github.com/leycm/vault/pkg/format"
	"github.com/leycm/vault/pkg/tree"
	"github.com/leycm/vault/pkg/types"
)

const (
	// ResourceDir is the directory inside a resource fs.FS that seed files
	// are looked up in.
	ResourceDir = "vault"

	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644
)

// Factory loads, caches and saves the Stores of one directory.
type Factory struct {
	dir        string
	fs         filesys.FS
	resources  fs.FS
	logger     *zap.Logger
	types      *types.Registry
	atomicSave bool

	formats map[string]format.Adapter
	stores  map[string]*Store
	stats   counters
}

// New creates a Factory for dir, creating the directory if needed. JSON,
// YAML and TOML adapters are registered for their usual extensions.
func New(dir string, opts ...Opt) (*Factory, error) {
	f := &Factory{
		fs:      filesys.OS(),
		logger:  zap.NewNop(),
		formats: make(map[string]format.Adapter),
		stores:  make(map[string]*Store),
	}
	for _, o := range opts {
		o(f)
	}
	if f.types == nil {
		f.types = types.Default()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	f.dir = abs
	if err := f.fs.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", abs, err)
	}

	f.RegisterFormat(format.NewJSON(), "jsn", "json", "jason")
	f.RegisterFormat(format.NewYAML(), "yml", "yaml")
	f.RegisterFormat(format.NewTOML(), "tml", "toml")
	return f, nil
}

// Dir returns the absolute directory of f.
func (f *Factory) Dir() string {
	return f.dir
}

// Types returns the type registry shared by every Store of f.
func (f *Factory) Types() *types.Registry {
	return f.types
}

// Stats returns a snapshot of the factory's counters.
func (f *Factory) Stats() Stats {
	return f.stats.snapshot()
}

// RegisterFormat makes a handle files with the given extensions. Extensions
// are matched without the leading dot and ignoring case; a later
// registration replaces an earlier one.
func (f *Factory) RegisterFormat(a format.Adapter, exts ...string) {
	for _, ext := range exts {
		f.formats[normalizeExt(ext)] = a
	}
}

// Extensions returns the registered extensions in sorted order.
func (f *Factory) Extensions() []string {
	out := make([]string, 0, len(f.formats))
	for ext := range f.formats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// RegisterType registers the adapter used to convert values of type T for
// every Store of f.
func RegisterType[T any](f *Factory, a types.Adapter[T]) {
	types.Register[T](f.types, a)
}

// Format returns the adapter registered for the extension of file.
func (f *Factory) Format(file string) (format.Adapter, bool) {
	a, ok := f.formats[normalizeExt(filepath.Ext(file))]
	return a, ok
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Open returns the Store for name, relative to the factory directory.
func (f *Factory) Open(name string) (*Store, error) {
	return f.Create(filepath.Join(f.dir, name))
}

// Create returns the Store for file, loading it on first use. A missing file
// is seeded from the resources when one matches its base name, and created
// empty otherwise. A file whose extension has no format loads as an empty
// Store.
func (f *Factory) Create(file string) (*Store, error) {
	key, err := f.key(file)
	if err != nil {
		return nil, err
	}
	if s, ok := f.stores[key]; ok {
		f.stats.cacheHits.Inc()
		return s, nil
	}

	text, err := f.readOrSeed(key)
	if err != nil {
		return nil, err
	}

	data := tree.New()
	if a, ok := f.Format(key); ok {
		if data, err = a.Read(text); err != nil {
			return nil, fmt.Errorf("loading %s: %w", key, err)
		}
	} else {
		f.logger.Warn("no format registered, loading empty store",
			zap.String("file", key),
			zap.String("ext", filepath.Ext(key)))
	}

	s := &Store{factory: f, file: key, data: data}
	f.stores[key] = s
	f.stats.loads.Inc()
	f.logger.Debug("loaded store",
		zap.String("file", key),
		zap.Int("bytes", len(text)),
		zap.Int("keys", data.Len()))
	return s, nil
}

// Reload drops the cached Store for file and loads it again.
func (f *Factory) Reload(file string) (*Store, error) {
	key, err := f.key(file)
	if err != nil {
		return nil, err
	}
	delete(f.stores, key)
	f.stats.reloads.Inc()
	return f.Create(key)
}

// Save writes the cached Store for file, keeping the comments of the text
// currently on disk.
func (f *Factory) Save(file string) error {
	key, _, next, err := f.render(file)
	if err != nil {
		return err
	}

	if f.atomicSave {
		err = filesys.AtomicWrite(f.fs, key, []byte(next), filePerm)
	} else {
		err = f.fs.WriteFile(key, []byte(next), filePerm)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}

	f.stats.saves.Inc()
	f.logger.Debug("saved store",
		zap.String("file", key),
		zap.Int("bytes", len(next)),
		zap.Bool("atomic", f.atomicSave))
	return nil
}

// SaveAll saves every cached Store. It attempts all of them and returns the
// combined errors.
func (f *Factory) SaveAll() error {
	keys := make([]string, 0, len(f.stores))
	for k := range f.stores {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	for _, k := range keys {
		err = multierr.Append(err, f.Save(k))
	}
	return err
}

// Loaded returns the files of all cached Stores in sorted order.
func (f *Factory) Loaded() []string {
	out := make([]string, 0, len(f.stores))
	for k := range f.stores {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// render produces the text Save would write for file, along with the text
// currently on disk.
func (f *Factory) render(file string) (key, previous, next string, err error) {
	if key, err = f.key(file); err != nil {
		return "", "", "", err
	}
	s, ok := f.stores[key]
	if !ok {
		return "", "", "", fmt.Errorf("%w: %s", ErrNotLoaded, key)
	}
	a, ok := f.Format(key)
	if !ok {
		return "", "", "", fmt.Errorf("%w: %s", ErrNoFormat, key)
	}

	if previous, err = f.readExisting(key); err != nil {
		return "", "", "", err
	}
	if next, err = a.Write(previous, s.data); err != nil {
		return "", "", "", fmt.Errorf("encoding %s: %w", key, err)
	}
	return key, previous, next, nil
}

func (f *Factory) key(file string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", file, err)
	}
	return abs, nil
}

// readExisting returns the text of key, or "" when it does not exist.
func (f *Factory) readExisting(key string) (string, error) {
	ok, err := filesys.Exists(f.fs, key)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	text, err := filesys.ReadText(f.fs, key)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return text, nil
}

func (f *Factory) readOrSeed(key string) (string, error) {
	ok, err := filesys.Exists(f.fs, key)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", key, err)
	}
	if ok {
		text, err := filesys.ReadText(f.fs, key)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", key, err)
		}
		return text, nil
	}

	seed, err := f.resource(filepath.Base(key))
	if err != nil {
		return "", err
	}
	if err := f.fs.MkdirAll(filepath.Dir(key), dirPerm); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", key, err)
	}
	if err := f.fs.WriteFile(key, seed, filePerm); err != nil {
		return "", fmt.Errorf("creating %s: %w", key, err)
	}
	if seed != nil {
		f.logger.Info("seeded file from resources", zap.String("file", key))
	}

	text, err := filesys.DecodeText(seed)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", key, err)
	}
	return text, nil
}

// resource returns the bundled seed for base, or nil when there is none.
func (f *Factory) resource(base string) ([]byte, error) {
	if f.resources == nil {
		return nil, nil
	}
	b, err := fs.ReadFile(f.resources, path.Join(ResourceDir, base))
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	default:
		return nil, fmt.Errorf("reading resource %s: %w", base, err)
	}
}
