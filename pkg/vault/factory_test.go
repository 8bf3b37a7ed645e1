package vault_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leycm/vault/internal/mocks"
	"github.com/leycm/vault/pkg/format"
	"github.com/leycm/vault/pkg/vault"
)

type FactoryTestSuite struct {
	suite.Suite
	dir     string
	factory *vault.Factory
}

func (s *FactoryTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	f, err := vault.New(s.dir)
	s.Require().NoError(err)
	s.factory = f
}

func (s *FactoryTestSuite) write(name, content string) string {
	p := filepath.Join(s.dir, name)
	s.Require().NoError(os.MkdirAll(filepath.Dir(p), 0o755))
	s.Require().NoError(os.WriteFile(p, []byte(content), 0o644))
	return p
}

func (s *FactoryTestSuite) read(name string) string {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	s.Require().NoError(err)
	return string(b)
}

func (s *FactoryTestSuite) TestNewCreatesDirectory() {
	dir := filepath.Join(s.dir, "nested", "conf")
	f, err := vault.New(dir)
	s.Require().NoError(err)

	s.Equal(dir, f.Dir())
	s.DirExists(dir)
	s.Equal([]string{"jason", "jsn", "json", "tml", "toml", "yaml", "yml"}, f.Extensions())
}

func (s *FactoryTestSuite) TestOpenIsMemoized() {
	a, err := s.factory.Open("app.yml")
	s.Require().NoError(err)
	b, err := s.factory.Create(filepath.Join(s.dir, "sub", "..", "app.yml"))
	s.Require().NoError(err)

	s.Same(a, b)
	s.Equal(vault.Stats{Loads: 1, CacheHits: 1}, s.factory.Stats())
	s.Equal([]string{filepath.Join(s.dir, "app.yml")}, s.factory.Loaded())
}

func (s *FactoryTestSuite) TestMissingFileIsCreated() {
	store, err := s.factory.Open(filepath.Join("deep", "dir", "new.toml"))
	s.Require().NoError(err)

	s.Empty(store.Keys())
	s.FileExists(filepath.Join(s.dir, "deep", "dir", "new.toml"))
	s.Empty(s.read(filepath.Join("deep", "dir", "new.toml")))
}

func (s *FactoryTestSuite) TestResourceSeeding() {
	// Given bundled resources holding a default file
	res := fstest.MapFS{
		"vault/defaults.yml": {Data: []byte("# shipped defaults\nretries: 3\n")},
	}
	f, err := vault.New(s.dir, vault.WithResources(res))
	s.Require().NoError(err)

	// When a missing file with that name is opened
	store, err := f.Open("defaults.yml")
	s.Require().NoError(err)

	// Then it is seeded from the resource
	retries, ok := vault.Get[int](store, "retries")
	s.True(ok)
	s.Equal(3, retries)
	s.Equal("# shipped defaults\nretries: 3\n", s.read("defaults.yml"))

	// And files without a resource are still created empty
	other, err := f.Open("other.yml")
	s.Require().NoError(err)
	s.Empty(other.Keys())
}

func (s *FactoryTestSuite) TestExtensionIsCaseInsensitive() {
	s.write("UPPER.YML", "a: 1\n")

	store, err := s.factory.Open("UPPER.YML")
	s.Require().NoError(err)
	a, ok := vault.Get[int](store, "a")
	s.True(ok)
	s.Equal(1, a)

	_, ok = s.factory.Format("x.Json")
	s.True(ok)
}

func (s *FactoryTestSuite) TestBOMFileLoads() {
	s.write("bom.json", "\xef\xbb\xbf{\"name\": \"bom\"}")

	store, err := s.factory.Open("bom.json")
	s.Require().NoError(err)
	name, ok := vault.Get[string](store, "name")
	s.True(ok)
	s.Equal("bom", name)
}

func (s *FactoryTestSuite) TestMalformedFileFails() {
	s.write("broken.yml", "a: [1, 2\n")

	_, err := s.factory.Open("broken.yml")
	s.Require().Error(err)
	s.True(errors.Is(err, format.ErrMalformed))
	s.Empty(s.factory.Loaded())
}

func (s *FactoryTestSuite) TestUnknownExtension() {
	// Given a logger that records warnings
	core, logs := observer.New(zap.WarnLevel)
	f, err := vault.New(s.dir, vault.WithLogger(zap.New(core)))
	s.Require().NoError(err)
	s.write("notes.txt", "whatever")

	// When a file without a registered format is opened
	store, err := f.Open("notes.txt")

	// Then it loads empty with a warning and cannot be saved
	s.Require().NoError(err)
	s.Empty(store.Keys())
	s.Equal(1, logs.FilterField(zap.String("file", filepath.Join(s.dir, "notes.txt"))).Len())

	err = store.Save()
	s.ErrorIs(err, vault.ErrNoFormat)
	s.Equal("whatever", s.read("notes.txt"))
}

func (s *FactoryTestSuite) TestSaveRequiresLoadedStore() {
	err := s.factory.Save(filepath.Join(s.dir, "never.yml"))
	s.ErrorIs(err, vault.ErrNotLoaded)
}

func (s *FactoryTestSuite) TestSavePreservesYAMLComments() {
	// Given a hand-written YAML file
	s.write("server.yml", "# server settings\nserver:\n  # listen port\n  port: 8080  # default\n  host: localhost\n")
	store, err := s.factory.Open("server.yml")
	s.Require().NoError(err)

	// When a value changes and the store is saved
	vault.Set(store, "server.port", 9090)
	s.Require().NoError(store.Save())

	// Then only the value changed on disk
	s.Equal("# server settings\nserver:\n  # listen port\n  port: 9090  # default\n  host: localhost\n", s.read("server.yml"))
	s.Equal(int64(1), s.factory.Stats().Saves)
}

func (s *FactoryTestSuite) TestSavePreservesTOMLComments() {
	s.write("app.toml", "# greet\nname = \"a\"\n")
	store, err := s.factory.Open("app.toml")
	s.Require().NoError(err)

	vault.Set(store, "name", "b")
	s.Require().NoError(store.Save())

	s.Equal("# greet\nname = 'b'\n", s.read("app.toml"))
}

func (s *FactoryTestSuite) TestSaveUsesCurrentDiskComments() {
	// Given a loaded store
	s.write("app.yml", "a: 1\n")
	store, err := s.factory.Open("app.yml")
	s.Require().NoError(err)

	// When someone adds a comment on disk before the save
	s.write("app.yml", "# added later\na: 1\n")
	vault.Set(store, "a", 2)
	s.Require().NoError(store.Save())

	// Then the new comment is kept
	s.Equal("# added later\na: 2\n", s.read("app.yml"))
}

func (s *FactoryTestSuite) TestReloadReplacesStore() {
	s.write("app.yml", "a: 1\n")
	old, err := s.factory.Open("app.yml")
	s.Require().NoError(err)

	s.write("app.yml", "a: 2\n")
	fresh, err := old.Reload()
	s.Require().NoError(err)

	s.NotSame(old, fresh)
	a, _ := vault.Get[int](fresh, "a")
	s.Equal(2, a)
	a, _ = vault.Get[int](old, "a")
	s.Equal(1, a)

	again, err := s.factory.Open("app.yml")
	s.Require().NoError(err)
	s.Same(fresh, again)
	s.Equal(vault.Stats{Loads: 2, Reloads: 1, CacheHits: 1}, s.factory.Stats())
}

func (s *FactoryTestSuite) TestSaveAll() {
	a, err := s.factory.Open("a.yml")
	s.Require().NoError(err)
	b, err := s.factory.Open("b.json")
	s.Require().NoError(err)
	_, err = s.factory.Open("c.unknown")
	s.Require().NoError(err)

	vault.Set(a, "x", 1)
	vault.Set(b, "y", "z")

	err = s.factory.SaveAll()
	s.ErrorIs(err, vault.ErrNoFormat)
	s.Equal("x: 1\n", s.read("a.yml"))
	s.Equal("{\n  \"y\": \"z\"\n}\n", s.read("b.json"))
}

func (s *FactoryTestSuite) TestDiff() {
	s.write("app.yml", "# keep\na: 1\nb: 2\n")
	store, err := s.factory.Open("app.yml")
	s.Require().NoError(err)

	out, err := s.factory.Diff(store.File())
	s.Require().NoError(err)
	s.Empty(out)

	vault.Set(store, "a", 5)
	out, err = s.factory.Diff(store.File())
	s.Require().NoError(err)
	s.Equal(" # keep\n-a: 1\n+a: 5\n b: 2\n", out)

	// Diff does not write
	s.Equal("# keep\na: 1\nb: 2\n", s.read("app.yml"))
}

func (s *FactoryTestSuite) TestAtomicSave() {
	f, err := vault.New(s.dir, vault.WithAtomicSave())
	s.Require().NoError(err)
	store, err := f.Open("atomic.yml")
	s.Require().NoError(err)

	vault.Set(store, "k", "v")
	s.Require().NoError(store.Save())

	s.Equal("k: v\n", s.read("atomic.yml"))
	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *FactoryTestSuite) TestRegisterFormat() {
	s.write("app.conf", "a: 1\n")
	s.factory.RegisterFormat(format.NewYAML(), ".CONF")

	store, err := s.factory.Open("app.conf")
	s.Require().NoError(err)
	a, ok := vault.Get[int](store, "a")
	s.True(ok)
	s.Equal(1, a)
}

func (s *FactoryTestSuite) TestWriteFailureIsWrapped() {
	// Given a file system that refuses writes to an existing file
	fsys := new(mocks.MockOsFS)
	boom := errors.New("disk full")
	dir := filepath.Join(s.dir, "mock")
	file := filepath.Join(dir, "app.yml")

	fsys.On("MkdirAll", dir, fs.FileMode(0o755)).Return(nil)
	fsys.ExpectFile(file, "a: 1\n")
	fsys.On("WriteFile", file, mock.Anything, fs.FileMode(0o644)).Return(boom)

	f, err := vault.New(dir, vault.WithFS(fsys))
	s.Require().NoError(err)
	store, err := f.Open("app.yml")
	s.Require().NoError(err)

	// When saving
	vault.Set(store, "a", 2)
	err = store.Save()

	// Then the error names the file and wraps the cause
	s.ErrorIs(err, boom)
	s.Contains(err.Error(), file)
	fsys.AssertCalled(s.T(), "WriteFile", file, []byte("a: 2\n"), fs.FileMode(0o644))
}

func (s *FactoryTestSuite) TestStatFailureStopsLoad() {
	fsys := new(mocks.MockOsFS)
	boom := errors.New("permission denied")
	dir := filepath.Join(s.dir, "mock")

	fsys.On("MkdirAll", dir, fs.FileMode(0o755)).Return(nil)
	fsys.On("Stat", filepath.Join(dir, "app.yml")).Return(nil, boom)

	f, err := vault.New(dir, vault.WithFS(fsys))
	s.Require().NoError(err)

	_, err = f.Open("app.yml")
	s.ErrorIs(err, boom)
	fsys.AssertNotCalled(s.T(), "WriteFile", mock.Anything, mock.Anything, mock.Anything)
}

func (s *FactoryTestSuite) TestMissingFileWithMockFS() {
	fsys := new(mocks.MockOsFS)
	dir := filepath.Join(s.dir, "mock")
	file := filepath.Join(dir, "fresh.toml")

	fsys.On("MkdirAll", dir, fs.FileMode(0o755)).Return(nil)
	fsys.ExpectMissing(file)
	fsys.On("WriteFile", file, []byte(nil), fs.FileMode(0o644)).Return(nil)

	f, err := vault.New(dir, vault.WithFS(fsys))
	s.Require().NoError(err)
	store, err := f.Open("fresh.toml")
	s.Require().NoError(err)

	s.Empty(store.Keys())
	fsys.AssertExpectations(s.T())
}

func TestFactorySuite(t *testing.T) {
	suite.Run(t, new(FactoryTestSuite))
}
