package filesys_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/leycm/vault/internal/filesys"
	"github.com/leycm/vault/internal/mocks"
)

type FilesysTestSuite struct {
	suite.Suite
	dir string
}

func (s *FilesysTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *FilesysTestSuite) TestDecodeText() {
	testCases := []struct {
		name string
		raw  []byte
		want string
	}{
		{name: "plain utf-8", raw: []byte("a: 1\n"), want: "a: 1\n"},
		{name: "utf-8 bom", raw: []byte("\xef\xbb\xbfa: 1\n"), want: "a: 1\n"},
		{name: "utf-16le bom", raw: []byte{0xff, 0xfe, 'a', 0, ':', 0, ' ', 0, '1', 0}, want: "a: 1"},
		{name: "utf-16be bom", raw: []byte{0xfe, 0xff, 0, 'k', 0, '=', 0, '2'}, want: "k=2"},
		{name: "empty", raw: nil, want: ""},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got, err := filesys.DecodeText(tc.raw)
			s.Require().NoError(err)
			s.Equal(tc.want, got)
		})
	}
}

func (s *FilesysTestSuite) TestExists() {
	fsys := filesys.OS()
	path := filepath.Join(s.dir, "present.yml")
	s.Require().NoError(os.WriteFile(path, []byte("x: 1\n"), 0o644))

	ok, err := filesys.Exists(fsys, path)
	s.NoError(err)
	s.True(ok)

	ok, err = filesys.Exists(fsys, filepath.Join(s.dir, "absent.yml"))
	s.NoError(err)
	s.False(ok)
}

func (s *FilesysTestSuite) TestReadText() {
	path := filepath.Join(s.dir, "bom.toml")
	s.Require().NoError(os.WriteFile(path, []byte("\xef\xbb\xbfname = 'x'\n"), 0o644))

	got, err := filesys.ReadText(filesys.OS(), path)
	s.Require().NoError(err)
	s.Equal("name = 'x'\n", got)
}

func (s *FilesysTestSuite) TestAtomicWrite() {
	// Given an existing file
	dst := filepath.Join(s.dir, "app.yml")
	s.Require().NoError(os.WriteFile(dst, []byte("old: true\n"), 0o600))

	// When it is replaced atomically
	err := filesys.AtomicWrite(filesys.OS(), dst, []byte("new: true\n"), 0o644)

	// Then the content and mode are updated and no temp file is left behind
	s.Require().NoError(err)
	b, err := os.ReadFile(dst)
	s.Require().NoError(err)
	s.Equal("new: true\n", string(b))

	info, err := os.Stat(dst)
	s.Require().NoError(err)
	s.Equal(os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *FilesysTestSuite) TestAtomicWriteCreateTempFails() {
	fsys := new(mocks.MockOsFS)
	boom := errors.New("read-only file system")
	fsys.On("CreateTemp", s.dir, ".vault-*").Return(nil, boom)

	err := filesys.AtomicWrite(fsys, filepath.Join(s.dir, "app.yml"), []byte("x"), 0o644)

	s.ErrorIs(err, boom)
	fsys.AssertNotCalled(s.T(), "Rename", mock.Anything, mock.Anything)
}

func (s *FilesysTestSuite) TestAtomicWriteRenameFailsRemovesTemp() {
	// Given a temp file that can be created but not renamed
	tmp, err := os.CreateTemp(s.dir, ".vault-*")
	s.Require().NoError(err)

	fsys := new(mocks.MockOsFS)
	boom := errors.New("cross-device link")
	fsys.On("CreateTemp", s.dir, ".vault-*").Return(tmp, nil)
	fsys.On("Chmod", tmp.Name(), os.FileMode(0o644)).Return(nil)
	fsys.On("Rename", tmp.Name(), filepath.Join(s.dir, "app.yml")).Return(boom)
	fsys.On("Remove", tmp.Name()).Return(nil)

	// When writing
	err = filesys.AtomicWrite(fsys, filepath.Join(s.dir, "app.yml"), []byte("x"), 0o644)

	// Then the rename error surfaces and the temp file is cleaned up
	s.ErrorIs(err, boom)
	fsys.AssertCalled(s.T(), "Remove", tmp.Name())
}

func TestFilesysSuite(t *testing.T) {
	suite.Run(t, new(FilesysTestSuite))
}
