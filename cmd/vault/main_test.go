package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/suite"

	"github.com/leycm/vault/internal/buildinfo"
	"github.com/leycm/vault/internal/config"
	"github.com/leycm/vault/internal/filesys"
)

type CLITestSuite struct {
	suite.Suite
	dir      string
	out      *bytes.Buffer
	settings *config.Settings
	provider config.Provider
}

func (s *CLITestSuite) SetupTest() {
	color.NoColor = true
	s.dir = s.T().TempDir()
	s.out = new(bytes.Buffer)
	s.settings = &config.Settings{Dir: s.dir, LogLevel: "warn"}
	s.provider = config.NewWithPath(filesys.OS(), filepath.Join(s.T().TempDir(), "settings.yaml"), nil)
}

func (s *CLITestSuite) run(args ...string) error {
	s.out.Reset()
	root := newRootCmd(s.provider, s.settings, s.out)
	root.SetArgs(args)
	return root.Execute()
}

func (s *CLITestSuite) write(name, content string) {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, name), []byte(content), 0o644))
}

func (s *CLITestSuite) read(name string) string {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	s.Require().NoError(err)
	return string(b)
}

func (s *CLITestSuite) TestSetThenGet() {
	// When a typed value is set
	s.Require().NoError(s.run("set", "app.yml", "server.port", "8080", "--type", "int"))

	// Then it is saved and can be read back
	s.Equal("server:\n  port: 8080\n", s.read("app.yml"))

	s.Require().NoError(s.run("get", "app.yml", "server.port"))
	s.Equal("8080\n", s.out.String())

	s.Require().NoError(s.run("get", "app.yml", "server"))
	s.Equal("{\n  \"port\": 8080\n}\n", s.out.String())
}

func (s *CLITestSuite) TestSetTypes() {
	testCases := []struct {
		name  string
		kind  string
		value string
		want  string
	}{
		{name: "string", kind: "string", value: "8080", want: "v: \"8080\"\n"},
		{name: "float", kind: "float", value: "2.5", want: "v: 2.5\n"},
		{name: "bool", kind: "bool", value: "true", want: "v: true\n"},
		{name: "duration", kind: "duration", value: "90s", want: "v: 1m30s\n"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Require().NoError(s.run("set", tc.name+".yml", "v", tc.value, "--type", tc.kind))
			s.Equal(tc.want, s.read(tc.name+".yml"))
		})
	}

	s.Error(s.run("set", "bad.yml", "v", "x", "--type", "int"))
	s.Error(s.run("set", "bad.yml", "v", "x", "--type", "complex"))
}

func (s *CLITestSuite) TestGetMissing() {
	s.write("app.yml", "a: 1\n")

	err := s.run("get", "app.yml", "b")

	s.ErrorIs(err, errNotSet)
}

func (s *CLITestSuite) TestDryRunDoesNotWrite() {
	s.write("app.yml", "# keep\na: 1\n")

	s.Require().NoError(s.run("set", "app.yml", "a", "2", "--type", "int", "--dry-run"))

	s.Equal(" # keep\n-a: 1\n+a: 2\n", s.out.String())
	s.Equal("# keep\na: 1\n", s.read("app.yml"))
}

func (s *CLITestSuite) TestUnsetKeepsOtherComments() {
	s.write("app.toml", "# the name\nname = 'x'\n# drop me\nold = 1\n")

	s.Require().NoError(s.run("unset", "app.toml", "old"))
	s.Equal("# the name\nname = 'x'\n", s.read("app.toml"))

	s.ErrorIs(s.run("unset", "app.toml", "old"), errNotSet)
}

func (s *CLITestSuite) TestKeys() {
	s.write("app.yml", "server:\n  host: localhost\n  port: 80\n  tags: [a, b]\n")

	s.Require().NoError(s.run("keys", "app.yml", "server"))
	out := s.out.String()
	s.Contains(out, "localhost")
	s.Contains(out, "int")
	s.Contains(out, "[2 items]")

	s.ErrorIs(s.run("keys", "app.yml", "server.host"), errNotSet)
}

func (s *CLITestSuite) TestFmt() {
	s.write("app.yml", "# top\na:   1\n")

	s.Require().NoError(s.run("fmt", "app.yml", "--diff"))
	s.Equal(" # top\n-a:   1\n+a: 1\n", s.out.String())

	s.Require().NoError(s.run("fmt", "app.yml"))
	s.Equal("# top\na: 1\n", s.read("app.yml"))

	s.Require().NoError(s.run("fmt", "app.yml", "--diff"))
	s.Equal("No changes.\n", s.out.String())
}

func (s *CLITestSuite) TestAbsolutePath() {
	other := filepath.Join(s.T().TempDir(), "other.json")

	s.Require().NoError(s.run("set", other, "k", "v"))

	b, err := os.ReadFile(other)
	s.Require().NoError(err)
	s.Equal("{\n  \"k\": \"v\"\n}\n", string(b))
}

func (s *CLITestSuite) TestSettings() {
	s.Require().NoError(s.run("settings", "set", "log_level", "debug"))
	s.Equal("debug", s.settings.LogLevel)

	loaded, err := s.provider.Load()
	s.Require().NoError(err)
	s.Equal("debug", loaded.LogLevel)

	s.Require().NoError(s.run("settings"))
	s.Contains(s.out.String(), "log_level: debug\n")

	s.Error(s.run("settings", "set", "log_level", "loud"))
	s.Error(s.run("settings", "set", "colour", "red"))
	s.Equal("debug", s.settings.LogLevel)
}

func (s *CLITestSuite) TestVersion() {
	s.Require().NoError(s.run("version"))
	s.Contains(s.out.String(), buildinfo.Version)
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}
