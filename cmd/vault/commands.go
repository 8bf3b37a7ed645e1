package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/leycm/vault/internal/buildinfo"
	"github.com/leycm/vault/internal/config"
	"github.com/leycm/vault/internal/log"
	"github.com/leycm/vault/pkg/tree"
	"github.com/leycm/vault/pkg/types"
	"github.com/leycm/vault/pkg/vault"
)

var errNotSet = errors.New("path not set")

// app carries what every command needs.
type app struct {
	out      io.Writer
	provider config.Provider
	settings *config.Settings
	dir      string
	factory  *vault.Factory
}

func newRootCmd(provider config.Provider, settings *config.Settings, out io.Writer) *cobra.Command {
	a := &app{out: out, provider: provider, settings: settings}

	root := &cobra.Command{
		Use:   "vault",
		Short: "Comment-preserving configuration editor",
		Long: `vault reads and edits YAML, TOML and JSON configuration files.
Values are addressed with dotted paths such as server.http.port. Comments
next to keys and sections are kept when a file is rewritten.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&a.dir, "dir", settings.ResolveDir(), "directory relative file names resolve against")

	root.AddCommand(
		a.getCmd(),
		a.setCmd(),
		a.unsetCmd(),
		a.keysCmd(),
		a.fmtCmd(),
		a.settingsCmd(),
		versionCmd(out),
	)
	return root
}

// open loads file, creating the Factory on first use.
func (a *app) open(file string) (*vault.Store, error) {
	if a.factory == nil {
		opts := []vault.Opt{vault.WithLogger(log.Zap())}
		if a.settings.AtomicSave {
			opts = append(opts, vault.WithAtomicSave())
		}
		f, err := vault.New(a.dir, opts...)
		if err != nil {
			return nil, err
		}
		a.factory = f
	}

	if filepath.IsAbs(file) {
		return a.factory.Create(file)
	}
	return a.factory.Open(file)
}

// commit saves store, or prints what saving would change when dryRun is set.
func (a *app) commit(store *vault.Store, dryRun bool) error {
	if !dryRun {
		if err := store.Save(); err != nil {
			return err
		}
		log.Debug("saved", "file", store.File())
		return nil
	}

	diff, err := a.factory.Diff(store.File())
	if err != nil {
		return err
	}
	if diff == "" {
		color.New(color.FgYellow).Fprintln(a.out, "No changes.")
		return nil
	}
	for _, l := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(l, "+"):
			color.New(color.FgGreen).Fprint(a.out, l)
		case strings.HasPrefix(l, "-"):
			color.New(color.FgRed).Fprint(a.out, l)
		default:
			fmt.Fprint(a.out, l)
		}
	}
	return nil
}

// ---- get command ----
func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <file> <path>",
		Short:   "Print the value at a path",
		Long:    `Print the value at a path. Maps and lists are printed as JSON.`,
		Example: "vault get app.yml server.port",
		Args:    cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := a.open(args[0])
			if err != nil {
				return err
			}
			raw, ok := store.Raw(args[1])
			if !ok || raw == nil {
				return fmt.Errorf("%w: %s in %s", errNotSet, args[1], store.File())
			}
			out, err := render(store.Types(), raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)
			return nil
		},
	}
}

func render(reg *types.Registry, raw any) (string, error) {
	switch raw.(type) {
	case *tree.Map, []any:
		b, err := json.Marshal(raw)
		if err != nil {
			return "", err
		}
		return strings.TrimSuffix(string(pretty.Pretty(b)), "\n"), nil
	}
	s, _ := types.Decode[string](reg, raw)
	return s, nil
}

// ---- set command ----
func (a *app) setCmd() *cobra.Command {
	var (
		kind   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "set <file> <path> <value>",
		Short: "Set the value at a path and save",
		Long: `Set the value at a path and save the file. Intermediate sections are
created as needed. --type selects how the value is stored:

  string    stored as text (default)
  int       64-bit integer
  float     floating point number
  bool      true or false
  duration  Go duration syntax such as 30s or 1h30m`,
		Example: "vault set app.toml server.timeout 30s --type duration",
		Args:    cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := a.open(args[0])
			if err != nil {
				return err
			}
			if err := setTyped(store, args[1], args[2], kind); err != nil {
				return err
			}
			return a.commit(store, dryRun)
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", "string", "value type: string, int, float, bool or duration")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the change instead of saving")
	return cmd
}

func setTyped(v vault.View, path, value, kind string) error {
	switch kind {
	case "string":
		vault.Set(v, path, value)
	case "int":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int %q: %w", value, err)
		}
		vault.Set(v, path, n)
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", value, err)
		}
		vault.Set(v, path, f)
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool %q: %w", value, err)
		}
		vault.Set(v, path, b)
	case "duration":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		vault.Set(v, path, d)
	default:
		return fmt.Errorf("unknown type %q", kind)
	}
	return nil
}

// ---- unset command ----
func (a *app) unsetCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:     "unset <file> <path>",
		Short:   "Remove the key at a path and save",
		Example: "vault unset app.yml server.debug",
		Args:    cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := a.open(args[0])
			if err != nil {
				return err
			}
			if !store.Remove(args[1]) {
				return fmt.Errorf("%w: %s in %s", errNotSet, args[1], store.File())
			}
			return a.commit(store, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the change instead of saving")
	return cmd
}

// ---- keys command ----
func (a *app) keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "keys <file> [section]",
		Short:   "List the keys of a file or section",
		Example: "vault keys app.yml server",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := a.open(args[0])
			if err != nil {
				return err
			}
			sec := store.Section("")
			if len(args) == 2 {
				sec = store.Section(args[1])
			}
			m, ok := sec.Map()
			if !ok {
				return fmt.Errorf("%w: section %s in %s", errNotSet, sec.Path(), store.File())
			}
			if m.Len() == 0 {
				color.New(color.FgYellow).Fprintln(a.out, "No keys found.")
				return nil
			}

			table := tablewriter.NewWriter(a.out)
			table.SetHeader([]string{"Key", "Type", "Value"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			if !color.NoColor {
				table.SetHeaderColor(
					tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
					tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
					tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				)
				table.SetColumnColor(
					tablewriter.Colors{tablewriter.FgHiWhiteColor},
					tablewriter.Colors{tablewriter.FgGreenColor},
					tablewriter.Colors{tablewriter.FgYellowColor},
				)
			}

			m.Range(func(key string, v any) bool {
				table.Append([]string{key, kindOf(v), summarize(store.Types(), v)})
				return true
			})
			table.Render()
			return nil
		},
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case *tree.Map:
		return "section"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	case float32, float64:
		return "float"
	case time.Time:
		return "time"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	}
	return fmt.Sprintf("%T", v)
}

func summarize(reg *types.Registry, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case *tree.Map:
		return fmt.Sprintf("{%d keys}", x.Len())
	case []any:
		return fmt.Sprintf("[%d items]", len(x))
	}
	s, _ := types.Decode[string](reg, v)
	return s
}

// ---- fmt command ----
func (a *app) fmtCmd() *cobra.Command {
	var diff bool
	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Rewrite a file in canonical form",
		Long: `Load a file and write it back in the canonical layout of its format.
Comments are kept. With --diff the changes are printed instead.`,
		Example: "vault fmt app.yml --diff",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := a.open(args[0])
			if err != nil {
				return err
			}
			return a.commit(store, diff)
		},
	}
	cmd.Flags().BoolVar(&diff, "diff", false, "print the changes instead of writing")
	return cmd
}

// ---- settings command ----
func (a *app) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the CLI settings",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "dir: %s\n", a.settings.Dir)
			fmt.Fprintf(a.out, "log_level: %s\n", a.settings.LogLevel)
			fmt.Fprintf(a.out, "atomic_save: %t\n", a.settings.AtomicSave)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change one CLI setting",
		Example: "vault settings set log_level debug",
		Args:    cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			next := *a.settings
			switch args[0] {
			case "dir":
				next.Dir = args[1]
			case "log_level":
				next.LogLevel = args[1]
			case "atomic_save":
				b, err := strconv.ParseBool(args[1])
				if err != nil {
					return fmt.Errorf("invalid bool %q: %w", args[1], err)
				}
				next.AtomicSave = b
			default:
				return fmt.Errorf("unknown setting %q", args[0])
			}
			if err := a.provider.Save(&next); err != nil {
				return err
			}
			*a.settings = next
			color.New(color.FgGreen, color.Bold).Fprintf(a.out, "✓ %s = %s\n", args[0], args[1])
			return nil
		},
	})
	return cmd
}

// ---- version command ----
func versionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(out, "version: %s\n", buildinfo.Version)
			fmt.Fprintf(out, "commit: %s\n", buildinfo.Commit)
		},
	}
}
