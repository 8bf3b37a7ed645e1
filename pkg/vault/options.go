package vault

import (
	"io/fs"

	"go.uber.org/zap"

	"github.com/leycm/vault/internal/filesys"
	"github.com/leycm/vault/pkg/types"
)

// Opt is a function option for configuring a Factory.
type Opt func(f *Factory)

// WithFS replaces the local disk with fsys.
func WithFS(fsys filesys.FS) Opt {
	return func(f *Factory) {
		f.fs = fsys
	}
}

// WithResources sets the bundled files used to seed missing files. A file
// named "app.yml" is seeded from "vault/app.yml" inside res.
func WithResources(res fs.FS) Opt {
	return func(f *Factory) {
		f.resources = res
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Opt {
	return func(f *Factory) {
		f.logger = l
	}
}

// WithTypes replaces the default type registry.
func WithTypes(r *types.Registry) Opt {
	return func(f *Factory) {
		f.types = r
	}
}

// WithAtomicSave makes Save write to a temp file and rename it over the
// target instead of overwriting the target in place.
func WithAtomicSave() Opt {
	return func(f *Factory) {
		f.atomicSave = true
	}
}
