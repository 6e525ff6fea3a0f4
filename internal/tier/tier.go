// Package tier implements the Path Resolver and Tier Reader: pure path
// construction over the four on-disk roles a layer can live under (primary,
// local, scratch, upload), and safe, contained access to the files under
// each.
//
// Every root is opened once, at process startup, as an [os.Root]. Stat,
// open, create, mkdir and remove go through that handle so that a resolved
// path can never walk outside its tier's directory. Renames do not: they
// call [os.Rename] on paths joined to [Root.Name].
package tier

import (
	"fmt"
	"os"
	"path"

	"github.com/larchio/larch"
)

// Kind names one of the four tier roles.
type Kind int

const (
	Primary Kind = iota
	Local
	Scratch
	Upload
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Primary:
		return "primary"
	case Local:
		return "local"
	case Scratch:
		return "scratch"
	case Upload:
		return "upload"
	default:
		return "unknown"
	}
}

// fanout reports whether a tier uses the 3-hex-prefix fan-out directory
// scheme. Scratch and upload are flat.
func (k Kind) fanout() bool {
	return k == Primary || k == Local
}

// suffix is appended to every layer's canonical name to form its on-disk
// filename.
const suffix = ".larch"

// Root is a tier's root directory, opened once and used for every
// subsequent filesystem operation on that tier.
type Root struct {
	kind Kind
	root *os.Root
}

// Open opens dir as a tier root of the given kind.
//
// The directory must already exist; Open does not create it.
func Open(kind Kind, dir string) (*Root, error) {
	r, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("tier: open %s root %q: %w", kind, dir, err)
	}
	return &Root{kind: kind, root: r}, nil
}

// Close releases the underlying directory handle.
func (r *Root) Close() error {
	return r.root.Close()
}

// Kind returns the tier role this Root represents.
func (r *Root) Kind() Kind { return r.kind }

// Name returns the directory path this Root was opened with, as passed to
// [Open], mirroring [os.File.Name]. It is absolute only if that path was.
func (r *Root) Name() string { return r.root.Name() }

// Resolve returns the path of name's file relative to r's root, following
// the fan-out rule: primary and local tiers nest under a 3-hex-character
// prefix directory; scratch is flat.
//
// Resolve panics if called on the upload tier, which has no deterministic
// per-layer path; see [Root.CreateTemp].
func (r *Root) Resolve(name larch.LayerName) string {
	filename := name.String() + suffix
	if r.kind.fanout() {
		return path.Join(name.Prefix(), filename)
	}
	if r.kind == Upload {
		panic("tier: Resolve called on the upload tier")
	}
	return filename
}

// EnsureFanoutDir creates name's fan-out parent directory if it doesn't
// already exist. It is a no-op on tiers that don't use fan-out.
func (r *Root) EnsureFanoutDir(name larch.LayerName) error {
	if !r.kind.fanout() {
		return nil
	}
	if err := r.root.Mkdir(name.Prefix(), 0o755); err != nil && !os.IsExist(err) {
		return fmt.Errorf("tier: create fan-out directory for %s tier: %w", r.kind, err)
	}
	return nil
}
