// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	shutil "github.com/termie/go-shutil"

	"github.com/dam0vm3nt/pub"
)

// pathDescription is a local-path source's opaque description: a
// filesystem path, resolved to its absolute, symlink-free form so that
// "./foo" and "/abs/foo" compare equal when they name the same directory.
type pathDescription struct {
	Abs string
}

// Path is the "path" source: packages that live in a directory on disk,
// typically a sibling checkout used during development. It has exactly one
// version (the content currently on disk) and is the one Source the
// specification grants a Materialize that actually does work, since there
// is nothing to fetch — only to copy into the resolver's working area.
type Path struct {
	registry *pub.SourceRegistry
}

// NewPath constructs a Path source.
func NewPath() *Path { return &Path{} }

func (p *Path) Name() string { return "path" }

func (p *Path) SetRegistry(reg *pub.SourceRegistry) { p.registry = reg }

func (p *Path) ParseDescription(raw interface{}) (interface{}, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.RawMessage:
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, errors.Wrap(err, "parsing path description")
		}
	default:
		return nil, errors.New("path description must be a filesystem path string")
	}

	abs, err := filepath.Abs(s)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving path %q", s)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return pathDescription{Abs: abs}, nil
}

func (p *Path) DescriptionsEqual(a, b interface{}) bool {
	da, ok1 := a.(pathDescription)
	db, ok2 := b.(pathDescription)
	return ok1 && ok2 && da.Abs == db.Abs
}

func (p *Path) HashDescription(desc interface{}) uint64 {
	d, ok := desc.(pathDescription)
	if !ok {
		return 0
	}
	return fnv64(d.Abs)
}

// ListVersions returns a single Id: a path dependency has exactly one
// available version, the content on disk right now.
func (p *Path) ListVersions(ctx context.Context, ref pub.Ref) ([]pub.Id, error) {
	d, ok := ref.Description().(pathDescription)
	if !ok {
		return nil, errors.Errorf("path: ref %s has no path description", ref.Name())
	}
	if _, err := os.Stat(d.Abs); err != nil {
		return nil, errors.Wrapf(err, "path dependency %s", d.Abs)
	}
	return []pub.Id{pub.NewId(ref, pub.NewVersion("local"))}, nil
}

func (p *Path) DescribeDependencies(ctx context.Context, id pub.Id) (pub.Manifest, error) {
	d, ok := id.Description().(pathDescription)
	if !ok {
		return nil, errors.Errorf("path: id %s has no path description", id.Name())
	}

	manifestPath := filepath.Join(d.Abs, "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest at %s", manifestPath)
	}
	return pub.ParseManifest(data, p.registry)
}

// Materialize copies the on-disk tree at id's path into dir, using
// go-shutil for a recursive copy. godirwalk walks the tree first and counts
// its files; the count is not reported to the caller.
func (p *Path) Materialize(ctx context.Context, id pub.Id, dir string) error {
	d, ok := id.Description().(pathDescription)
	if !ok {
		return errors.Errorf("path: id %s has no path description", id.Name())
	}

	var fileCount int
	err := godirwalk.Walk(d.Abs, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				fileCount++
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return errors.Wrapf(err, "walking path dependency %s", d.Abs)
	}

	if err := shutil.CopyTree(d.Abs, dir, nil); err != nil {
		return errors.Wrapf(err, "copying path dependency %s to %s", d.Abs, dir)
	}
	return nil
}
