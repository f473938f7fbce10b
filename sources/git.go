// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"

	"github.com/dam0vm3nt/pub"
)

// gitDescription is a git source's opaque description: a clone URL and an
// optional subdirectory within it. Two gitDescriptions are equal when their
// normalized URL and path match, even if one has a trailing ".git" or
// slash the other doesn't.
type gitDescription struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

func (d gitDescription) canonical() string {
	return normalizeGitURL(d.URL) + "#" + d.Path
}

func normalizeGitURL(u string) string {
	s := u
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	const suffix = ".git"
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		s = s[:len(s)-len(suffix)]
	}
	return s
}

// Git is the "git" Source: packages identified by a repository URL,
// grounded on the teacher's internal/gps/vcs_repo.go wrapping of
// Masterminds/vcs.
type Git struct {
	// cacheDir is where repositories are cloned for tag enumeration;
	// it is scratch space, not the final materialized
	// location a caller's fetcher uses.
	cacheDir string
	registry *pub.SourceRegistry
}

// SetRegistry wires the SourceRegistry used to resolve the sources named
// by dependencies in a fetched manifest, post-construction (see Hosted).
func (g *Git) SetRegistry(reg *pub.SourceRegistry) { g.registry = reg }

// NewGit constructs a Git source that clones into cacheDir to enumerate
// tags. Only tags become candidate versions; branches are not listed.
func NewGit(cacheDir string) *Git {
	return &Git{cacheDir: cacheDir}
}

func (g *Git) Name() string { return "git" }

func (g *Git) ParseDescription(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case string:
		return gitDescription{URL: v}, nil
	case json.RawMessage:
		var d gitDescription
		if err := json.Unmarshal(v, &d); err != nil {
			return nil, errors.Wrap(err, "parsing git description")
		}
		return d, nil
	default:
		return nil, errors.New("git description must be a URL string or {url,path} object")
	}
}

func (g *Git) DescriptionsEqual(a, b interface{}) bool {
	da, ok1 := a.(gitDescription)
	db, ok2 := b.(gitDescription)
	if !ok1 || !ok2 {
		return false
	}
	return da.canonical() == db.canonical()
}

func (g *Git) HashDescription(desc interface{}) uint64 {
	d, ok := desc.(gitDescription)
	if !ok {
		return 0
	}
	return fnv64(d.canonical())
}

func (g *Git) repoFor(d gitDescription) (vcs.Repo, string, error) {
	local := filepath.Join(g.cacheDir, fnv64str(d.canonical()))
	repo, err := vcs.NewRepo(d.URL, local)
	if err != nil {
		return nil, "", errors.Wrapf(err, "setting up git repo for %s", d.URL)
	}
	return repo, local, nil
}

func fnv64str(s string) string {
	const hexDigits = "0123456789abcdef"
	h := fnv64(s)
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[h&0xf]
		h >>= 4
	}
	return string(buf)
}

func (g *Git) ListVersions(ctx context.Context, ref pub.Ref) ([]pub.Id, error) {
	d, ok := ref.Description().(gitDescription)
	if !ok {
		return nil, errors.Errorf("git: ref %s has no git description", ref.Name())
	}

	repo, local, err := g.repoFor(d)
	if err != nil {
		return nil, err
	}

	if !repo.CheckLocal() {
		if err := repo.Get(); err != nil {
			return nil, errors.Wrapf(err, "cloning %s", d.URL)
		}
	} else if err := repo.Update(); err != nil {
		return nil, errors.Wrapf(err, "updating %s", local)
	}

	tags, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrapf(err, "listing tags for %s", d.URL)
	}

	ids := make([]pub.Id, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, pub.NewId(ref, pub.NewVersion(t)))
	}
	return ids, nil
}

func (g *Git) DescribeDependencies(ctx context.Context, id pub.Id) (pub.Manifest, error) {
	d, ok := id.Description().(gitDescription)
	if !ok {
		return nil, errors.Errorf("git: id %s has no git description", id.Name())
	}

	repo, local, err := g.repoFor(d)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateVersion(id.Version.String()); err != nil {
		return nil, errors.Wrapf(err, "checking out %s@%s", d.URL, id.Version)
	}

	manifestPath := filepath.Join(local, d.Path, "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest at %s", manifestPath)
	}
	return pub.ParseManifest(data, g.registry)
}

// Materialize checks the requested version out in the VCS cache; relocating
// it into dir is the external fetcher's job (§1), not this Source's.
func (g *Git) Materialize(ctx context.Context, id pub.Id, dir string) error {
	d, ok := id.Description().(gitDescription)
	if !ok {
		return errors.Errorf("git: id %s has no git description", id.Name())
	}
	repo, _, err := g.repoFor(d)
	if err != nil {
		return err
	}
	return repo.UpdateVersion(id.Version.String())
}
