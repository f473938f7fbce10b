// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sources

import (
	"context"
	"testing"

	"github.com/dam0vm3nt/pub"
)

func TestPathParseDescriptionResolvesAbsolute(t *testing.T) {
	dir := t.TempDir()
	p := NewPath()
	desc, err := p.ParseDescription(dir)
	if err != nil {
		t.Fatalf("ParseDescription: %v", err)
	}
	d, ok := desc.(pathDescription)
	if !ok {
		t.Fatalf("ParseDescription returned %T, want pathDescription", desc)
	}
	if d.Abs == "" {
		t.Fatal("resolved path should not be empty")
	}
}

func TestPathDescriptionsEqualSamePath(t *testing.T) {
	dir := t.TempDir()
	p := NewPath()
	a, _ := p.ParseDescription(dir)
	b, _ := p.ParseDescription(dir + "/")
	if !p.DescriptionsEqual(a, b) {
		t.Fatal("the same directory with and without a trailing slash should be equal")
	}
}

func TestPathListVersionsMissingDir(t *testing.T) {
	p := NewPath()
	ref := pub.NewRef("foo", "path", mustParsePath(t, p, "/nonexistent/does/not/exist"))
	if _, err := p.ListVersions(context.Background(), ref); err == nil {
		t.Fatal("ListVersions should fail for a path that doesn't exist")
	}
}

func TestPathListVersionsSingleLocalVersion(t *testing.T) {
	dir := t.TempDir()
	p := NewPath()
	ref := pub.NewRef("foo", "path", mustParsePath(t, p, dir))
	ids, err := p.ListVersions(context.Background(), ref)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(ids) != 1 || ids[0].Version.String() != "local" {
		t.Fatalf("ListVersions = %+v, want exactly one version named \"local\"", ids)
	}
}

func mustParsePath(t *testing.T, p *Path, path string) interface{} {
	t.Helper()
	desc, err := p.ParseDescription(path)
	if err != nil {
		t.Fatalf("ParseDescription(%q): %v", path, err)
	}
	return desc
}
