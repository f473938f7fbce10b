// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sources

import (
	"encoding/json"
	"testing"
)

func TestNormalizeGitURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://example.com/repo.git", "https://example.com/repo"},
		{"https://example.com/repo.git/", "https://example.com/repo"},
		{"https://example.com/repo", "https://example.com/repo"},
		{"https://example.com/repo///", "https://example.com/repo"},
	}
	for _, c := range cases {
		if got := normalizeGitURL(c.in); got != c.want {
			t.Errorf("normalizeGitURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGitDescriptionsEqual(t *testing.T) {
	g := NewGit(t.TempDir())
	a, err := g.ParseDescription("https://example.com/repo.git")
	if err != nil {
		t.Fatalf("ParseDescription a: %v", err)
	}
	b, err := g.ParseDescription("https://example.com/repo")
	if err != nil {
		t.Fatalf("ParseDescription b: %v", err)
	}
	if !g.DescriptionsEqual(a, b) {
		t.Fatal("a .git URL and its bare equivalent should describe the same package")
	}
}

func TestGitDescriptionsEqualDifferentPath(t *testing.T) {
	g := NewGit(t.TempDir())
	a, _ := g.ParseDescription(json.RawMessage(`{"url":"https://example.com/repo","path":"sub1"}`))
	b, _ := g.ParseDescription(json.RawMessage(`{"url":"https://example.com/repo","path":"sub2"}`))
	if g.DescriptionsEqual(a, b) {
		t.Fatal("the same repo at two different subdirectories should not be equal")
	}
}

func TestGitHashDescriptionConsistent(t *testing.T) {
	g := NewGit(t.TempDir())
	a, _ := g.ParseDescription("https://example.com/repo.git")
	b, _ := g.ParseDescription("https://example.com/repo")
	if g.HashDescription(a) != g.HashDescription(b) {
		t.Fatal("hash should be stable across a normalized .git suffix")
	}
}

func TestFnv64StrFixedLength(t *testing.T) {
	got := fnv64str("https://example.com/repo")
	if len(got) != 16 {
		t.Fatalf("fnv64str length = %d, want 16", len(got))
	}
}
