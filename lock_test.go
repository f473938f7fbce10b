// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLockfileSerializeSortedAndIndented(t *testing.T) {
	l := NewLockfile([]Id{
		NewId(NewRef("zeta", "reg", "zeta"), NewVersion("1.0.0")),
		NewId(NewRef("alpha", "reg", "alpha"), NewVersion("2.0.0")),
		NewId(NewRootRef("root"), Version{}),
	})
	data, err := l.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.HasPrefix(string(data), "{\n  \"packages\": [\n    {\n      \"name\": \"alpha\"") {
		t.Fatalf("Serialize output is not two-space indented:\n%s", data)
	}

	var raw struct {
		Packages []struct {
			Name    string `json:"name"`
			Source  string `json:"source,omitempty"`
			Version string `json:"version"`
		} `json:"packages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(raw.Packages) != 3 {
		t.Fatalf("Packages = %+v, want 3 entries", raw.Packages)
	}
	names := []string{raw.Packages[0].Name, raw.Packages[1].Name, raw.Packages[2].Name}
	want := []string{"alpha", "root", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Serialize did not sort by name ascending: got %v, want %v", names, want)
		}
	}
}

func TestLockfileSources(t *testing.T) {
	l := NewLockfile([]Id{
		NewId(NewRootRef("root"), Version{}),
		NewId(NewRef("foo", "reg-a", "foo"), NewVersion("1.0.0")),
		NewId(NewRef("bar", "reg-b", "bar"), NewVersion("1.0.0")),
	})
	sources := l.Sources()
	if !sources["reg-a"] || !sources["reg-b"] {
		t.Fatalf("Sources = %v, want reg-a and reg-b", sources)
	}
	if sources["root"] {
		t.Fatal("the root package should never appear in Sources")
	}
}

func TestPackagesFileLocations(t *testing.T) {
	l := NewLockfile([]Id{
		NewId(NewRootRef("root"), Version{}),
		NewId(NewMagicRef("sdk"), NewVersion("3.0.0")),
		NewId(NewRef("foo", "reg", "foo"), NewVersion("1.2.0")),
	})
	data, err := l.PackagesFile()
	if err != nil {
		t.Fatalf("PackagesFile: %v", err)
	}
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if out["root"] != "root" {
		t.Errorf("root location = %q, want %q", out["root"], "root")
	}
	if out["sdk"] != "magic:sdk" {
		t.Errorf("sdk location = %q, want %q", out["sdk"], "magic:sdk")
	}
	if out["foo"] != "reg:foo@1.2.0" {
		t.Errorf("foo location = %q, want %q", out["foo"], "reg:foo@1.2.0")
	}
}

func TestLoadLockfileUnknownSource(t *testing.T) {
	reg := newTestRegistry(newFakeSource("reg"))
	data := []byte(`{"packages":[{"name":"foo","source":"nonexistent","version":"1.0.0"}]}`)
	if _, err := LoadLockfile(data, reg); err == nil {
		t.Fatal("an unregistered lockfile source should fail to load")
	}
}
