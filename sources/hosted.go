// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sources provides the Source plug-ins pub resolves against: a
// hosted registry, a git repository, a local filesystem path, and the
// synthesized environment/SDK source. Each is the only place its own
// description semantics live, per the package identity model.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	packageurl "github.com/package-url/packageurl-go"
	"github.com/pkg/errors"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/dam0vm3nt/pub"
)

// hostedDescription is the opaque value a Hosted source attaches to a Ref:
// a parsed package URL (DOMAIN STACK: git-pkgs/purl's packageurl-go
// dependency), since two syntactically different pkg: strings can name the
// same package (differing qualifier order, a trailing repository_url).
type hostedDescription struct {
	purl packageurl.PackageURL
}

// canonical renders the parts of the PURL that determine package identity
// (type, namespace, name), dropping qualifiers and version entirely, so
// DescriptionsEqual doesn't depend on how the qualifiers happened to be
// written.
func (d hostedDescription) canonical() string {
	return fmt.Sprintf("pkg:%s/%s/%s", d.purl.Type, d.purl.Namespace, d.purl.Name)
}

// Hosted is the "hosted registry" Source: packages identified by a
// registry URL and fetched over HTTP, grounded on the teacher's
// gps.registrySource.
type Hosted struct {
	registryURL string
	token       string
	client      *http.Client
	breaker     *circuit.Breaker
	reg         *pub.SourceRegistry
}

// SetRegistry wires the SourceRegistry used to resolve the sources named
// by dependencies in a fetched manifest. Called once, after every Source
// has been registered, breaking the construction cycle between a registry
// and the sources it dispatches to.
func (h *Hosted) SetRegistry(reg *pub.SourceRegistry) { h.reg = reg }

// NewHosted constructs a Hosted source talking to registryURL. A
// circuitbreaker trips after repeated failures so a flapping registry
// fails fast instead of stalling every subsequent candidate lookup; this
// is not a retry policy (Non-goal), only a way to shorten the path to the
// SourceUnavailableError the core already surfaces untouched.
func NewHosted(registryURL, token string) *Hosted {
	return &Hosted{
		registryURL: registryURL,
		token:       token,
		client:      &http.Client{Timeout: 30 * time.Second},
		breaker:     circuit.NewBreakerWithOptions(&circuit.Options{ShouldTrip: circuit.ConsecutiveTripFunc(5)}),
	}
}

func (h *Hosted) Name() string { return "hosted" }

func (h *Hosted) ParseDescription(raw interface{}) (interface{}, error) {
	s, ok := raw.(string)
	if !ok {
		var js json.RawMessage
		if b, ok2 := raw.(json.RawMessage); ok2 {
			js = b
			if err := json.Unmarshal(js, &s); err != nil {
				return nil, errors.Wrap(err, "hosted description must be a pkg: URL string")
			}
		} else {
			return nil, errors.New("hosted description must be a pkg: URL string")
		}
	}
	p, err := packageurl.FromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing package URL %q", s)
	}
	return hostedDescription{purl: p}, nil
}

func (h *Hosted) DescriptionsEqual(a, b interface{}) bool {
	da, ok1 := a.(hostedDescription)
	db, ok2 := b.(hostedDescription)
	if !ok1 || !ok2 {
		return false
	}
	return da.canonical() == db.canonical()
}

func (h *Hosted) HashDescription(desc interface{}) uint64 {
	d, ok := desc.(hostedDescription)
	if !ok {
		return 0
	}
	return fnv64(d.canonical())
}

func (h *Hosted) ListVersions(ctx context.Context, ref pub.Ref) ([]pub.Id, error) {
	d, ok := ref.Description().(hostedDescription)
	if !ok {
		return nil, errors.Errorf("hosted: ref %s has no hosted description", ref.Name())
	}
	if h.breaker.Tripped() {
		return nil, errors.Errorf("hosted: registry %s circuit open", h.registryURL)
	}

	u, err := url.Parse(h.registryURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, "api/v1/projects", d.canonical(), "info")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.breaker.Fail()
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		h.breaker.Fail()
		return nil, errors.Errorf("%s: %s", u.String(), resp.Status)
	}
	h.breaker.Success()

	var parsed struct {
		Versions []string `json:"versions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, "decoding registry response")
	}

	ids := make([]pub.Id, 0, len(parsed.Versions))
	for _, v := range parsed.Versions {
		ids = append(ids, pub.NewId(ref, pub.NewVersion(v)))
	}
	return ids, nil
}

func (h *Hosted) DescribeDependencies(ctx context.Context, id pub.Id) (pub.Manifest, error) {
	d, ok := id.Description().(hostedDescription)
	if !ok {
		return nil, errors.Errorf("hosted: id %s has no hosted description", id.Name())
	}

	u, err := url.Parse(h.registryURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, "api/v1/projects", d.canonical(), "versions", id.Version.String(), "manifest")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s: %s", u.String(), resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest response")
	}
	return pub.ParseManifest(body, h.reg)
}

func (h *Hosted) Materialize(ctx context.Context, id pub.Id, dir string) error {
	return errors.New("hosted: materialize is handled by the external fetcher, not by resolution")
}

func fnv64(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
