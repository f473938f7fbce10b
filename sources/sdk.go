// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sources

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dam0vm3nt/pub"
)

// SDK is the synthesized "sdk" source backing magic packages (§3, §4.8):
// environment constraints such as an SDK/runtime version. It is never
// consulted for a real candidate list — the solver seeds a magic package's
// single fixed Id itself, from SolveParameters.Environment, before solving
// starts — so every method here other than the identity plumbing exists
// only to satisfy the Source contract.
type SDK struct{}

// NewSDK constructs the environment source.
func NewSDK() *SDK { return &SDK{} }

func (s *SDK) Name() string { return "sdk" }

func (s *SDK) ParseDescription(raw interface{}) (interface{}, error) {
	return nil, nil
}

func (s *SDK) DescriptionsEqual(a, b interface{}) bool { return true }

func (s *SDK) HashDescription(desc interface{}) uint64 { return 0 }

func (s *SDK) ListVersions(ctx context.Context, ref pub.Ref) ([]pub.Id, error) {
	return nil, errors.New("sdk: magic packages are seeded directly, never listed")
}

func (s *SDK) DescribeDependencies(ctx context.Context, id pub.Id) (pub.Manifest, error) {
	return nil, nil
}

func (s *SDK) Materialize(ctx context.Context, id pub.Id, dir string) error {
	return errors.New("sdk: magic packages are never materialized")
}
