// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package xlat models the translation configuration installed for a secure
// partition: the merged memory mapping requests, the translation table build
// and the derived paging control register values for the partition
// translation regime.
//
// Table generation itself is delegated to an externally supplied Builder.
package xlat

import (
	"errors"
	"fmt"

	"github.com/usbarmory/GoTEE-spm/mem"
)

var (
	ErrMisalignedBase = errors.New("base address not aligned to maximum translation granule")
	ErrMisalignedSize = errors.New("size not a multiple of maximum translation granule")
	ErrEmptyRegion    = errors.New("empty mapping request")
	ErrBounds         = errors.New("mapping request exceeds supported address space")
	ErrOverlap        = errors.New("mapping request overlaps existing region")
	ErrNoBuilder      = errors.New("missing translation table builder")
	ErrNotBuilt       = errors.New("translation tables not built")
	ErrGranule        = errors.New("unsupported translation granule")
)

// Attr describes the mapping attributes of a memory region, the zero value
// maps read-only, non-executable, secure, privileged normal memory.
type Attr uint32

const (
	// AttrRW marks a writable mapping (read-only otherwise)
	AttrRW Attr = 1 << iota
	// AttrExec marks an executable mapping
	AttrExec
	// AttrDevice marks a device memory mapping (normal memory otherwise)
	AttrDevice
	// AttrNonSecure targets the non-secure physical address space
	AttrNonSecure
	// AttrUser makes the mapping accessible to the partition privilege
	// level (privileged-only otherwise)
	AttrUser
)

// AttrCode maps secure privileged executable code.
const AttrCode = AttrExec

// Region describes a flat (VA == PA) memory mapping request.
type Region struct {
	Base uint64
	Size uint64
	Attr Attr
}

// End returns the first address past the region.
func (r Region) End() uint64 {
	return r.Base + r.Size
}

// String returns the mapping request bounds and attributes.
func (r Region) String() string {
	return fmt.Sprintf("%#.8x-%#.8x attr:%#.2x", r.Base, r.End(), uint32(r.Attr))
}

// Builder generates translation tables at the context base table location
// for a merged region set, table generation is provided externally.
type Builder func(regions []Region, tc *Context) error

// Context represents the translation configuration of a secure partition.
type Context struct {
	// BaseTable is the location of the base translation table
	BaseTable uint64
	// MaxVA is the highest supported virtual address
	MaxVA uint64
	// MaxPA is the highest supported physical address
	MaxPA uint64
	// Granule is the maximum translation granule size supported by the
	// paging hardware
	Granule uint64
	// Builder generates the translation tables
	Builder Builder

	regions []Region
	built   bool
}

// CheckAligned validates a base address and size against the maximum
// supported translation granule.
func (tc *Context) CheckAligned(base uint64, size uint64) error {
	if !mem.Aligned(base, tc.Granule) {
		return ErrMisalignedBase
	}

	if !mem.Aligned(size, tc.Granule) {
		return ErrMisalignedSize
	}

	return nil
}

// AddRegion merges a mapping request into the translation context.
func (tc *Context) AddRegion(r Region) error {
	if r.Size == 0 {
		return ErrEmptyRegion
	}

	if !mem.Fits(r.Base, r.Size) || r.End()-1 > tc.MaxVA {
		return ErrBounds
	}

	for _, p := range tc.regions {
		if r.Base < p.End() && p.Base < r.End() {
			return ErrOverlap
		}
	}

	tc.regions = append(tc.regions, r)

	return nil
}

// Regions returns the merged mapping requests in insertion order.
func (tc *Context) Regions() []Region {
	regions := make([]Region, len(tc.regions))
	copy(regions, tc.regions)

	return regions
}

// Build generates the translation tables for the merged region set.
func (tc *Context) Build() (err error) {
	if tc.Builder == nil {
		return ErrNoBuilder
	}

	if err = tc.Builder(tc.Regions(), tc); err != nil {
		return
	}

	tc.built = true

	return
}
