// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package xlat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usbarmory/GoTEE-spm/xlat"
)

func testContext(b xlat.Builder) *xlat.Context {
	return &xlat.Context{
		BaseTable: 0x85000000,
		MaxVA:     0xffffffff,
		MaxPA:     0xffffffff,
		Granule:   0x10000,
		Builder:   b,
	}
}

func TestCheckAligned(t *testing.T) {
	tc := testContext(nil)

	assert.Nil(t, tc.CheckAligned(0x84000000, 0x100000))
	assert.Equal(t, xlat.ErrMisalignedBase, tc.CheckAligned(0x84001000, 0x100000))
	assert.Equal(t, xlat.ErrMisalignedSize, tc.CheckAligned(0x84000000, 0x1000))
}

func TestAddRegion(t *testing.T) {
	tc := testContext(nil)

	err := tc.AddRegion(xlat.Region{Base: 0x80000000, Size: 0x10000, Attr: xlat.AttrCode})
	require.Nil(t, err)

	assert.Equal(t, xlat.ErrEmptyRegion, tc.AddRegion(xlat.Region{Base: 0x90000000}))
	assert.Equal(t, xlat.ErrBounds, tc.AddRegion(xlat.Region{Base: 0xffff0000, Size: 0x20000}))
	assert.Equal(t, xlat.ErrOverlap, tc.AddRegion(xlat.Region{Base: 0x80008000, Size: 0x10000}))

	err = tc.AddRegion(xlat.Region{Base: 0x80010000, Size: 0x10000, Attr: xlat.AttrRW})
	require.Nil(t, err)

	regions := tc.Regions()
	require.Len(t, regions, 2)

	// insertion order is preserved
	assert.Equal(t, uint64(0x80000000), regions[0].Base)
	assert.Equal(t, uint64(0x80010000), regions[1].Base)
}

func TestBuild(t *testing.T) {
	tc := testContext(nil)

	assert.Equal(t, xlat.ErrNoBuilder, tc.Build())

	_, err := tc.Params()
	assert.Equal(t, xlat.ErrNotBuilt, err)

	var built []xlat.Region

	tc.Builder = func(regions []xlat.Region, tc *xlat.Context) error {
		built = regions
		return nil
	}

	err = tc.AddRegion(xlat.Region{Base: 0x82000000, Size: 0x10000, Attr: xlat.AttrCode})
	require.Nil(t, err)

	require.Nil(t, tc.Build())
	require.Len(t, built, 1)

	_, err = tc.Params()
	assert.Nil(t, err)
}
