// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/usbarmory/GoTEE-spm/mem"
)

func TestAligned(t *testing.T) {
	assert.True(t, mem.Aligned(0x83000000, mem.MaxGranule))
	assert.True(t, mem.Aligned(0, mem.MaxGranule))
	assert.False(t, mem.Aligned(0x83001000, mem.MaxGranule))
}

func TestFits(t *testing.T) {
	assert.True(t, mem.Fits(0x83000000, 0x100000))
	assert.True(t, mem.Fits(math.MaxUint64, 1))
	assert.True(t, mem.Fits(math.MaxUint64, 0))
	assert.False(t, mem.Fits(math.MaxUint64, 2))
}

func TestLayout(t *testing.T) {
	// the handoff buffer must be aligned to, and sized in multiples of,
	// the maximum supported translation granule
	assert.True(t, mem.Aligned(mem.BufferBase, mem.MaxGranule))
	assert.True(t, mem.Aligned(mem.BufferSize, mem.MaxGranule))

	assert.True(t, mem.Aligned(mem.NSBufferBase, mem.MaxGranule))
	assert.True(t, mem.Aligned(mem.NSBufferSize, mem.MaxGranule))

	assert.True(t, mem.Fits(mem.BufferBase, mem.BufferSize))
}
