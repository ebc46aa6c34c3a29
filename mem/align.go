// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

import (
	"math"
)

// Aligned returns whether addr is aligned to granule, granule must be a
// power of two.
func Aligned(addr uint64, granule uint64) bool {
	return addr&(granule-1) == 0
}

// Fits returns whether a region of the given size can start at base without
// wrapping the address space.
func Fits(base uint64, size uint64) bool {
	return size == 0 || base <= math.MaxUint64-size+1
}
