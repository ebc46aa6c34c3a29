// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package xlat

import (
	"math/bits"
)

// TCR_EL1 fields for the partition translation regime.
const (
	TCR_IRGN0_WBWA = 1 << 8  // inner write-back write-allocate
	TCR_ORGN0_WBWA = 1 << 10 // outer write-back write-allocate
	TCR_SH0_INNER  = 3 << 12 // inner shareable

	TCR_TG0_4KB  = 0 << 14
	TCR_TG0_64KB = 1 << 14
	TCR_TG0_16KB = 2 << 14

	TCR_EPD1 = 1 << 23 // disable upper address range walks

	TCR_IPS_SHIFT = 32
)

// MAIR_EL1 attribute encodings, index 0 holds device memory (nGnRE), index 1
// normal write-back write-allocate memory.
const (
	MAIRAttrDevice = 0x04
	MAIRAttrNormal = 0xff

	MAIRValue = MAIRAttrDevice | MAIRAttrNormal<<8
)

// MMUParams holds the derived paging control register values for the
// partition translation regime.
type MMUParams struct {
	MAIR  uint64
	TCR   uint64
	TTBR0 uint64
}

// ipsEncodings maps physical address size in bits to the architectural
// intermediate physical address size encoding.
var ipsEncodings = [][2]uint64{
	{32, 0b000},
	{36, 0b001},
	{40, 0b010},
	{42, 0b011},
	{44, 0b100},
	{48, 0b101},
}

// Params derives the paging control register values from a built translation
// context.
func (tc *Context) Params() (p MMUParams, err error) {
	if !tc.built {
		return p, ErrNotBuilt
	}

	var tg0 uint64

	switch tc.Granule {
	case 0x1000:
		tg0 = TCR_TG0_4KB
	case 0x4000:
		tg0 = TCR_TG0_16KB
	case 0x10000:
		tg0 = TCR_TG0_64KB
	default:
		return p, ErrGranule
	}

	vaBits := bits.Len64(tc.MaxVA)
	paBits := bits.Len64(tc.MaxPA)

	if vaBits > 48 || paBits > 48 {
		return p, ErrBounds
	}

	var ips uint64

	for _, enc := range ipsEncodings {
		if uint64(paBits) <= enc[0] {
			ips = enc[1]
			break
		}
	}

	t0sz := uint64(64 - vaBits)

	p.MAIR = MAIRValue
	p.TCR = t0sz | TCR_IRGN0_WBWA | TCR_ORGN0_WBWA | TCR_SH0_INNER | tg0 | TCR_EPD1 | ips<<TCR_IPS_SHIFT
	p.TTBR0 = tc.BaseTable

	return
}
