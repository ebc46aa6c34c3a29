// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package xlat

import (
	"github.com/usbarmory/tamago/bits"
)

// SCTLR_EL1 bit positions.
const (
	SCTLR_M    = 0  // paging hardware enable
	SCTLR_A    = 1  // alignment fault checking
	SCTLR_C    = 2  // data caching
	SCTLR_SA0  = 4  // EL0 stack pointer alignment checking
	SCTLR_UMA  = 9  // trap DAIF access from EL0
	SCTLR_I    = 12 // instruction caching
	SCTLR_DZE  = 14 // permit DC ZVA at EL0
	SCTLR_UCT  = 15 // permit CTR_EL0 reads at EL0
	SCTLR_NTWI = 16 // do not trap WFI at EL0
	SCTLR_NTWE = 18 // do not trap WFE at EL0
	SCTLR_WXN  = 19 // writable regions forced non-executable
	SCTLR_E0E  = 24 // big-endian data access at EL0
	SCTLR_UCI  = 26 // permit cache maintenance at EL0
)

// CtrlFlags represents the behavioral control register (SCTLR_EL1) policy
// applied to a secure partition, one named toggle per architectural bit.
type CtrlFlags struct {
	// UnalignedCacheOps permits VA-to-PA cache maintenance instructions
	// from the partition privilege level (UCI)
	UnalignedCacheOps bool
	// WriteExecNever forces writable regions in the partition regime to
	// be non-executable (WXN)
	WriteExecNever bool
	// NoWFITrap executes WFI at the partition level without trapping
	// (nTWI)
	NoWFITrap bool
	// NoWFETrap executes WFE at the partition level without trapping
	// (nTWE)
	NoWFETrap bool
	// NoCacheTypeTrap permits cache type register reads from the
	// partition level (UCT)
	NoCacheTypeTrap bool
	// NoZeroFillTrap permits zero-fill instructions from the partition
	// level (DZE)
	NoZeroFillTrap bool
	// StackAlignCheck enforces stack pointer alignment checking at the
	// partition level (SA0)
	StackAlignCheck bool
	// InstructionCache enables instruction caching (I)
	InstructionCache bool
	// DataCache enables data caching (C)
	DataCache bool
	// MMUEnable enables the paging hardware (M)
	MMUEnable bool
	// BigEndian selects big-endian data access at the partition level
	// (E0E)
	BigEndian bool
	// AlignFault faults unaligned data accesses (A)
	AlignFault bool
	// MaskAccessTrap traps DAIF access from the partition level (UMA)
	MaskAccessTrap bool
}

// PartitionCtrl returns the control register policy applied to a secure
// partition before its first entry.
func PartitionCtrl() CtrlFlags {
	return CtrlFlags{
		UnalignedCacheOps: true,
		WriteExecNever:    true,
		NoWFITrap:         true,
		NoWFETrap:         true,
		NoCacheTypeTrap:   true,
		NoZeroFillTrap:    true,
		StackAlignCheck:   true,
		InstructionCache:  true,
		DataCache:         true,
		MMUEnable:         true,

		// BigEndian, AlignFault and MaskAccessTrap are left cleared:
		// data accesses are little-endian, unaligned accesses are
		// permitted and DAIF accesses are not trapped.
	}
}

// Value merges the toggles into a control register value, each toggle sets
// or clears its architectural bit, unrelated bits are preserved.
func (f CtrlFlags) Value(sctlr uint64) uint64 {
	val := uint32(sctlr)

	merge := func(pos int, on bool) {
		if on {
			bits.Set(&val, pos)
		} else {
			bits.Clear(&val, pos)
		}
	}

	merge(SCTLR_UCI, f.UnalignedCacheOps)
	merge(SCTLR_WXN, f.WriteExecNever)
	merge(SCTLR_NTWI, f.NoWFITrap)
	merge(SCTLR_NTWE, f.NoWFETrap)
	merge(SCTLR_UCT, f.NoCacheTypeTrap)
	merge(SCTLR_DZE, f.NoZeroFillTrap)
	merge(SCTLR_SA0, f.StackAlignCheck)
	merge(SCTLR_I, f.InstructionCache)
	merge(SCTLR_C, f.DataCache)
	merge(SCTLR_M, f.MMUEnable)
	merge(SCTLR_E0E, f.BigEndian)
	merge(SCTLR_A, f.AlignFault)
	merge(SCTLR_UMA, f.MaskAccessTrap)

	return sctlr>>32<<32 | uint64(val)
}

// CNTKCTL_EL1 bit positions, counter and timer access permissions for the
// partition privilege level.
const (
	CNTKCTL_EL0PCTEN = 0 // physical counter access
	CNTKCTL_EL0VCTEN = 1 // virtual counter access
	CNTKCTL_EL0VTEN  = 8 // virtual timer access
	CNTKCTL_EL0PTEN  = 9 // physical timer access
)

// TimerCtrl returns a counter-timer control value granting the partition all
// four counter and timer access permissions.
func TimerCtrl() uint64 {
	var cntkctl uint32

	bits.Set(&cntkctl, CNTKCTL_EL0PCTEN)
	bits.Set(&cntkctl, CNTKCTL_EL0VCTEN)
	bits.Set(&cntkctl, CNTKCTL_EL0VTEN)
	bits.Set(&cntkctl, CNTKCTL_EL0PTEN)

	return uint64(cntkctl)
}

// CPACR_EL1 FPEN field, advanced SIMD and floating-point trap control.
const (
	CPACR_FPEN_SHIFT = 20
	CPACR_FPEN_NONE  = 0b11 // no traps
)

// TrapCtrl returns an architectural feature trap value disabling trapping of
// floating-point and SIMD register access. The setup routine does not
// preserve these registers across entry, their handling belongs to the
// partition. Vector extension trap configuration is left untouched.
func TrapCtrl() uint64 {
	return CPACR_FPEN_NONE << CPACR_FPEN_SHIFT
}
