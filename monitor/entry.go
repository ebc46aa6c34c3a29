// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package monitor

import (
	"github.com/usbarmory/tamago/bits"
)

// PSTATE exception mask bit positions for the saved processor status word.
const (
	PSR_F = 6 // FIQ mask
	PSR_I = 7 // IRQ mask
	PSR_A = 8 // SError mask
	PSR_D = 9 // Debug mask
)

// ModeEL0 selects the lowest privilege level with its dedicated stack
// pointer (EL0t).
const ModeEL0 = 0x0

// SPSREL0 returns a saved processor status word selecting EL0 with its own
// stack pointer and all exceptions masked.
func SPSREL0() (spsr uint32) {
	spsr = ModeEL0

	bits.Set(&spsr, PSR_D)
	bits.Set(&spsr, PSR_A)
	bits.Set(&spsr, PSR_I)
	bits.Set(&spsr, PSR_F)

	return
}

// EntryPointInfo describes the initial execution state of a secure partition
// instance, it is built fresh for each context initialization and not
// retained afterwards.
type EntryPointInfo struct {
	// PC is the partition entry address
	PC uint64
	// SPSR is the saved processor status word applied on entry
	SPSR uint32
	// Args are the architecture reserved argument registers (X0-X7)
	Args [8]uint64
	// Secure tags the context security state
	Secure bool
}

// Apply writes the entry point state into an execution context, it is the
// generic context initialization primitive and sets only the slots described
// by the entry point information (SP_EL0 among others is left untouched).
func (ep *EntryPointInfo) Apply(ctx *ExecCtx) {
	ctx.Set(PC, ep.PC)
	ctx.Set(SPSR, uint64(ep.SPSR))

	for i, arg := range ep.Args {
		ctx.Set(X0+Reg(i), arg)
	}

	ctx.ns = !ep.Secure
}
