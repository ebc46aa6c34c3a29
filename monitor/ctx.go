// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package monitor provides the execution context model for secure partition
// instances, the context holds the saved register state applied by the secure
// monitor on the first entry into the partition.
package monitor

import (
	"fmt"
	"sort"
	"strings"
)

// Reg identifies a register slot within an execution context.
type Reg int

// Execution context register slots.
const (
	X0 Reg = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	PC
	SPSR
	SP_EL0
	SCTLR_EL1
	TCR_EL1
	MAIR_EL1
	TTBR0_EL1
	VBAR_EL1
	CNTKCTL_EL1
	CPACR_EL1
)

var regNames = map[Reg]string{
	X0:          "X0",
	X1:          "X1",
	X2:          "X2",
	X3:          "X3",
	X4:          "X4",
	X5:          "X5",
	X6:          "X6",
	X7:          "X7",
	PC:          "PC",
	SPSR:        "SPSR",
	SP_EL0:      "SP_EL0",
	SCTLR_EL1:   "SCTLR_EL1",
	TCR_EL1:     "TCR_EL1",
	MAIR_EL1:    "MAIR_EL1",
	TTBR0_EL1:   "TTBR0_EL1",
	VBAR_EL1:    "VBAR_EL1",
	CNTKCTL_EL1: "CNTKCTL_EL1",
	CPACR_EL1:   "CPACR_EL1",
}

// String returns the architectural name of the register slot.
func (r Reg) String() string {
	if name, ok := regNames[r]; ok {
		return name
	}

	return fmt.Sprintf("REG(%d)", int(r))
}

// ExecCtx represents the saved register state of a secure partition instance
// on a single core, it is owned by the setup routine until the first entry
// into the partition.
type ExecCtx struct {
	regs map[Reg]uint64
	ns   bool
}

// NewExecCtx returns an empty execution context.
func NewExecCtx() *ExecCtx {
	return &ExecCtx{
		regs: make(map[Reg]uint64),
	}
}

// Set writes a register slot value.
func (ctx *ExecCtx) Set(r Reg, val uint64) {
	ctx.regs[r] = val
}

// Get reads a register slot value, unset slots read as zero.
func (ctx *ExecCtx) Get(r Reg) uint64 {
	return ctx.regs[r]
}

// NonSecure returns whether the execution context is tagged for the
// NonSecure world.
func (ctx *ExecCtx) NonSecure() bool {
	return ctx.ns
}

// Regs returns the identifiers of all set register slots, in slot order.
func (ctx *ExecCtx) Regs() (regs []Reg) {
	for r := range ctx.regs {
		regs = append(regs, r)
	}

	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })

	return
}

// String returns the register state of the execution context.
func (ctx *ExecCtx) String() string {
	var b strings.Builder

	for _, r := range ctx.Regs() {
		fmt.Fprintf(&b, "%12s:%#.16x\n", r, ctx.regs[r])
	}

	return b.String()
}
