// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package spm prepares a secure partition to run for the first time on a
// core: it builds the initial execution context, installs the partition
// translation configuration and marshals the boot information handoff
// buffer.
//
// The sequence is strictly linear and runs once per core before that core
// ever transfers control into the partition, any error is an unrecoverable
// setup failure.
package spm

import (
	"log"

	"github.com/usbarmory/GoTEE-spm/bootinfo"
	"github.com/usbarmory/GoTEE-spm/monitor"
	"github.com/usbarmory/GoTEE-spm/xlat"
)

// Platform represents the external platform collaborators consumed by
// partition setup.
type Platform interface {
	// BootInfo returns the boot information record and the MP
	// information array for all cores.
	BootInfo() (*bootinfo.BootInfo, []bootinfo.MPInfo, error)
	// CorePos resolves an affinity identifier to a zero-based linear
	// core index.
	CorePos(mpidr uint64) (int, error)
	// MyCorePos returns the calling core linear index.
	MyCorePos() int
	// Regions returns the additional memory mappings required by the
	// partition.
	Regions() []xlat.Region
}

// Config holds the fixed addresses consumed by partition setup.
type Config struct {
	// Entry is the partition entry address
	Entry uint64
	// StackBase is the partition stack region base address
	StackBase uint64
	// StackPCPUSize is the per-core stack size
	StackPCPUSize uint64
	// NSBufferBase is the Normal World communication buffer base address
	NSBufferBase uint64
	// NSBufferSize is the Normal World communication buffer size
	NSBufferSize uint64
	// VectorBase is the S-EL1 exception vector shim base address
	VectorBase uint64
	// VectorSize is the S-EL1 exception vector shim size
	VectorSize uint64
	// Cookie0 is the first implementation defined cookie value
	Cookie0 uint64
	// Cookie1 is the second implementation defined cookie value
	Cookie1 uint64
}

// SP represents a secure partition instance on a single core.
type SP struct {
	// Ctx is the partition execution context for the core
	Ctx *monitor.ExecCtx
	// Xlat is the partition translation context
	Xlat *xlat.Context
	// Buffer is the shared boot information handoff buffer
	Buffer *bootinfo.Buffer
	// Config holds the fixed platform addresses
	Config Config
}

// initContext builds the initial entry point state and applies it to the
// execution context.
func (sp *SP) initContext() {
	ep := &monitor.EntryPointInfo{
		PC:     sp.Config.Entry,
		SPSR:   monitor.SPSREL0(),
		Secure: true,
	}

	// X0: shared buffer base address
	// X1: shared buffer size
	// X2: cookie value
	// X3: cookie value
	// X4-X7: zero
	ep.Args[0] = sp.Buffer.Base
	ep.Args[1] = uint64(len(sp.Buffer.Mem))
	ep.Args[2] = sp.Config.Cookie0
	ep.Args[3] = sp.Config.Cookie1

	ep.Apply(sp.Ctx)

	// A non-zero stack pointer indicates to the partition that its
	// per-core stack has been initialized, the generic primitive leaves
	// this slot unset.
	sp.Ctx.Set(monitor.SP_EL0, sp.Config.StackBase+sp.Config.StackPCPUSize)
}

// initTranslation merges the exception vector mapping with the platform
// region requests, builds the translation tables and installs the derived
// paging and behavioral control register values, no register slot is written
// until all validation and table generation succeeded.
func (sp *SP) initTranslation(plat Platform) (err error) {
	log.Printf("SPM max translation granule size supported: %d KiB", sp.Xlat.Granule/1024)

	if err = sp.Xlat.CheckAligned(sp.Config.NSBufferBase, sp.Config.NSBufferSize); err != nil {
		return
	}

	if err = sp.Xlat.CheckAligned(sp.Buffer.Base, uint64(len(sp.Buffer.Mem))); err != nil {
		return
	}

	// This region contains the exception vectors used at S-EL1.
	vectors := xlat.Region{
		Base: sp.Config.VectorBase,
		Size: sp.Config.VectorSize,
		Attr: xlat.AttrCode,
	}

	if err = sp.Xlat.AddRegion(vectors); err != nil {
		return
	}

	for _, r := range plat.Regions() {
		if err = sp.Xlat.AddRegion(r); err != nil {
			return
		}
	}

	if err = sp.Xlat.Build(); err != nil {
		return
	}

	p, err := sp.Xlat.Params()

	if err != nil {
		return
	}

	sp.Ctx.Set(monitor.MAIR_EL1, p.MAIR)
	sp.Ctx.Set(monitor.TCR_EL1, p.TCR)
	sp.Ctx.Set(monitor.TTBR0_EL1, p.TTBR0)

	sp.Ctx.Set(monitor.SCTLR_EL1, xlat.PartitionCtrl().Value(sp.Ctx.Get(monitor.SCTLR_EL1)))

	sp.Ctx.Set(monitor.VBAR_EL1, sp.Config.VectorBase)
	sp.Ctx.Set(monitor.CNTKCTL_EL1, xlat.TimerCtrl())
	sp.Ctx.Set(monitor.CPACR_EL1, xlat.TrapCtrl())

	return
}

// marshalBootInfo retrieves the boot information from the platform and
// marshals it into the shared buffer.
func (sp *SP) marshalBootInfo(plat Platform) (err error) {
	info, cpus, err := plat.BootInfo()

	if err != nil {
		return
	}

	return sp.Buffer.Marshal(info, cpus, plat.CorePos, plat.MyCorePos())
}

// Setup runs the complete first-entry preparation for the calling core:
// entry point state, translation installation and, only on the core
// responsible for the canonical boot image, the boot information handoff
// (the shared buffer has a single writer, secondary cores must not marshal
// it again).
func (sp *SP) Setup(plat Platform, primary bool) (err error) {
	sp.initContext()

	log.Printf("SPM built entry point state pc:%#.8x sp:%#.8x", sp.Ctx.Get(monitor.PC), sp.Ctx.Get(monitor.SP_EL0))

	if err = sp.initTranslation(plat); err != nil {
		return
	}

	if !primary {
		return
	}

	return sp.marshalBootInfo(plat)
}
