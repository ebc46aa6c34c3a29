// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/usbarmory/GoTEE-spm/bootinfo"
	"github.com/usbarmory/GoTEE-spm/mem"
	"github.com/usbarmory/GoTEE-spm/xlat"
)

// coresPerCluster is the simulated affinity scheme, affinity level 0 holds
// the core number within the cluster, affinity level 1 the cluster number.
const coresPerCluster = 4

func mpidr(idx int) uint64 {
	return uint64(idx/coresPerCluster)<<8 | uint64(idx%coresPerCluster)
}

// simPlatform implements spm.Platform for a simulated multiprocessor.
type simPlatform struct {
	cores int
	self  int
}

func (p *simPlatform) BootInfo() (*bootinfo.BootInfo, []bootinfo.MPInfo, error) {
	info := &bootinfo.BootInfo{
		Type:    bootinfo.ParamBootInfo,
		Version: bootinfo.Version1,
		Attr:    bootinfo.AttrSecure,

		MemBase:       mem.PartitionStart,
		MemLimit:      mem.PartitionStart + mem.PartitionSize,
		ImageBase:     mem.PartitionStart,
		StackBase:     mem.StackBase,
		HeapBase:      mem.HeapBase,
		NSCommBufBase: mem.NSBufferBase,
		SharedBufBase: mem.BufferBase,

		ImageSize:     mem.PartitionSize,
		PCPUStackSize: mem.StackPCPUSize,
		HeapSize:      mem.HeapSize,
		NSCommBufSize: mem.NSBufferSize,
		SharedBufSize: mem.BufferSize,

		NumMemRegions: uint32(len(p.Regions())),
		NumCPUs:       uint32(p.cores),
	}

	var cpus []bootinfo.MPInfo

	for i := 0; i < p.cores; i++ {
		cpus = append(cpus, bootinfo.MPInfo{MPIDR: mpidr(i)})
	}

	return info, cpus, nil
}

func (p *simPlatform) CorePos(m uint64) (int, error) {
	aff0 := int(m & 0xff)
	aff1 := int(m >> 8 & 0xff)

	idx := aff1*coresPerCluster + aff0

	if m>>16 != 0 || aff0 >= coresPerCluster || idx >= p.cores {
		return 0, fmt.Errorf("invalid affinity %#x", m)
	}

	return idx, nil
}

func (p *simPlatform) MyCorePos() int {
	return p.self
}

func (p *simPlatform) Regions() []xlat.Region {
	return []xlat.Region{
		// partition image
		{Base: mem.PartitionStart, Size: mem.PartitionSize, Attr: xlat.AttrCode | xlat.AttrUser},
		// per-core stacks
		{Base: mem.StackBase, Size: mem.StackPCPUSize * mem.MaxCores, Attr: xlat.AttrRW | xlat.AttrUser},
		// heap
		{Base: mem.HeapBase, Size: mem.HeapSize, Attr: xlat.AttrRW | xlat.AttrUser},
		// boot information handoff buffer, read-only for the partition
		{Base: mem.BufferBase, Size: mem.BufferSize, Attr: xlat.AttrUser},
		// Normal World communication buffer
		{Base: mem.NSBufferBase, Size: mem.NSBufferSize, Attr: xlat.AttrRW | xlat.AttrUser | xlat.AttrNonSecure},
	}
}
