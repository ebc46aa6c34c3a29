// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

// This memory layout places the secure partition image, its handoff
// structures and its translation tables in the secure DRAM window.
const (
	// Secure Partition image
	PartitionStart = 0x80000000
	PartitionSize  = 0x02000000 // 32MB

	// Secure Partition entry point
	PartitionEntry = PartitionStart

	// S-EL1 exception vector shim
	VectorStart = 0x82000000
	VectorSize  = 0x00010000 // 64KB

	// Secure Partition per-core stacks
	StackBase     = 0x82100000
	StackPCPUSize = 0x00002000 // 8KB

	// Secure Partition heap
	HeapBase = 0x82200000
	HeapSize = 0x00100000 // 1MB

	// Buffer shared between SPM and Secure Partition (boot-info handoff)
	BufferBase = 0x83000000
	BufferSize = 0x00100000 // 1MB

	// Buffer shared between Normal World and Secure Partition
	NSBufferBase = 0x84000000
	NSBufferSize = 0x00100000 // 1MB

	// Translation base table
	TableBase = 0x85000000
)

// Supported address space bounds for the partition translation regime.
const (
	MaxVA = 0xffffffff
	MaxPA = 0xffffffff
)

// Implementation defined cookie values passed to the partition at first
// entry.
const (
	Cookie0 = 0x00000000
	Cookie1 = 0x00000000
)

// MaxGranule is the maximum translation granule size supported by the paging
// hardware.
const MaxGranule = 0x10000 // 64KB

// MaxCores is the platform core count ceiling.
const MaxCores = 4
