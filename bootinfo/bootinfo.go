// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bootinfo implements the boot information handoff contract between
// the secure partition manager and the secure partition, a fixed layout
// record followed by a per-core MP information array, marshalled exactly
// once into a shared buffer at a fixed address.
package bootinfo

import (
	"github.com/usbarmory/tamago/bits"
)

// Boot information record parameter header values.
const (
	ParamBootInfo = 0x0a
	Version1      = 0x01
	AttrSecure    = 0x01
)

// RecordSize is the boot information record wire size.
const RecordSize = 120

// MPInfoSize is the MP information record wire size.
const MPInfoSize = 16

// FlagPrimary is the MP information flag bit marking the primary core.
const FlagPrimary = 0

// BootInfo represents the boot information record shared with the secure
// partition, all fields are fixed little-endian on the wire. The MP
// information array location is not a record field: it is carried by an
// MPInfoRef descriptor and materialized at marshalling time.
type BootInfo struct {
	// Type is the parameter header type (ParamBootInfo)
	Type uint8
	// Version is the parameter header version
	Version uint8
	// Attr is the parameter header attributes
	Attr uint32

	// MemBase is the partition memory base address
	MemBase uint64
	// MemLimit is the first address past the partition memory
	MemLimit uint64
	// ImageBase is the partition image base address
	ImageBase uint64
	// StackBase is the partition stack base address
	StackBase uint64
	// HeapBase is the partition heap base address
	HeapBase uint64
	// NSCommBufBase is the Normal World communication buffer base address
	NSCommBufBase uint64
	// SharedBufBase is the handoff buffer base address
	SharedBufBase uint64

	// ImageSize is the partition image size
	ImageSize uint64
	// PCPUStackSize is the per-core stack size
	PCPUStackSize uint64
	// HeapSize is the partition heap size
	HeapSize uint64
	// NSCommBufSize is the Normal World communication buffer size
	NSCommBufSize uint64
	// SharedBufSize is the handoff buffer size
	SharedBufSize uint64

	// NumMemRegions is the partition memory region count
	NumMemRegions uint32
	// NumCPUs is the core count
	NumCPUs uint32
}

// MPInfo represents the per-core metadata record shared with the secure
// partition.
type MPInfo struct {
	// MPIDR is the architectural core affinity identifier
	MPIDR uint64
	// LinearID is the zero-based linear core index
	LinearID uint32
	// Flags is the core flag bitset (bit 0: primary core)
	Flags uint32
}

// Primary returns whether the record carries the primary core flag.
func (mp *MPInfo) Primary() bool {
	return bits.Get(&mp.Flags, FlagPrimary, 1) == 1
}

// MPInfoRef locates the MP information array within the shared buffer as a
// {count, offset} descriptor, the wire format carries the absolute address
// buffer base + offset.
type MPInfoRef struct {
	// Count is the number of MP information records
	Count uint32
	// Offset is the array offset from the buffer base
	Offset uint64
}

// CorePos resolves an affinity identifier to a zero-based linear core index,
// the lookup is provided by the platform.
type CorePos func(mpidr uint64) (int, error)
