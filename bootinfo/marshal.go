// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bootinfo

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/usbarmory/tamago/bits"

	"github.com/usbarmory/GoTEE-spm/mem"
)

var (
	ErrNilBootInfo   = errors.New("missing boot information")
	ErrOverflow      = errors.New("shared buffer wraps the address space")
	ErrNoSpace       = errors.New("shared buffer too small")
	ErrNoCores       = errors.New("zero core count")
	ErrCoreMismatch  = errors.New("core count does not match MP information")
	ErrCoreLimit     = errors.New("core count exceeds platform limit")
	ErrUnknownCore   = errors.New("affinity does not resolve to a core index")
	ErrDuplicateCore = errors.New("affinity resolves to a duplicate core index")
	ErrPrimaryFlag   = errors.New("input record carries the primary flag")
	ErrNoPrimary     = errors.New("no record resolves to the calling core")
	ErrWritten       = errors.New("shared buffer already marshalled")
	ErrBadRecord     = errors.New("not a boot information record")
	ErrBadPointer    = errors.New("MP information pointer not buffer-local")
)

// Buffer represents the shared boot information handoff buffer, its backing
// storage length sets the buffer capacity.
type Buffer struct {
	// Base is the partition visible buffer base address
	Base uint64
	// MaxCores is the platform core count ceiling
	MaxCores int
	// Mem is the backing storage
	Mem []byte

	written bool
}

// Written returns whether the buffer holds a marshalled boot image.
func (b *Buffer) Written() bool {
	return b.written
}

func (b *Buffer) putRecord(info *BootInfo, ref MPInfoRef) {
	le := binary.LittleEndian

	b.Mem[0] = info.Type
	b.Mem[1] = info.Version
	le.PutUint16(b.Mem[2:], RecordSize)
	le.PutUint32(b.Mem[4:], info.Attr)

	le.PutUint64(b.Mem[8:], info.MemBase)
	le.PutUint64(b.Mem[16:], info.MemLimit)
	le.PutUint64(b.Mem[24:], info.ImageBase)
	le.PutUint64(b.Mem[32:], info.StackBase)
	le.PutUint64(b.Mem[40:], info.HeapBase)
	le.PutUint64(b.Mem[48:], info.NSCommBufBase)
	le.PutUint64(b.Mem[56:], info.SharedBufBase)

	le.PutUint64(b.Mem[64:], info.ImageSize)
	le.PutUint64(b.Mem[72:], info.PCPUStackSize)
	le.PutUint64(b.Mem[80:], info.HeapSize)
	le.PutUint64(b.Mem[88:], info.NSCommBufSize)
	le.PutUint64(b.Mem[96:], info.SharedBufSize)

	le.PutUint32(b.Mem[104:], info.NumMemRegions)
	le.PutUint32(b.Mem[108:], ref.Count)

	// The array location is built as a buffer-local descriptor, the wire
	// carries the equivalent absolute address for the partition.
	le.PutUint64(b.Mem[112:], b.Base+ref.Offset)
}

func (b *Buffer) putMPInfo(off int, mp MPInfo) {
	le := binary.LittleEndian

	le.PutUint64(b.Mem[off:], mp.MPIDR)
	le.PutUint32(b.Mem[off+8:], mp.LinearID)
	le.PutUint32(b.Mem[off+12:], mp.Flags)
}

func (b *Buffer) getMPInfo(off int) (mp MPInfo) {
	le := binary.LittleEndian

	mp.MPIDR = le.Uint64(b.Mem[off:])
	mp.LinearID = le.Uint32(b.Mem[off+8:])
	mp.Flags = le.Uint32(b.Mem[off+12:])

	return
}

// Marshal writes the boot information record and the MP information array
// into the buffer, resolves each linear core index through pos and flags the
// record matching the calling core linear index (self) as primary.
//
// The buffer is written at most once, a second invocation is rejected. Any
// validation failure is an unrecoverable setup error.
func (b *Buffer) Marshal(info *BootInfo, cpus []MPInfo, pos CorePos, self int) (err error) {
	if b.written {
		return ErrWritten
	}

	if len(b.Mem) < RecordSize {
		return ErrNoSpace
	}

	if !mem.Fits(b.Base, uint64(len(b.Mem))) {
		return ErrOverflow
	}

	if info == nil {
		return ErrNilBootInfo
	}

	// The MP information array is placed immediately past the record.
	ref := MPInfoRef{
		Count:  info.NumCPUs,
		Offset: RecordSize,
	}

	b.putRecord(info, ref)

	switch n := int(info.NumCPUs); {
	case n == 0:
		return ErrNoCores
	case n != len(cpus):
		return ErrCoreMismatch
	case n > b.MaxCores:
		return ErrCoreLimit
	case RecordSize+n*MPInfoSize > len(b.Mem):
		return ErrNoSpace
	}

	// Copy the core records verbatim past the boot information record.
	for i, mp := range cpus {
		b.putMPInfo(RecordSize+i*MPInfoSize, mp)
	}

	// Single pass over the buffer resident array: resolve the linear
	// index of each core and flag the calling core as primary, preserving
	// record order and any platform flags.
	seen := make(map[int]bool)
	primary := false

	for i := 0; i < int(info.NumCPUs); i++ {
		off := RecordSize + i*MPInfoSize
		mp := b.getMPInfo(off)

		idx, err := pos(mp.MPIDR)

		if err != nil {
			return fmt.Errorf("%w (%v)", ErrUnknownCore, err)
		}

		if seen[idx] {
			return ErrDuplicateCore
		}
		seen[idx] = true

		// The primary flag is owned by the marshaller, a pre-flagged
		// input record would yield more than one primary.
		if mp.Primary() {
			return ErrPrimaryFlag
		}

		mp.LinearID = uint32(idx)

		if idx == self {
			bits.Set(&mp.Flags, FlagPrimary)
			primary = true
		}

		b.putMPInfo(off, mp)
	}

	if !primary {
		return ErrNoPrimary
	}

	b.written = true

	return
}

// Unmarshal reads back the boot information record and the MP information
// array, performing the validation the partition boot code applies to the
// handoff buffer.
func (b *Buffer) Unmarshal() (info *BootInfo, cpus []MPInfo, ref MPInfoRef, err error) {
	le := binary.LittleEndian

	if len(b.Mem) < RecordSize {
		return nil, nil, ref, ErrNoSpace
	}

	if b.Mem[0] != ParamBootInfo || le.Uint16(b.Mem[2:]) != RecordSize {
		return nil, nil, ref, ErrBadRecord
	}

	info = &BootInfo{
		Type:    b.Mem[0],
		Version: b.Mem[1],
		Attr:    le.Uint32(b.Mem[4:]),

		MemBase:       le.Uint64(b.Mem[8:]),
		MemLimit:      le.Uint64(b.Mem[16:]),
		ImageBase:     le.Uint64(b.Mem[24:]),
		StackBase:     le.Uint64(b.Mem[32:]),
		HeapBase:      le.Uint64(b.Mem[40:]),
		NSCommBufBase: le.Uint64(b.Mem[48:]),
		SharedBufBase: le.Uint64(b.Mem[56:]),

		ImageSize:     le.Uint64(b.Mem[64:]),
		PCPUStackSize: le.Uint64(b.Mem[72:]),
		HeapSize:      le.Uint64(b.Mem[80:]),
		NSCommBufSize: le.Uint64(b.Mem[88:]),
		SharedBufSize: le.Uint64(b.Mem[96:]),

		NumMemRegions: le.Uint32(b.Mem[104:]),
		NumCPUs:       le.Uint32(b.Mem[108:]),
	}

	ptr := le.Uint64(b.Mem[112:])

	if ptr != b.Base+RecordSize {
		return nil, nil, ref, ErrBadPointer
	}

	ref = MPInfoRef{
		Count:  info.NumCPUs,
		Offset: ptr - b.Base,
	}

	if int(ref.Offset)+int(ref.Count)*MPInfoSize > len(b.Mem) {
		return nil, nil, ref, ErrNoSpace
	}

	for i := 0; i < int(ref.Count); i++ {
		cpus = append(cpus, b.getMPInfo(int(ref.Offset)+i*MPInfoSize))
	}

	return
}
