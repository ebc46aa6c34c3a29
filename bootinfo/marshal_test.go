// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bootinfo_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usbarmory/GoTEE-spm/bootinfo"
)

const (
	testBase     = 0x83000000
	testMaxCores = 8
)

func corePos(mpidr uint64) (int, error) {
	if mpidr>>8 != 0 {
		return 0, fmt.Errorf("invalid affinity %#x", mpidr)
	}

	return int(mpidr & 0xff), nil
}

func testBuffer(capacity int) *bootinfo.Buffer {
	return &bootinfo.Buffer{
		Base:     testBase,
		MaxCores: testMaxCores,
		Mem:      make([]byte, capacity),
	}
}

func testInfo(cores int) (*bootinfo.BootInfo, []bootinfo.MPInfo) {
	info := &bootinfo.BootInfo{
		Type:    bootinfo.ParamBootInfo,
		Version: bootinfo.Version1,
		Attr:    bootinfo.AttrSecure,
		NumCPUs: uint32(cores),
	}

	var cpus []bootinfo.MPInfo

	for i := 0; i < cores; i++ {
		cpus = append(cpus, bootinfo.MPInfo{MPIDR: uint64(i), Flags: 0xab00})
	}

	return info, cpus
}

func TestMarshalCapacity(t *testing.T) {
	// marshalling succeeds iff the record and the MP information array
	// fit the buffer capacity
	for cores := 1; cores <= testMaxCores; cores++ {
		need := bootinfo.RecordSize + cores*bootinfo.MPInfoSize

		info, cpus := testInfo(cores)
		err := testBuffer(need).Marshal(info, cpus, corePos, 0)
		assert.Nil(t, err, "cores:%d", cores)

		info, cpus = testInfo(cores)
		err = testBuffer(need - 1).Marshal(info, cpus, corePos, 0)
		assert.ErrorIs(t, err, bootinfo.ErrNoSpace, "cores:%d", cores)
	}
}

func TestMarshalValidation(t *testing.T) {
	info, cpus := testInfo(2)

	err := testBuffer(bootinfo.RecordSize - 1).Marshal(info, cpus, corePos, 0)
	assert.ErrorIs(t, err, bootinfo.ErrNoSpace)

	b := testBuffer(0x1000)
	b.Base = 0xffffffffffffff00

	err = b.Marshal(info, cpus, corePos, 0)
	assert.ErrorIs(t, err, bootinfo.ErrOverflow)

	err = testBuffer(0x1000).Marshal(nil, cpus, corePos, 0)
	assert.ErrorIs(t, err, bootinfo.ErrNilBootInfo)

	info.NumCPUs = 0
	err = testBuffer(0x1000).Marshal(info, nil, corePos, 0)
	assert.ErrorIs(t, err, bootinfo.ErrNoCores)

	info.NumCPUs = 3
	err = testBuffer(0x1000).Marshal(info, cpus, corePos, 0)
	assert.ErrorIs(t, err, bootinfo.ErrCoreMismatch)

	info, cpus = testInfo(testMaxCores + 1)
	b = testBuffer(0x1000)
	b.MaxCores = testMaxCores

	err = b.Marshal(info, cpus, corePos, 0)
	assert.ErrorIs(t, err, bootinfo.ErrCoreLimit)
}

func TestMarshalAnnotation(t *testing.T) {
	info, cpus := testInfo(4)
	b := testBuffer(0x1000)

	self := 2

	require.Nil(t, b.Marshal(info, cpus, corePos, self))

	out, mp, ref, err := b.Unmarshal()
	require.Nil(t, err)

	assert.Equal(t, uint32(4), out.NumCPUs)
	assert.Equal(t, uint32(4), ref.Count)
	assert.Equal(t, uint64(bootinfo.RecordSize), ref.Offset)

	primary := 0

	for i, rec := range mp {
		// original order and affinity identifiers
		assert.Equal(t, cpus[i].MPIDR, rec.MPIDR)

		// resolved linear index
		assert.Equal(t, uint32(i), rec.LinearID)

		// original flag bits preserved
		assert.Equal(t, uint32(0xab00), rec.Flags&0xab00)

		if rec.Primary() {
			primary++
			assert.Equal(t, self, int(rec.LinearID))
		}
	}

	// exactly one record carries the primary flag
	assert.Equal(t, 1, primary)
}

func TestMarshalPointer(t *testing.T) {
	info, cpus := testInfo(2)
	b := testBuffer(0x1000)

	require.Nil(t, b.Marshal(info, cpus, corePos, 0))

	// the patched pointer always equals buffer base + record size, never
	// the platform array address
	ptr := binary.LittleEndian.Uint64(b.Mem[112:])
	assert.Equal(t, uint64(testBase+bootinfo.RecordSize), ptr)
}

func TestMarshalOnce(t *testing.T) {
	info, cpus := testInfo(2)
	b := testBuffer(0x1000)

	require.Nil(t, b.Marshal(info, cpus, corePos, 0))
	require.True(t, b.Written())

	err := b.Marshal(info, cpus, corePos, 0)
	assert.ErrorIs(t, err, bootinfo.ErrWritten)
}

func TestMarshalCorePos(t *testing.T) {
	info, cpus := testInfo(2)
	cpus[1].MPIDR = 0x1000

	err := testBuffer(0x1000).Marshal(info, cpus, corePos, 0)
	assert.ErrorIs(t, err, bootinfo.ErrUnknownCore)

	info, cpus = testInfo(2)
	cpus[1].MPIDR = cpus[0].MPIDR

	err = testBuffer(0x1000).Marshal(info, cpus, corePos, 0)
	assert.ErrorIs(t, err, bootinfo.ErrDuplicateCore)

	// no record resolves to the calling core
	info, cpus = testInfo(2)

	err = testBuffer(0x1000).Marshal(info, cpus, corePos, 5)
	assert.ErrorIs(t, err, bootinfo.ErrNoPrimary)
}

func TestMarshalPrimaryFlag(t *testing.T) {
	// an input record arriving with the primary flag already set would
	// yield a second primary record next to the calling core
	info, cpus := testInfo(2)
	cpus[1].Flags |= 1 << bootinfo.FlagPrimary

	err := testBuffer(0x1000).Marshal(info, cpus, corePos, 0)
	assert.ErrorIs(t, err, bootinfo.ErrPrimaryFlag)
}

func TestUnmarshalValidation(t *testing.T) {
	_, _, _, err := testBuffer(8).Unmarshal()
	assert.ErrorIs(t, err, bootinfo.ErrNoSpace)

	b := testBuffer(0x1000)
	_, _, _, err = b.Unmarshal()
	assert.ErrorIs(t, err, bootinfo.ErrBadRecord)

	info, cpus := testInfo(2)
	require.Nil(t, b.Marshal(info, cpus, corePos, 0))

	// corrupt the array pointer
	binary.LittleEndian.PutUint64(b.Mem[112:], 0xdead0000)

	_, _, _, err = b.Unmarshal()
	assert.ErrorIs(t, err, bootinfo.ErrBadPointer)
}

func TestRoundTrip(t *testing.T) {
	info, cpus := testInfo(3)

	info.MemBase = 0x80000000
	info.MemLimit = 0x82000000
	info.ImageBase = 0x80000000
	info.StackBase = 0x82100000
	info.HeapBase = 0x82200000
	info.NSCommBufBase = 0x84000000
	info.SharedBufBase = testBase
	info.ImageSize = 0x02000000
	info.PCPUStackSize = 0x2000
	info.HeapSize = 0x100000
	info.NSCommBufSize = 0x100000
	info.SharedBufSize = 0x1000
	info.NumMemRegions = 5

	b := testBuffer(0x1000)
	require.Nil(t, b.Marshal(info, cpus, corePos, 0))

	out, _, _, err := b.Unmarshal()
	require.Nil(t, err)

	assert.Equal(t, info, out)
}

func TestErrorsAreDistinct(t *testing.T) {
	errs := []error{
		bootinfo.ErrNilBootInfo,
		bootinfo.ErrOverflow,
		bootinfo.ErrNoSpace,
		bootinfo.ErrNoCores,
		bootinfo.ErrCoreMismatch,
		bootinfo.ErrCoreLimit,
		bootinfo.ErrUnknownCore,
		bootinfo.ErrDuplicateCore,
		bootinfo.ErrPrimaryFlag,
		bootinfo.ErrNoPrimary,
		bootinfo.ErrWritten,
		bootinfo.ErrBadRecord,
		bootinfo.ErrBadPointer,
	}

	for i, a := range errs {
		for j, b := range errs {
			if i != j {
				assert.False(t, errors.Is(a, b))
			}
		}
	}
}
