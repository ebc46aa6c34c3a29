// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"runtime"

	"github.com/usbarmory/GoTEE-spm/bootinfo"
	"github.com/usbarmory/GoTEE-spm/mem"
	"github.com/usbarmory/GoTEE-spm/monitor"
	"github.com/usbarmory/GoTEE-spm/spm"
	"github.com/usbarmory/GoTEE-spm/util"
	"github.com/usbarmory/GoTEE-spm/xlat"
)

var (
	partition *spm.SP
	plat      *simPlatform

	// imageBuf holds the partition ELF image for symbol resolution
	imageBuf []byte

	console *util.Console
)

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)
}

// buildTables stands in for the external translation table generation
// algorithm, the simulator has no paging hardware to program.
func buildTables(regions []xlat.Region, tc *xlat.Context) error {
	for _, r := range regions {
		log.Printf("SPM map %s", r)
	}

	return nil
}

func newSP(entry uint64) *spm.SP {
	return &spm.SP{
		Ctx: monitor.NewExecCtx(),
		Xlat: &xlat.Context{
			BaseTable: mem.TableBase,
			MaxVA:     mem.MaxVA,
			MaxPA:     mem.MaxPA,
			Granule:   mem.MaxGranule,
			Builder:   buildTables,
		},
		Buffer: &bootinfo.Buffer{
			Base:     mem.BufferBase,
			MaxCores: mem.MaxCores,
			Mem:      make([]byte, mem.BufferSize),
		},
		Config: spm.Config{
			Entry:         entry,
			StackBase:     mem.StackBase,
			StackPCPUSize: mem.StackPCPUSize,
			NSBufferBase:  mem.NSBufferBase,
			NSBufferSize:  mem.NSBufferSize,
			VectorBase:    mem.VectorStart,
			VectorSize:    mem.VectorSize,
			Cookie0:       mem.Cookie0,
			Cookie1:       mem.Cookie1,
		},
	}
}

// setup runs the first-entry preparation for the core responsible for the
// canonical boot image.
func setup() (err error) {
	if err = partition.Setup(plat, true); err != nil {
		return
	}

	log.Printf("SPM partition ready for entry on core %d\n%s", plat.self, partition.Ctx)

	return
}

// setupSecondary prepares an execution context for another core, the shared
// buffer is left untouched.
func setupSecondary(idx int) (sp *spm.SP, err error) {
	sp = newSP(partition.Config.Entry)
	sp.Buffer = partition.Buffer
	sp.Config.StackBase = mem.StackBase + uint64(idx)*mem.StackPCPUSize

	if err = sp.Setup(plat, false); err != nil {
		return
	}

	log.Printf("SPM partition ready for entry on core %d\n%s", idx, sp.Ctx)

	return
}

func main() {
	var addr string
	var image string
	var sym string
	var cores int

	flag.StringVar(&addr, "l", "", "SSH console listen address (one-shot demo when empty)")
	flag.StringVar(&image, "e", "", "partition ELF image overriding the configured entry point")
	flag.StringVar(&sym, "s", "", "partition image symbol overriding the ELF entry point")
	flag.IntVar(&cores, "n", mem.MaxCores, "simulated core count")
	flag.Parse()

	banner := fmt.Sprintf("SPM %s/%s (%s) • secure partition manager (simulated)", runtime.GOOS, runtime.GOARCH, runtime.Version())
	log.Printf("%s", banner)

	entry := uint64(mem.PartitionEntry)

	if image != "" {
		var err error

		if imageBuf, err = os.ReadFile(image); err != nil {
			log.Fatalf("SPM could not read partition image, %v", err)
		}

		if entry, err = util.Entry(imageBuf); err != nil {
			log.Fatalf("SPM could not parse partition image, %v", err)
		}

		if sym != "" {
			s, err := util.LookupSym(imageBuf, sym)

			if err != nil {
				log.Fatalf("SPM could not resolve entry symbol %s, %v", sym, err)
			}

			entry = s.Value
		}

		log.Printf("SPM partition image %s entry:%#.8x", image, entry)
	}

	plat = &simPlatform{cores: cores}
	partition = newSP(entry)

	if addr == "" {
		if err := setup(); err != nil {
			log.Fatalf("SPM setup failed, %v", err)
		}

		if err := enter(os.Stdout); err != nil {
			log.Fatalf("SPM partition entry failed, %v", err)
		}

		return
	}

	listener, err := net.Listen("tcp", addr)

	if err != nil {
		log.Fatalf("SPM could not initialize SSH listener, %v", err)
	}

	console = &util.Console{
		Banner:   banner,
		Help:     help,
		Handler:  cmd,
		Listener: listener,
	}

	if err = console.Start(); err != nil {
		log.Fatalf("SPM could not initialize SSH server, %v", err)
	}

	select {}
}
