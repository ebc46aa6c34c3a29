// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"runtime/debug"
	"runtime/pprof"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/usbarmory/GoTEE-spm/monitor"
	"github.com/usbarmory/GoTEE-spm/util"
)

const MD_LIMIT = 102400

const help = `
  help                                   # this help
  stack                                  # stack trace of current goroutine
  stackall                               # stack trace of all goroutines

  setup                                  # first-entry preparation, boot core
  setup <core>                           # first-entry preparation, secondary core
  enter                                  # partition view of the handoff buffer

  ctx                                    # execution context register dump
  reg <name>                             # read an execution context register
  mp                                     # MP information records
  md  <hex offset> <size>                # handoff buffer display
  sym <name>                             # resolve a partition image symbol

`

var memoryCommandPattern = regexp.MustCompile(`md ([[:xdigit:]]+) (\d+)`)
var setupCommandPattern = regexp.MustCompile(`setup (\d+)`)
var regCommandPattern = regexp.MustCompile(`reg (\w+)`)
var symCommandPattern = regexp.MustCompile(`sym (\w+)`)

func memoryCommand(arg []string) (res string) {
	off, err := strconv.ParseUint(arg[0], 16, 32)

	if err != nil {
		return fmt.Sprintf("invalid offset: %v", err)
	}

	size, err := strconv.ParseUint(arg[1], 10, 32)

	if err != nil {
		return fmt.Sprintf("invalid size: %v", err)
	}

	if size > MD_LIMIT {
		return fmt.Sprintf("please only use a size argument <= %d", MD_LIMIT)
	}

	buf := partition.Buffer.Mem

	if off+size > uint64(len(buf)) {
		return "offset and size exceed the handoff buffer"
	}

	return hex.Dump(buf[off : off+size])
}

func setupCommand(arg []string) (res string) {
	idx, err := strconv.ParseUint(arg[0], 10, 8)

	if err != nil {
		return fmt.Sprintf("invalid core: %v", err)
	}

	if int(idx) >= plat.cores {
		return fmt.Sprintf("invalid core, only %d simulated", plat.cores)
	}

	if _, err := setupSecondary(int(idx)); err != nil {
		return fmt.Sprintf("%v", err)
	}

	return
}

func regCommand(arg []string) (res string) {
	name := strings.ToUpper(arg[0])

	for _, r := range partition.Ctx.Regs() {
		if r.String() == name {
			return fmt.Sprintf("%s:%#.16x", r, partition.Ctx.Get(r))
		}
	}

	return "unknown or unset register"
}

func symCommand(arg []string) (res string) {
	if len(imageBuf) == 0 {
		return "no partition image loaded"
	}

	sym, err := util.LookupSym(imageBuf, arg[0])

	if err != nil {
		return fmt.Sprintf("%v", err)
	}

	return fmt.Sprintf("%s addr:%#.8x size:%d", sym.Name, sym.Value, sym.Size)
}

func mpCommand() (res string) {
	_, cpus, _, err := partition.Buffer.Unmarshal()

	if err != nil {
		return fmt.Sprintf("%v", err)
	}

	var buf bytes.Buffer

	for _, mp := range cpus {
		buf.WriteString(fmt.Sprintf("core%d mpidr:%#.8x flags:%#.8x\n", mp.LinearID, mp.MPIDR, mp.Flags))
	}

	return buf.String()
}

// enter simulates the partition boot code view of the handoff: it parses
// the shared buffer back and self-identifies through the primary flag.
func enter(w io.Writer) (err error) {
	info, cpus, ref, err := partition.Buffer.Unmarshal()

	if err != nil {
		return
	}

	fmt.Fprintf(w, "SP boot info v%d cores:%d mp:%#.8x\n", info.Version, info.NumCPUs, partition.Buffer.Base+ref.Offset)
	fmt.Fprintf(w, "SP image:%#.8x-%#.8x stack:%#.8x heap:%#.8x\n", info.ImageBase, info.ImageBase+info.ImageSize, info.StackBase, info.HeapBase)

	for _, mp := range cpus {
		if mp.Primary() {
			fmt.Fprintf(w, "SP booting on core%d mpidr:%#.8x\n", mp.LinearID, mp.MPIDR)
		}
	}

	fmt.Fprintf(w, "SP x0:%#.8x x1:%#.8x x2:%#.8x x3:%#.8x\n",
		partition.Ctx.Get(monitor.X0), partition.Ctx.Get(monitor.X1),
		partition.Ctx.Get(monitor.X2), partition.Ctx.Get(monitor.X3))

	return
}

func cmd(t *term.Terminal, cmd string) (err error) {
	var res string

	switch cmd {
	case "exit", "quit":
		res = "logout"
		err = io.EOF
	case "help":
		res = string(t.Escape.Cyan) + help + string(t.Escape.Reset)
	case "stack":
		res = string(debug.Stack())
	case "stackall":
		buf := new(bytes.Buffer)
		pprof.Lookup("goroutine").WriteTo(buf, 1)
		res = buf.String()
	case "setup":
		if err := setup(); err != nil {
			res = fmt.Sprintf("%v", err)
		}
	case "enter":
		w := &util.TermWriter{Term: t, Color: t.Escape.Green}

		if err := enter(w); err != nil {
			res = fmt.Sprintf("%v", err)
		}
	case "ctx":
		res = partition.Ctx.String()
	case "mp":
		res = mpCommand()
	default:
		if m := memoryCommandPattern.FindStringSubmatch(cmd); len(m) == 3 {
			res = memoryCommand(m[1:])
		} else if m := setupCommandPattern.FindStringSubmatch(cmd); len(m) == 2 {
			res = setupCommand(m[1:])
		} else if m := regCommandPattern.FindStringSubmatch(cmd); len(m) == 2 {
			res = regCommand(m[1:])
		} else if m := symCommandPattern.FindStringSubmatch(cmd); len(m) == 2 {
			res = symCommand(m[1:])
		} else {
			res = "unknown command, type `help`"
		}
	}

	fmt.Fprintln(t, res)

	return
}
