package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ZhangLang001/mclinker/pkg/linker"
	"github.com/ZhangLang001/mclinker/pkg/utils"
)

var version string

func main() {
	cfg := linker.NewConfig()
	args := parseArgs(cfg)

	// Without an explicit -m, take the machine type of the first
	// recognizable object on the command line.
	if cfg.Emulation == linker.MachineTypeNone {
		for _, arg := range args {
			if strings.HasPrefix(arg.value, "-") {
				continue
			}
			file, err := linker.NewFile(arg.value)
			if err != nil {
				continue
			}
			cfg.Emulation = linker.GetMachineType(file.Contents)
			if cfg.Emulation != linker.MachineTypeNone {
				break
			}
		}
	}
	if cfg.Emulation != linker.MachineTypeARM {
		utils.Fatal("unknown emulation type")
	}

	ctx := linker.NewContext(cfg)
	builder := linker.NewInputBuilder(cfg, ctx.Tree)
	for _, arg := range args {
		var err error
		switch arg.kind {
		case argFile:
			err = builder.AddFile(arg.value)
		case argNamespec:
			err = builder.AddNamespec(arg.value)
		case argStartGroup:
			err = builder.StartGroup()
		case argEndGroup:
			err = builder.EndGroup()
		case argWholeArchive:
			builder.WholeArchive()
		case argNoWholeArchive:
			builder.NoWholeArchive()
		case argAsNeeded:
			builder.AsNeeded()
		case argNoAsNeeded:
			builder.NoAsNeeded()
		case argAddNeeded:
			builder.CopyDTNeeded()
		case argNoAddNeeded:
			builder.NoCopyDTNeeded()
		case argBdynamic:
			builder.AgainstShared()
		case argBstatic:
			builder.AgainstStatic()
		}
		if err != nil {
			utils.Fatal(err)
		}
	}

	if err := linker.Link(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mcld: error: %v\n", err)
		os.Exit(1)
	}
}

type argKind uint8

const (
	argFile argKind = iota
	argNamespec
	argStartGroup
	argEndGroup
	argWholeArchive
	argNoWholeArchive
	argAsNeeded
	argNoAsNeeded
	argAddNeeded
	argNoAddNeeded
	argBdynamic
	argBstatic
)

type arg struct {
	kind  argKind
	value string
}

func parseArgs(cfg *linker.Config) []arg {
	args := os.Args[1:]

	dashes := func(name string) []string {
		if len(name) == 1 {
			return []string{"-" + name}
		}
		return []string{"-" + name, "--" + name}
	}

	readArg := func(name string) (string, bool) {
		for _, opt := range dashes(name) {
			if args[0] == opt {
				if len(args) == 1 {
					utils.Fatal(fmt.Sprintf("option -%s: argument missing", name))
				}
				val := args[1]
				args = args[2:]
				return val, true
			}
			prefix := opt
			if len(name) > 1 {
				prefix += "="
			}
			if strings.HasPrefix(args[0], prefix) {
				val := args[0][len(prefix):]
				args = args[1:]
				return val, true
			}
		}
		return "", false
	}

	readFlag := func(name string) bool {
		for _, opt := range dashes(name) {
			if args[0] == opt {
				args = args[1:]
				return true
			}
		}
		return false
	}

	var out []arg
	push := func(kind argKind, value string) {
		out = append(out, arg{kind: kind, value: value})
	}

	for len(args) > 0 {
		if val, ok := readArg("o"); ok {
			cfg.Output = val
		} else if val, ok := readArg("output"); ok {
			cfg.Output = val
		} else if val, ok := readArg("m"); ok {
			switch val {
			case "armelf", "armelf_linux_eabi":
				cfg.Emulation = linker.MachineTypeARM
			default:
				utils.Fatal(fmt.Sprintf("unknown -m argument: %s", val))
			}
		} else if val, ok := readArg("L"); ok {
			cfg.LibraryPaths = append(cfg.LibraryPaths, val)
		} else if val, ok := readArg("l"); ok {
			push(argNamespec, val)
		} else if val, ok := readArg("sysroot"); ok {
			cfg.Sysroot = val
		} else if val, ok := readArg("e"); ok {
			cfg.Entry = val
		} else if val, ok := readArg("entry"); ok {
			cfg.Entry = val
		} else if val, ok := readArg("soname"); ok {
			cfg.SOName = val
		} else if readFlag("shared") || readFlag("Bshareable") {
			cfg.OutputType = linker.OutputDynObj
		} else if readFlag("r") || readFlag("relocatable") {
			cfg.OutputType = linker.OutputRelocatable
		} else if readFlag("pic") || readFlag("fPIC") {
			cfg.PIC = true
		} else if readFlag("Bsymbolic") {
			cfg.Bsymbolic = true
		} else if readFlag("allow-multiple-definition") {
			cfg.AllowMulDefs = true
		} else if readFlag("no-undefined") {
			cfg.NoUndefined = true
		} else if readFlag("EB") {
			cfg.LittleEndian = false
		} else if readFlag("EL") {
			cfg.LittleEndian = true
		} else if readFlag("start-group") || readFlag("(") {
			push(argStartGroup, "")
		} else if readFlag("end-group") || readFlag(")") {
			push(argEndGroup, "")
		} else if readFlag("whole-archive") {
			push(argWholeArchive, "")
		} else if readFlag("no-whole-archive") {
			push(argNoWholeArchive, "")
		} else if readFlag("as-needed") {
			push(argAsNeeded, "")
		} else if readFlag("no-as-needed") {
			push(argNoAsNeeded, "")
		} else if readFlag("add-needed") {
			push(argAddNeeded, "")
		} else if readFlag("no-add-needed") {
			push(argNoAddNeeded, "")
		} else if readFlag("Bdynamic") || readFlag("dy") {
			push(argBdynamic, "")
		} else if readFlag("Bstatic") || readFlag("dn") || readFlag("static") {
			push(argBstatic, "")
		} else if readFlag("v") || readFlag("version") {
			fmt.Printf("mcld %s\n", version)
			os.Exit(0)
		} else if readFlag("s") || readFlag("S") ||
			readFlag("gc-sections") || readFlag("eh-frame-hdr") ||
			readFlag("build-id") || readFlag("hash-style=gnu") ||
			readFlag("hash-style=sysv") {
			// Accepted and ignored.
		} else {
			if strings.HasPrefix(args[0], "-") && args[0] != "-" {
				utils.Fatal(fmt.Sprintf("unknown command line option: %s", args[0]))
			}
			push(argFile, args[0])
			args = args[1:]
		}
	}
	return out
}
