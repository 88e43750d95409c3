// Command vtgen generates vector table definitions.
//
// A definition file names the table, its package, and its slots in binary
// order. vtgen emits the entry-set struct, enumerated slot selectors built
// with vtable.DefineSlot, a layout check, a Place constructor, typed call and
// modify helpers, and for static tables the package-level instance.
//
// Usage: vtgen -in <def.vt.toml> [-out <file.go>] [-vtable <import path>]
//
//	-in: table definition (required)
//	-out: generated Go file (default: <def>_vt.go next to the definition)
//	-vtable: import path of the vtable package
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultVtablePath = "github.com/johndah4x0r/magnetite-os/vtable"

func main() {
	var inFile, outFile, vtablePath string
	flag.StringVar(&inFile, "in", "", "Table definition file (required)")
	flag.StringVar(&outFile, "out", "", "Generated Go file")
	flag.StringVar(&vtablePath, "vtable", defaultVtablePath, "Import path of the vtable package")
	flag.Parse()

	if inFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -in flag is required\n")
		fmt.Fprintf(os.Stderr, "Usage: %s -in <def.vt.toml> [-out <file.go>]\n", os.Args[0])
		os.Exit(1)
	}
	if outFile == "" {
		outFile = strings.TrimSuffix(inFile, ".vt.toml") + "_vt.go"
	}

	def, err := LoadDef(inFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	src, err := Generate(def, filepath.Base(inFile), vtablePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outFile, src, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to %s: %v\n", outFile, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Generated %s (%s, %d slots)\n", outFile, def.Table, len(def.Slots))
}
