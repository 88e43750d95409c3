// Command vgadump converts a raw text-buffer dump to a PNG. Dumps may be
// zstd-compressed.
//
// Input format:
//
//	4 bytes: columns (uint32 little-endian)
//	4 bytes: rows (uint32 little-endian)
//	columns*rows*2 bytes: cells (uint16 little-endian, attribute high)
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	gg "github.com/fogleman/gg"

	"github.com/johndah4x0r/magnetite-os/internal/dumpfile"
	"github.com/johndah4x0r/magnetite-os/vga"
)

func main() {
	var text bool
	flag.BoolVar(&text, "text", false, "Also print the page as text")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vgadump [-text] <input-dump> <output-png>\n")
		fmt.Fprintf(os.Stderr, "Renders a text-buffer dump written by bootsim -dump\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	var out io.Writer
	if text {
		out = os.Stdout
	}
	cols, rows, err := convert(flag.Arg(0), flag.Arg(1), out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Page size: %d x %d\n", cols, rows)
}

// convert renders the dump at inputPath to a PNG at outputPath, and writes
// the page as text to text when it is non-nil.
func convert(inputPath, outputPath string, text io.Writer) (cols, rows int, err error) {
	file, err := dumpfile.Open(inputPath)
	if err != nil {
		return 0, 0, fmt.Errorf("opening dump: %w", err)
	}
	defer file.Close()

	cells, cols, rows, err := vga.ReadDump(file)
	if err != nil {
		return 0, 0, err
	}

	img, err := vga.Render(cells, cols, rows)
	if err != nil {
		return 0, 0, err
	}
	if err := gg.SavePNG(outputPath, img); err != nil {
		return 0, 0, fmt.Errorf("writing %s: %w", outputPath, err)
	}

	if text != nil {
		line := make([]byte, cols)
		for y := range rows {
			for x := range cols {
				ch := byte(cells[y*cols+x])
				if ch < 0x20 || ch >= 0x7f {
					ch = ' '
				}
				line[x] = ch
			}
			fmt.Fprintln(text, strings.TrimRight(string(line), " "))
		}
	}
	return cols, rows, nil
}
