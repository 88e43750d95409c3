// Command bootsim runs the boot and kernel stages on a simulated PC.
//
// The boot stage runs in one image mapping, which is then copied to a new
// address the way a loader re-bases an image; the kernel stage reads the
// handoff table through the copy. Afterwards a set of readers dispatch port
// reads through the port I/O table while a writer swaps the inb vector under
// them.
//
// Usage: bootsim [-config boot.toml] [-screenshot out.png] [-dump out.bin[.zst]]
//
//	-config: boot configuration (default: built-in)
//	-screenshot: render the final console to a PNG
//	-dump: write the final console as a raw text-buffer dump
//	-serial: copy what went out on the serial line to stdout
//	-pace: with -serial, copy no faster than the configured baud rate
//	-readers, -rounds: shape of the dispatch race
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/johndah4x0r/magnetite-os/config"
	"github.com/johndah4x0r/magnetite-os/klog"
)

func main() {
	var opts options
	var cfgFile string
	flag.StringVar(&cfgFile, "config", "", "Boot configuration file")
	flag.StringVar(&opts.screenshot, "screenshot", "", "Write the final console to this PNG")
	flag.StringVar(&opts.dump, "dump", "", "Write the final console to this dump file")
	flag.BoolVar(&opts.serial, "serial", false, "Copy the serial line to stdout")
	flag.BoolVar(&opts.pace, "pace", false, "Copy the serial line at its baud rate")
	flag.IntVar(&opts.readers, "readers", 4, "Concurrent dispatchers in the race")
	flag.IntVar(&opts.rounds, "rounds", 1000, "Dispatches per reader")
	flag.Parse()

	cfg := config.Default()
	if cfgFile != "" {
		c, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = *c
	}
	if opts.readers < 1 || opts.rounds < 1 {
		fmt.Fprintf(os.Stderr, "Error: -readers and -rounds must be positive\n")
		os.Exit(1)
	}

	log := slog.New(klog.Stderr(cfg.LogLevel()))
	opts.stdout = os.Stdout
	if _, err := run(&cfg, &opts, log); err != nil {
		log.Error("simulation failed", "err", err)
		os.Exit(1)
	}
}
