// Command rsim is the simulator CLI: it loads an assembled artifact and
// an interrupt schedule, drives the control unit to termination, and
// prints the rendered output buffer plus the instruction/tick counts,
// mirroring original_source/processor.py's `main`/`launch_processor`.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"rvm/internal/datapath"
	"rvm/internal/isa"
	"rvm/internal/sim"
)

func main() {
	var limit int
	var debug bool

	root := &cobra.Command{
		Use:   "rsim <code_file> <input_file> [int|str]",
		Short: "Run an assembled artifact against a scheduled input stream",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			codePath, inputPath := args[0], args[1]
			mode := datapath.ModeString
			if len(args) == 3 && args[2] == "int" {
				mode = datapath.ModeInt
			}
			return run(codePath, inputPath, mode, limit, debug)
		},
		SilenceUsage: true,
	}
	root.Flags().IntVar(&limit, "limit", sim.DefaultLimit, "instruction-count cap before a fatal abort")
	root.Flags().BoolVar(&debug, "debug", false, "emit one trace record per executed instruction to stderr")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rsim:", err)
		os.Exit(1)
	}
}

func run(codePath, inputPath string, mode datapath.Mode, limit int, debug bool) error {
	codeRaw, err := os.ReadFile(codePath)
	if err != nil {
		return fmt.Errorf("reading code file: %w", err)
	}
	artifact, err := isa.Decode(codeRaw)
	if err != nil {
		return fmt.Errorf("decoding artifact: %w", err)
	}

	scheduleRaw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}
	schedule, err := sim.ParseSchedule(scheduleRaw)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	logger := sim.NewLogger(os.Stderr, level)

	res, err := sim.Run(artifact, schedule, sim.Options{Mode: mode, Limit: limit, Logger: logger})
	if err != nil {
		return err
	}

	fmt.Println(res.Output)
	fmt.Println("instr_counter:", res.InstrCount, "ticks:", res.Tick)
	return nil
}
