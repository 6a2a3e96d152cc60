// Package sim is the simulation driver: it loads an artifact and an
// interrupt schedule, constructs the datapath and control unit, drives
// the tick loop to termination, and renders the final output buffer.
// Grounded on original_source/processor.py's simulation()/
// launch_processor() and vm/run.go's RunProgram/RunProgramDebugMode
// split between a silent loop and a traced one.
package sim

import (
	"fmt"
	"io"
	"log/slog"

	"rvm/internal/cpu"
	"rvm/internal/datapath"
	"rvm/internal/isa"
)

// DefaultLimit is the instruction-count cap original_source/processor.py
// hardcodes into launch_processor; here it is the default for a tunable
// --limit flag (see SPEC_FULL.md's SUPPLEMENTED FEATURES).
const DefaultLimit = 100000

// Options configures a single run.
type Options struct {
	Mode   datapath.Mode
	Limit  int          // 0 means DefaultLimit
	Logger *slog.Logger // nil means a silent logger
}

// Result is what a completed (or cleanly terminated) simulation returns.
type Result struct {
	Output     string
	InstrCount int
	Tick       int
	Outcome    cpu.Outcome
}

// Run drives the control unit to termination: HLT, input exhaustion,
// a write-to-r0 fault, or the instruction-count cap (fatal).
func Run(artifact isa.Artifact, schedule map[int]int32, opts Options) (Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Input arrives solely through the tick-scheduled admission
	// mechanism (see DESIGN.md) — the datapath starts with an empty
	// input buffer and is fed exclusively by admitted interrupts.
	dp := datapath.New(artifact.Data, nil, opts.Mode)
	sched := cpu.NewSchedule(schedule)
	c := cpu.New(artifact.Code, dp, sched)

	for {
		if c.InstrCount >= limit {
			return Result{}, fmt.Errorf("sim: instruction count limit (%d) exceeded", limit)
		}

		res := c.Step()
		logger.Debug("microstep",
			"instr_count", c.InstrCount,
			"tick", c.Tick,
			"pc", c.Regs.Get(isa.PC),
			"r0", c.Regs.Get(isa.R0),
			"r1", c.Regs.Get(isa.R1),
			"r2", c.Regs.Get(isa.R2),
			"r3", c.Regs.Get(isa.R3),
			"r4", c.Regs.Get(isa.R4),
			"sp", c.Regs.Get(isa.SP),
			"is_interrupted", c.IsInterrupted(),
			"outcome", res.Outcome.String(),
		)

		switch res.Outcome {
		case cpu.Continue:
			continue

		case cpu.Halted:
			logger.Info("simulation complete",
				"instr_count", c.InstrCount, "tick", c.Tick, "output", dp.Output())
			return Result{Output: dp.Output(), InstrCount: c.InstrCount, Tick: c.Tick, Outcome: res.Outcome}, nil

		case cpu.InputExhausted, cpu.ReadOnlyWrite:
			logger.Warn("simulation terminated early",
				"reason", res.Outcome.String(), "err", res.Err,
				"instr_count", c.InstrCount, "tick", c.Tick)
			return Result{Output: dp.Output(), InstrCount: c.InstrCount, Tick: c.Tick, Outcome: res.Outcome}, nil
		}
	}
}
