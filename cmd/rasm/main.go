// Command rasm is the two-pass assembler CLI: it reads a source file and
// writes the assembled JSON artifact, mirroring original_source/
// translation.py's `main([source, target])` entry point but built on
// cobra per SPEC_FULL.md's CLI choice.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rvm/internal/asm"
	"rvm/internal/isa"
)

func main() {
	root := &cobra.Command{
		Use:   "rasm <source> <target>",
		Short: "Assemble a register-machine source file into a JSON artifact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target := args[0], args[1]
			return run(source, target)
		},
		SilenceUsage: true,
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rasm:", err)
		os.Exit(1)
	}
}

func run(sourcePath, targetPath string) error {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	artifact, err := asm.Assemble(string(src))
	if err != nil {
		return err
	}

	out, err := isa.Encode(artifact)
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}

	if err := os.WriteFile(targetPath, out, 0o644); err != nil {
		return fmt.Errorf("writing target: %w", err)
	}

	fmt.Printf("source LoC: %d, code instr: %d\n", strings.Count(string(src), "\n")+1, len(artifact.Code))
	return nil
}
