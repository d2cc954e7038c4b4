// Command c8asm assembles CHIP-8 source into a raw ROM image loadable at
// 0x200.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ngrath/chip8vm/internal/asm"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "c8asm <input.asm> <output.rom>",
		Short:   "Assemble CHIP-8 source into a ROM image",
		Version: "0.1.0",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return assembleFile(args[0], args[1])
		},
	}
	return cmd
}

func assembleFile(inputPath, outputPath string) error {
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("c8asm: reading %s: %w", inputPath, err)
	}

	prog, err := asm.Parse(inputPath, string(source))
	if err != nil {
		return err
	}
	image, err := asm.Assemble(prog)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, image, 0o644); err != nil {
		return fmt.Errorf("c8asm: writing %s: %w", outputPath, err)
	}
	return nil
}
