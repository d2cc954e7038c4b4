// Command chip8vm is the interactive CHIP-8 emulator: it loads a ROM image,
// runs the interpreter on its own goroutine, and drives an SDL2 window for
// display, keyboard, and the sound timer beep.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ngrath/chip8vm/internal/beep"
	"github.com/ngrath/chip8vm/internal/chip8"
	"github.com/ngrath/chip8vm/internal/keymap"
	"github.com/ngrath/chip8vm/internal/port"
	"github.com/ngrath/chip8vm/internal/ui"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		cpuFrequency      float64
		bgColor           string
		fgColor           string
		kbProfile         string
		loadStoreIgnoresI bool
		shiftReadsVx      bool
		drawWrapsPixels   bool
		strictPC          bool
		verbose           bool
	)

	cmd := &cobra.Command{
		Use:     "chip8vm",
		Short:   "Run a CHIP-8 ROM",
		Version: "0.1.0",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stderr, "", log.LstdFlags)
			if !verbose {
				logger.SetOutput(io.Discard)
			}

			rom, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("chip8vm: reading ROM: %w", err)
			}

			var quirks chip8.Quirks
			if loadStoreIgnoresI {
				quirks |= chip8.LoadStoreIgnoresI
			}
			if shiftReadsVx {
				quirks |= chip8.ShiftReadsVx
			}
			if drawWrapsPixels {
				quirks |= chip8.DrawWrapsPixels
			}

			sys := chip8.NewSystem(chip8.SystemOptions{
				CPUFrequencyHz: cpuFrequency,
				Quirks:         quirks,
				StrictPC:       strictPC,
				Logger:         logger,
			})
			if err := sys.LoadROM(rom); err != nil {
				return fmt.Errorf("chip8vm: loading ROM: %w", err)
			}

			profile, err := keymap.Lookup(kbProfile)
			if err != nil {
				return err
			}
			bg, err := ui.ParseColor(bgColor)
			if err != nil {
				return err
			}
			fg, err := ui.ParseColor(fgColor)
			if err != nil {
				return err
			}

			opts := ui.DefaultOptions()
			opts.Background = bg
			opts.Foreground = fg
			opts.Keymap = profile

			frontend, err := ui.New(opts)
			if err != nil {
				return fmt.Errorf("chip8vm: initializing display: %w", err)
			}
			defer frontend.Close()

			return run(sys, frontend, logger)
		},
	}

	cmd.Flags().Float64Var(&cpuFrequency, "cpu-frequency", chip8.DefaultFrequency, "interpreter clock rate in Hz")
	cmd.Flags().StringVar(&bgColor, "bg-color", fmt.Sprintf("%06X", ui.DefaultBackground), "background color as RRGGBB")
	cmd.Flags().StringVar(&fgColor, "fg-color", fmt.Sprintf("%06X", ui.DefaultForeground), "foreground color as RRGGBB")
	cmd.Flags().StringVar(&kbProfile, "kb-profile", "default", "keyboard profile: default, qwerty, azerty")
	cmd.Flags().BoolVar(&loadStoreIgnoresI, "load-store-ignores-i", false, "FX55/FX65 leave I unchanged")
	cmd.Flags().BoolVar(&shiftReadsVx, "shift-reads-vx", false, "SHR/SHL read Vx instead of Vy")
	cmd.Flags().BoolVar(&drawWrapsPixels, "draw-wraps-pixels", false, "DRW wraps off-screen pixels instead of clipping")
	cmd.Flags().BoolVar(&strictPC, "strict-pc", false, "reject odd program-counter values")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable interpreter logging")

	return cmd
}

// run wires the interpreter, the SDL front-end, and the beep adapter
// together through the port fabric, then blocks until either the window
// closes or SIGINT arrives.
func run(sys *chip8.System, frontend *ui.Frontend, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pin := port.NewControlPin()
	go func() {
		<-ctx.Done()
		pin.Raise()
	}()

	port.Connect(frontend.KeyEvents(), sys.Keyboard(), pin)
	beep.Listen(sys.SoundTimer(), frontend, pin)

	runCtx, cancelRun := pin.Context(ctx)
	defer cancelRun()

	errc := make(chan error, 1)
	go func() { errc <- sys.Run(runCtx) }()

	if err := frontend.Run(runCtx, sys.Display(), pin); err != nil {
		sys.Shutdown()
		return fmt.Errorf("chip8vm: display: %w", err)
	}
	sys.Shutdown()

	if err := <-errc; err != nil {
		logger.Printf("interpreter stopped: %v", err)
		return fmt.Errorf("chip8vm: %w", err)
	}
	return nil
}
