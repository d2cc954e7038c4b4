// Package ui is the SDL2 front-end: a window blitting the interpreter's
// framebuffer, a sine-wave audio device gated by the sound timer, and a
// keyboard event source feeding chip8.Keyboard through the port fabric.
package ui

// typedef unsigned char Uint8;
// void chip8vmSineWave(void *userdata, Uint8 *stream, int len);
import "C"

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"time"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/ngrath/chip8vm/internal/chip8"
	"github.com/ngrath/chip8vm/internal/keymap"
	"github.com/ngrath/chip8vm/internal/port"
)

const (
	AudioFrequency = 16000
	AudioFormat    = sdl.AUDIO_S16
	AudioChannels  = 2
	AudioSamples   = 512

	toneHz = 200
	dPhase = 2 * math.Pi * toneHz / AudioFrequency

	// FrameRate is how often the window redraws and polls input, independent
	// of the interpreter's own CPU frequency.
	FrameRate = 60
)

// Color is a packed 0xRRGGBB value; DefaultBackground/DefaultForeground give
// the classic white-on-black CHIP-8 screen.
type Color uint32

const (
	DefaultBackground Color = 0x000000
	DefaultForeground Color = 0xFFFFFF
)

// ParseColor parses a "#RRGGBB" or "RRGGBB" string, as accepted by the
// --bg-color/--fg-color flags.
func ParseColor(s string) (Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	var v uint32
	if _, err := fmt.Sscanf(s, "%06x", &v); err != nil {
		return 0, fmt.Errorf("ui: invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

// Options configures window appearance and key translation.
type Options struct {
	WindowWidth  int32
	WindowHeight int32
	Background   Color
	Foreground   Color
	Keymap       keymap.Profile
}

// DefaultOptions returns a classic monochrome 512x256 window with the
// default keyboard profile.
func DefaultOptions() Options {
	return Options{
		WindowWidth:  512,
		WindowHeight: 256,
		Background:   DefaultBackground,
		Foreground:   DefaultForeground,
		Keymap:       keymap.Default,
	}
}

// Frontend owns the SDL window and audio device and is the sole consumer of
// chip8.Display and producer of chip8.KeyEvent in this tree.
type Frontend struct {
	opts Options

	window *sdl.Window
	audio  sdl.AudioDeviceID

	blockWidth  int32
	blockHeight int32

	keys *port.Chan[chip8.KeyEvent]
}

// New creates the window and opens the default playback device. SDL itself
// must run on the main OS thread, matching sdl.Main's requirement in every
// go-sdl2 program in the pack.
func New(opts Options) (*Frontend, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("ui: sdl.Init: %w", err)
	}

	win, err := sdl.CreateWindow("chip8vm", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		opts.WindowWidth, opts.WindowHeight, sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("ui: sdl.CreateWindow: %w", err)
	}

	f := &Frontend{
		opts:        opts,
		window:      win,
		blockWidth:  opts.WindowWidth / chip8.DisplayWidth,
		blockHeight: opts.WindowHeight / chip8.DisplayHeight,
		keys:        port.NewChan[chip8.KeyEvent](),
	}

	spec := sdl.AudioSpec{
		Freq:     AudioFrequency,
		Format:   AudioFormat,
		Channels: AudioChannels,
		Samples:  AudioSamples,
		Callback: sdl.AudioCallback(C.chip8vmSineWave),
	}
	dev, err := sdl.OpenAudioDevice("", false, &spec, nil, 0)
	if err != nil {
		// Audio is a nice-to-have; a headless CI box with no playback device
		// should still be able to run the interpreter and exercise the display.
		dev = 0
	}
	f.audio = dev

	return f, nil
}

// KeyEvents exposes the SDL keyboard as a port.OutputPort[chip8.KeyEvent],
// ready to be wired to chip8.Keyboard via port.Connect.
func (f *Frontend) KeyEvents() port.OutputPort[chip8.KeyEvent] {
	return f.keys
}

// SetBeeping pauses or resumes the audio device; internal/beep drives this
// from the sound timer's Started/Stopped events.
func (f *Frontend) SetBeeping(on bool) {
	if f.audio == 0 {
		return
	}
	sdl.PauseAudioDevice(f.audio, !on)
}

// Run polls SDL events and redraws display at FrameRate until ctx is done
// or the window receives a quit event, at which point it raises stop.
func (f *Frontend) Run(ctx context.Context, display *chip8.Display, stop *port.ControlPin) error {
	ticker := time.NewTicker(time.Second / FrameRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stop.Done():
			return nil
		case <-ticker.C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				if f.handleEvent(event) {
					stop.Raise()
					return nil
				}
			}
			if err := f.draw(display.Snapshot()); err != nil {
				return err
			}
		}
	}
}

// handleEvent applies one SDL event, returning true if it signals quit.
func (f *Frontend) handleEvent(event sdl.Event) bool {
	switch t := event.(type) {
	case *sdl.QuitEvent:
		return true
	case *sdl.KeyboardEvent:
		if t.Keysym.Sym == sdl.K_ESCAPE {
			return true
		}
		key, ok := f.opts.Keymap[t.Keysym.Sym]
		if !ok {
			return false
		}
		state := chip8.KeyUp
		if t.Type == sdl.KEYDOWN {
			state = chip8.KeyDown
		}
		select {
		case f.keys.Input() <- chip8.KeyEvent{Key: key, State: state}:
		default:
		}
	}
	return false
}

func (f *Frontend) draw(frame chip8.Frame) error {
	surface, err := f.window.GetSurface()
	if err != nil {
		return fmt.Errorf("ui: GetSurface: %w", err)
	}
	if err := surface.FillRect(nil, uint32(f.opts.Background)); err != nil {
		return fmt.Errorf("ui: FillRect background: %w", err)
	}

	for y := 0; y < chip8.DisplayHeight; y++ {
		for x := 0; x < chip8.DisplayWidth; x++ {
			if !frame.Pixel(x, y) {
				continue
			}
			rect := sdl.Rect{
				X: int32(x) * f.blockWidth,
				Y: int32(y) * f.blockHeight,
				W: f.blockWidth,
				H: f.blockHeight,
			}
			if err := surface.FillRect(&rect, uint32(f.opts.Foreground)); err != nil {
				return fmt.Errorf("ui: FillRect pixel: %w", err)
			}
		}
	}
	if err := f.window.UpdateSurface(); err != nil {
		return fmt.Errorf("ui: UpdateSurface: %w", err)
	}
	return nil
}

// Close tears down the audio device and window.
func (f *Frontend) Close() {
	if f.audio != 0 {
		sdl.CloseAudioDevice(f.audio)
	}
	if f.window != nil {
		_ = f.window.Destroy()
	}
	sdl.Quit()
}

//export chip8vmSineWave
func chip8vmSineWave(userdata unsafe.Pointer, stream *C.Uint8, length C.int) {
	n := int(length) / 2
	hdr := reflect.SliceHeader{Data: uintptr(unsafe.Pointer(stream)), Len: n, Cap: n}
	buf := *(*[]C.ushort)(unsafe.Pointer(&hdr))

	var phase float64
	for i := 0; i < n; i++ {
		phase += dPhase
		buf[i] = C.ushort((math.Sin(phase) + 0.999999) * 32768)
	}
}
