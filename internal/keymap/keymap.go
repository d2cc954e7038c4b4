// Package keymap maps host SDL keycodes onto CHIP-8 keypad keys. The
// COSMAC VIP keypad was a 4x4 hex grid; every profile here lays that grid
// over the left-hand 4x4 block of a QWERTY or AZERTY keyboard.
package keymap

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/ngrath/chip8vm/internal/chip8"
)

// Profile maps host SDL keycodes to CHIP-8 keys.
type Profile map[sdl.Keycode]chip8.Key

// Default is the layout used by dustinbowers-chip8emu's main.go: 1234/qwer/
// asdf/zxcv mapped onto the keypad's 123C/456D/789E/A0BF rows.
var Default = Profile{
	sdl.K_1: chip8.Key1, sdl.K_2: chip8.Key2, sdl.K_3: chip8.Key3, sdl.K_4: chip8.KeyC,
	sdl.K_q: chip8.Key4, sdl.K_w: chip8.Key5, sdl.K_e: chip8.Key6, sdl.K_r: chip8.KeyD,
	sdl.K_a: chip8.Key7, sdl.K_s: chip8.Key8, sdl.K_d: chip8.Key9, sdl.K_f: chip8.KeyE,
	sdl.K_z: chip8.KeyA, sdl.K_x: chip8.Key0, sdl.K_c: chip8.KeyB, sdl.K_v: chip8.KeyF,
}

// Qwerty is an alias of Default kept as its own named profile for CLI
// selection, since "qwerty" is the layout name players actually look for.
var Qwerty = Default

// Azerty is Default with the AZERTY letter swaps applied (a/z on the second
// row, q on the third, w on the fourth), so the grid stays on the same
// physical keys of an AZERTY keyboard.
var Azerty = Profile{
	sdl.K_1: chip8.Key1, sdl.K_2: chip8.Key2, sdl.K_3: chip8.Key3, sdl.K_4: chip8.KeyC,
	sdl.K_a: chip8.Key4, sdl.K_z: chip8.Key5, sdl.K_e: chip8.Key6, sdl.K_r: chip8.KeyD,
	sdl.K_q: chip8.Key7, sdl.K_s: chip8.Key8, sdl.K_d: chip8.Key9, sdl.K_f: chip8.KeyE,
	sdl.K_w: chip8.KeyA, sdl.K_x: chip8.Key0, sdl.K_c: chip8.KeyB, sdl.K_v: chip8.KeyF,
}

// Profiles indexes every named profile for CLI lookup by name.
var Profiles = map[string]Profile{
	"default": Default,
	"qwerty":  Qwerty,
	"azerty":  Azerty,
}

// Lookup resolves a profile by name, as selected via --kb-profile.
func Lookup(name string) (Profile, error) {
	p, ok := Profiles[name]
	if !ok {
		return nil, fmt.Errorf("keymap: unknown profile %q", name)
	}
	return p, nil
}
