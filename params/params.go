/*
NAME
  params.go

DESCRIPTION
  params.go defines the fixed per-mode parameter table shared by the
  modulator and demodulator: symbol timing, tone layout, and preamble
  shape. Modes are immutable values, never package-level state; callers
  pick one and pass it explicitly into the encoder/decoder.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package params defines the acoustic modem's mode table: the fixed
// symbol-rate, tone-layout, and preamble parameters that the modulator
// and demodulator agree on for a transmission.
package params

import "fmt"

// Name identifies one of the two fixed modes.
type Name string

const (
	Phone    Name = "phone"
	Wideband Name = "wideband"
)

// Mode is an immutable parameter record selected once per transmission.
// Both sides of a link must agree on the same Mode value; it is never
// carried in the wire format, so the receiver must discover it by
// correlation (see demod.DetectChirp).
type Mode struct {
	Name Name

	SampleRate int // Nominal sample rate in Hz the modulator generates at.

	SymbolMS float64 // Duration of one tone burst.
	GuardMS  float64 // Silence following each tone burst.

	NumTones      int // Must equal 1 << BitsPerSymbol.
	BitsPerSymbol int

	BaseFreq    float64 // Hz, frequency of tone index 0.
	ToneSpacing float64 // Hz between adjacent tone indices.

	WarmupMS     float64 // Fixed mid-band tone preceding the chirp.
	ChirpMS      float64 // Total duration of the up/down chirp.
	ChirpStartHz float64
	ChirpPeakHz  float64

	CalibrationTones   []int // Tone indices, one cycle.
	CalibrationRepeats int   // Number of times the cycle above repeats.
	SyncPattern        [8]int
}

// ToneFrequencies returns tone_frequencies[i] = base_freq + i*tone_spacing
// for i in [0, NumTones).
func (m Mode) ToneFrequencies() []float64 {
	freqs := make([]float64, m.NumTones)
	for i := range freqs {
		freqs[i] = m.BaseFreq + float64(i)*m.ToneSpacing
	}
	return freqs
}

// SymbolSamples returns the number of output samples one symbol (tone +
// guard) occupies at the mode's nominal sample rate.
func (m Mode) SymbolSamples() int {
	return int((m.SymbolMS + m.GuardMS) * float64(m.SampleRate) / 1000)
}

// ToneSamples returns the number of samples occupied by the tone burst
// only, excluding the guard interval, at the mode's nominal sample rate.
func (m Mode) ToneSamples() int {
	return int(m.SymbolMS * float64(m.SampleRate) / 1000)
}

// GuardSamples returns the number of samples occupied by the guard
// interval, at the mode's nominal sample rate.
func (m Mode) GuardSamples() int {
	return m.SymbolSamples() - m.ToneSamples()
}

// CalibrationSymbols returns the number of symbols in the full
// calibration block (cycle length times repeats).
func (m Mode) CalibrationSymbols() int {
	return len(m.CalibrationTones) * m.CalibrationRepeats
}

// PreambleSymbols returns the total symbol count of the
// calibration+sync block that sync lock searches for.
func (m Mode) PreambleSymbols() int {
	return m.CalibrationSymbols() + len(m.SyncPattern)
}

// BitsToSymbol packs the first BitsPerSymbol bits of bits (each a byte
// holding 0 or 1, MSB-first) into a tone index in [0, NumTones).
func (m Mode) BitsToSymbol(bits []byte) int {
	sym := 0
	for i := 0; i < m.BitsPerSymbol; i++ {
		sym = (sym << 1) | int(bits[i]&1)
	}
	return sym
}

// SymbolToBits unpacks a tone index into BitsPerSymbol bits, MSB-first,
// each represented as a byte holding 0 or 1.
func (m Mode) SymbolToBits(sym int) []byte {
	bits := make([]byte, m.BitsPerSymbol)
	for i := 0; i < m.BitsPerSymbol; i++ {
		shift := uint(m.BitsPerSymbol - 1 - i)
		bits[i] = byte((sym >> shift) & 1)
	}
	return bits
}

// BitsForToneValue returns, for every tone index, the value (0 or 1)
// that bit position p (0 = MSB) of that tone's index takes. This is
// the lookup the soft demapper uses to split per-tone magnitudes into
// per-bit evidence without recomputing SymbolToBits for every tone on
// every symbol.
func (m Mode) BitsForToneValue(p int) []byte {
	out := make([]byte, m.NumTones)
	shift := uint(m.BitsPerSymbol - 1 - p)
	for tone := range out {
		out[tone] = byte((tone >> shift) & 1)
	}
	return out
}

// Validate checks the invariants spec'd for a Mode: tone count must be
// a power of two matching BitsPerSymbol, and the sync pattern and
// calibration tones must reference valid tone indices.
func (m Mode) Validate() error {
	if m.NumTones != 1<<uint(m.BitsPerSymbol) {
		return fmt.Errorf("params: num_tones %d does not match 2^bits_per_symbol (bits=%d)", m.NumTones, m.BitsPerSymbol)
	}
	for _, idx := range m.SyncPattern {
		if idx < 0 || idx >= m.NumTones {
			return fmt.Errorf("params: sync pattern tone index %d out of range [0,%d)", idx, m.NumTones)
		}
	}
	for _, idx := range m.CalibrationTones {
		if idx < 0 || idx >= m.NumTones {
			return fmt.Errorf("params: calibration tone index %d out of range [0,%d)", idx, m.NumTones)
		}
	}
	return nil
}

// PhoneMode is the narrowband, telephony-codec-safe mode: 4 tones in
// the voiceband, tolerant of aggressive filtering.
var PhoneMode = Mode{
	Name:       Phone,
	SampleRate: 48000,

	SymbolMS: 50,
	GuardMS:  12,

	NumTones:      4,
	BitsPerSymbol: 2,

	BaseFreq:    800,
	ToneSpacing: 500,

	WarmupMS:     100,
	ChirpMS:      200,
	ChirpStartHz: 600,
	ChirpPeakHz:  2600,

	CalibrationTones:   []int{0, 2, 3, 2},
	CalibrationRepeats: 2,
	SyncPattern:        [8]int{0, 3, 0, 3, 0, 3, 0, 3},
}

// WidebandMode is the high-throughput mode for a clean, full-bandwidth
// acoustic path (speaker-to-microphone with no telephony codec).
var WidebandMode = Mode{
	Name:       Wideband,
	SampleRate: 48000,

	SymbolMS: 40,
	GuardMS:  5,

	NumTones:      16,
	BitsPerSymbol: 4,

	BaseFreq:    1800,
	ToneSpacing: 260,

	WarmupMS:     100,
	ChirpMS:      200,
	ChirpStartHz: 1500,
	ChirpPeakHz:  6000,

	CalibrationTones:   []int{0, 8, 15, 8},
	CalibrationRepeats: 2,
	SyncPattern:        [8]int{0, 15, 0, 15, 0, 15, 0, 15},
}

// All lists every defined Mode, in a fixed order, for exhaustive
// search (decoder mode search tries each in turn).
var All = []Mode{PhoneMode, WidebandMode}

// ByName looks up a Mode by its Name.
func ByName(n Name) (Mode, error) {
	for _, m := range All {
		if m.Name == n {
			return m, nil
		}
	}
	return Mode{}, fmt.Errorf("params: unknown mode %q", n)
}
