/*
NAME
  modulate_test.go

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package modulate

import (
	"math"
	"testing"

	"github.com/n3modem/n3modem/params"
)

func TestToneBurstLength(t *testing.T) {
	for _, mode := range params.All {
		burst := ToneBurst(mode, mode.ToneFrequencies()[0])
		if len(burst) != mode.SymbolSamples() {
			t.Errorf("%s: tone burst length = %d, want %d", mode.Name, len(burst), mode.SymbolSamples())
		}
	}
}

func TestToneBurstEdgesRamped(t *testing.T) {
	mode := params.PhoneMode
	burst := ToneBurst(mode, mode.ToneFrequencies()[1])
	if math.Abs(burst[0]) > 0.05 {
		t.Errorf("first sample = %v, want near zero (ramped in)", burst[0])
	}
	toneEnd := mode.ToneSamples() - 1
	if math.Abs(burst[toneEnd]) > 0.05 {
		t.Errorf("last tone sample = %v, want near zero (ramped out)", burst[toneEnd])
	}
	for _, s := range burst[mode.ToneSamples():] {
		if s != 0 {
			t.Fatalf("guard interval sample = %v, want 0", s)
		}
	}
}

func TestChirpLengthAndContinuity(t *testing.T) {
	for _, mode := range params.All {
		c := Chirp(mode)
		want := int(mode.ChirpMS * float64(mode.SampleRate) / 1000)
		if len(c) != want {
			t.Errorf("%s: chirp length = %d, want %d", mode.Name, len(c), want)
		}
		// No sample-to-sample jump should exceed what the fastest part
		// of the sweep (ChirpPeakHz) plus the edge ramp can produce; an
		// abrupt phase jump at the up/down join would exceed that bound.
		maxJump := amplitude * (2*math.Pi*mode.ChirpPeakHz/float64(mode.SampleRate) + 0.05)
		for i := 1; i < len(c); i++ {
			if d := math.Abs(c[i] - c[i-1]); d > maxJump {
				t.Fatalf("%s: discontinuity at sample %d: delta %v", mode.Name, i, d)
			}
		}
	}
}

func TestCalibrationLength(t *testing.T) {
	for _, mode := range params.All {
		got := len(Calibration(mode))
		want := mode.CalibrationSymbols() * mode.SymbolSamples()
		if got != want {
			t.Errorf("%s: calibration length = %d, want %d", mode.Name, got, want)
		}
	}
}

func TestSyncLength(t *testing.T) {
	for _, mode := range params.All {
		got := len(Sync(mode))
		want := len(mode.SyncPattern) * mode.SymbolSamples()
		if got != want {
			t.Errorf("%s: sync length = %d, want %d", mode.Name, got, want)
		}
	}
}

func TestBytesToSymbolsRoundTripsBits(t *testing.T) {
	for _, mode := range params.All {
		data := []byte{0x5A, 0x3C, 0xFF, 0x00}
		syms := BytesToSymbols(mode, data)
		wantSyms := len(data) * 8 / mode.BitsPerSymbol
		if len(syms) != wantSyms {
			t.Fatalf("%s: symbol count = %d, want %d", mode.Name, len(syms), wantSyms)
		}
		bits := bytesToBits(data)
		for i, s := range syms {
			want := mode.BitsToSymbol(bits[i*mode.BitsPerSymbol:])
			if s != want {
				t.Errorf("%s: symbol %d = %d, want %d", mode.Name, i, s, want)
			}
			if s < 0 || s >= mode.NumTones {
				t.Errorf("%s: symbol %d out of range: %d", mode.Name, i, s)
			}
		}
	}
}

func TestTransmissionLength(t *testing.T) {
	mode := params.WidebandMode
	header := make([]byte, 12)
	data := make([]byte, 35)
	audio := Transmission(mode, header, true, data)

	want := len(Warmup(mode)) + len(Chirp(mode)) + len(Calibration(mode)) + len(Sync(mode))
	want += 2 * len(Symbols(mode, BytesToSymbols(mode, header)))
	want += len(Symbols(mode, BytesToSymbols(mode, data)))
	if len(audio) != want {
		t.Errorf("transmission length = %d, want %d", len(audio), want)
	}
}

func TestTransmissionSingleHeaderNotDoubled(t *testing.T) {
	mode := params.PhoneMode
	header := make([]byte, 12)
	withRepeat := Transmission(mode, header, true, nil)
	withoutRepeat := Transmission(mode, header, false, nil)
	if len(withRepeat)-len(withoutRepeat) != len(Symbols(mode, BytesToSymbols(mode, header))) {
		t.Errorf("repeated header did not add exactly one header's worth of samples")
	}
}
