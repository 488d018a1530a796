/*
NAME
  modulate.go

DESCRIPTION
  modulate.go renders the acoustic transmission: the warm-up tone, the
  up/down sync chirp, the calibration and sync preamble, and the
  M-FSK-encoded header and data symbols, all as mono float64 samples in
  [-1, 1] at the mode's nominal sample rate. It never touches files or
  bitstream framing beyond grouping already-encoded bytes into symbols.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package modulate renders mode-parameterized symbol sequences, the
// chirp/calibration/sync preamble, and the warm-up tone into acoustic
// (float64, mono, [-1,1]) sample streams.
package modulate

import (
	"math"

	"github.com/mjibson/go-dsp/window"

	"github.com/n3modem/n3modem/params"
)

// amplitude is the peak tone amplitude, kept below full scale per the
// modulator's headroom requirement.
const amplitude = 0.7

// rampMS is the raised-cosine ramp applied at every tone and chirp
// boundary to avoid audible clicks.
const rampMS = 3.0

// ToneBurst renders one M-FSK symbol: a continuous sine at freq for the
// mode's tone duration, ramped in and out, followed by the mode's guard
// interval of silence. The returned slice is always exactly
// mode.SymbolSamples() long.
func ToneBurst(mode params.Mode, freq float64) []float64 {
	out := make([]float64, mode.SymbolSamples())
	toneLen := mode.ToneSamples()
	phaseStep := 2 * math.Pi * freq / float64(mode.SampleRate)
	for i := 0; i < toneLen; i++ {
		out[i] = amplitude * math.Sin(phaseStep*float64(i))
	}
	applyRamp(out[:toneLen], mode.SampleRate)
	return out
}

// Warmup renders the fixed mid-band tone preceding the chirp, used by a
// receiver's AGC to settle before the chirp arrives.
func Warmup(mode params.Mode) []float64 {
	freqs := mode.ToneFrequencies()
	mid := freqs[len(freqs)/2]
	n := int(mode.WarmupMS * float64(mode.SampleRate) / 1000)
	out := make([]float64, n)
	phaseStep := 2 * math.Pi * mid / float64(mode.SampleRate)
	for i := range out {
		out[i] = amplitude * math.Sin(phaseStep*float64(i))
	}
	applyRamp(out, mode.SampleRate)
	return out
}

// Chirp renders the up/down sync chirp: a linear sweep from
// ChirpStartHz to ChirpPeakHz over the first half of ChirpMS, then the
// mirrored sweep back down, with one continuous phase accumulator
// across the whole chirp so the join has no discontinuity.
func Chirp(mode params.Mode) []float64 {
	total := int(mode.ChirpMS * float64(mode.SampleRate) / 1000)
	half := total / 2
	out := make([]float64, total)

	halfSeconds := float64(half) / float64(mode.SampleRate)
	sweepRate := (mode.ChirpPeakHz - mode.ChirpStartHz) / halfSeconds

	var phase float64
	for i := 0; i < total; i++ {
		var freq float64
		if i < half {
			t := float64(i) / float64(mode.SampleRate)
			freq = mode.ChirpStartHz + sweepRate*t
		} else {
			t := float64(i-half) / float64(mode.SampleRate)
			freq = mode.ChirpPeakHz - sweepRate*t
		}
		phase += 2 * math.Pi * freq / float64(mode.SampleRate)
		out[i] = amplitude * math.Sin(phase)
	}
	applyRamp(out, mode.SampleRate)
	return out
}

// Calibration renders the calibration block: CalibrationRepeats cycles
// of the CalibrationTones list, each tone as a full symbol (tone burst
// plus guard).
func Calibration(mode params.Mode) []float64 {
	freqs := mode.ToneFrequencies()
	out := make([]float64, 0, mode.CalibrationSymbols()*mode.SymbolSamples())
	for r := 0; r < mode.CalibrationRepeats; r++ {
		for _, idx := range mode.CalibrationTones {
			out = append(out, ToneBurst(mode, freqs[idx])...)
		}
	}
	return out
}

// Sync renders the 8-symbol sync pattern.
func Sync(mode params.Mode) []float64 {
	freqs := mode.ToneFrequencies()
	out := make([]float64, 0, len(mode.SyncPattern)*mode.SymbolSamples())
	for _, idx := range mode.SyncPattern {
		out = append(out, ToneBurst(mode, freqs[idx])...)
	}
	return out
}

// Symbols renders a run of tone-index symbols as back-to-back tone
// bursts.
func Symbols(mode params.Mode, symbols []int) []float64 {
	freqs := mode.ToneFrequencies()
	out := make([]float64, 0, len(symbols)*mode.SymbolSamples())
	for _, s := range symbols {
		out = append(out, ToneBurst(mode, freqs[s])...)
	}
	return out
}

// BytesToSymbols packs data's bits, most-significant-bit first, into
// mode.BitsPerSymbol-sized tone indices, zero-padding the final
// partial group if len(data)*8 isn't a multiple of BitsPerSymbol (it
// always is for byte-aligned frames, since 8 is divisible by both 2
// and 4, but the padding keeps this correct for any caller).
func BytesToSymbols(mode params.Mode, data []byte) []int {
	bits := bytesToBits(data)
	if r := len(bits) % mode.BitsPerSymbol; r != 0 {
		bits = append(bits, make([]byte, mode.BitsPerSymbol-r)...)
	}
	n := len(bits) / mode.BitsPerSymbol
	syms := make([]int, n)
	for i := range syms {
		syms[i] = mode.BitsToSymbol(bits[i*mode.BitsPerSymbol:])
	}
	return syms
}

func bytesToBits(data []byte) []byte {
	bits := make([]byte, len(data)*8)
	for i, b := range data {
		for j := 0; j < 8; j++ {
			bits[i*8+j] = (b >> uint(7-j)) & 1
		}
	}
	return bits
}

// Transmission assembles the complete transmission audio in wire
// order: warm-up, chirp, calibration, sync, the header frame (doubled
// when repeatHeader is true, per the multi-frame case), then the data
// frames. headerBytes and dataBytes are already fully FEC-encoded and
// interleaved; Transmission only groups their bits into symbols.
func Transmission(mode params.Mode, headerBytes []byte, repeatHeader bool, dataBytes []byte) []float64 {
	out := Warmup(mode)
	out = append(out, Chirp(mode)...)
	out = append(out, Calibration(mode)...)
	out = append(out, Sync(mode)...)

	header := Symbols(mode, BytesToSymbols(mode, headerBytes))
	out = append(out, header...)
	if repeatHeader {
		out = append(out, header...)
	}

	out = append(out, Symbols(mode, BytesToSymbols(mode, dataBytes))...)
	return out
}

// applyRamp fades the first and last rampMS milliseconds of samples in
// with a raised-cosine (Hann) shape, in place. If samples is shorter
// than two ramp windows, each ramp is shrunk to half of len(samples)
// so the two edges never overlap.
func applyRamp(samples []float64, sampleRate int) {
	rampSamples := int(rampMS * float64(sampleRate) / 1000)
	if rampSamples*2 > len(samples) {
		rampSamples = len(samples) / 2
	}
	if rampSamples == 0 {
		return
	}
	w := window.Hann(rampSamples * 2)
	for i := 0; i < rampSamples; i++ {
		samples[i] *= w[i]
		samples[len(samples)-1-i] *= w[i]
	}
}
