/*
NAME
  fft_test.go

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package demod

import (
	"math"
	"testing"

	"github.com/n3modem/n3modem/modulate"
	"github.com/n3modem/n3modem/params"
)

func analysisWindow(mode params.Mode, burst []float64) []float64 {
	winLen := ToneWindowSamples(mode)
	margin := (mode.ToneSamples() - winLen) / 2
	return burst[margin : margin+winLen]
}

func TestHardDecisionPicksTransmittedTone(t *testing.T) {
	for _, mode := range params.All {
		freqs := mode.ToneFrequencies()
		for tone, freq := range freqs {
			burst := modulate.ToneBurst(mode, freq)
			window := analysisWindow(mode, burst)
			got, conf := HardDecision(mode, window, 0)
			if got != tone {
				t.Errorf("%s tone %d: detected %d (confidence %v)", mode.Name, tone, got, conf)
			}
		}
	}
}

func TestSoftDecisionPeaksAtTransmittedTone(t *testing.T) {
	mode := params.WidebandMode
	freqs := mode.ToneFrequencies()
	const tone = 5
	burst := modulate.ToneBurst(mode, freqs[tone])
	window := analysisWindow(mode, burst)
	soft, _ := SoftDecision(mode, window, 0)

	best := 0
	for i, v := range soft {
		if v > soft[best] {
			best = i
		}
	}
	if best != tone {
		t.Errorf("soft decision peak at tone %d, want %d (%v)", best, tone, soft)
	}
	if soft[tone] != 255 {
		t.Errorf("soft value at transmitted tone = %d, want 255 (normalized peak)", soft[tone])
	}
}

func TestHardDecisionToleratesFrequencyOffset(t *testing.T) {
	mode := params.PhoneMode
	freqs := mode.ToneFrequencies()
	const tone = 2
	const offsetHz = 15.0

	burst := modulate.ToneBurst(mode, freqs[tone]+offsetHz)
	window := analysisWindow(mode, burst)
	got, _ := HardDecision(mode, window, offsetHz)
	if got != tone {
		t.Errorf("with known offset compensation, detected %d, want %d", got, tone)
	}
}

func TestEstimateFrequencyOffsetRecoversShift(t *testing.T) {
	mode := params.WidebandMode
	const shiftHz = 12.0
	freqs := mode.ToneFrequencies()

	windows := make([][]float64, len(mode.CalibrationTones))
	for i, idx := range mode.CalibrationTones {
		burst := modulate.ToneBurst(mode, freqs[idx]+shiftHz)
		windows[i] = analysisWindow(mode, burst)
	}

	got := EstimateFrequencyOffset(mode, windows, mode.CalibrationTones)
	if math.Abs(got-shiftHz) > 5 {
		t.Errorf("estimated offset = %v, want close to %v", got, shiftHz)
	}
}

func TestEstimateFrequencyOffsetClampedTo30Hz(t *testing.T) {
	mode := params.WidebandMode
	freqs := mode.ToneFrequencies()
	windows := make([][]float64, len(mode.CalibrationTones))
	for i, idx := range mode.CalibrationTones {
		burst := modulate.ToneBurst(mode, freqs[idx]+80)
		windows[i] = analysisWindow(mode, burst)
	}
	got := EstimateFrequencyOffset(mode, windows, mode.CalibrationTones)
	if got > 30 || got < -30 {
		t.Errorf("offset %v exceeds +-30Hz clamp", got)
	}
}
