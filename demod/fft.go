/*
NAME
  fft.go

DESCRIPTION
  fft.go implements the per-symbol FFT tone detector: hard and soft
  decision tone decisions from a zero-padded radix-2 FFT of one
  symbol's analysis window, and the calibration-block frequency-offset
  tracker that feeds an estimated Hz shift back into the tone bin
  lookup.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package demod

import (
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/n3modem/n3modem/params"
)

// ToneWindowSamples returns the FFT analysis window length for one
// symbol: the tone burst trimmed by the mode's guard width on each
// edge, avoiding the raised-cosine ramp at the tone's own boundaries.
func ToneWindowSamples(mode params.Mode) int {
	n := mode.ToneSamples() - 2*mode.GuardSamples()
	if n < 1 {
		return mode.ToneSamples()
	}
	return n
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// spectrum zero-pads window to the next power of two and returns FFT
// magnitude bins [0, fftLen/2].
func spectrum(window []float64) []float64 {
	n := nextPow2(len(window))
	padded := make([]float64, n)
	copy(padded, window)
	bins := fft.FFTReal(padded)
	mags := make([]float64, n/2+1)
	for i := range mags {
		mags[i] = cmplxAbs(bins[i])
	}
	return mags
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// toneBinRange returns the inclusive FFT bin range covering
// [freq-width/2, freq+width/2] for a spectrum of fftLen real
// samples at sampleRate.
func toneBinRange(freq, width float64, sampleRate, fftLen int) (lo, hi int) {
	binHz := float64(sampleRate) / float64(fftLen)
	lo = int(math.Round((freq - width/2) / binHz))
	hi = int(math.Round((freq + width/2) / binHz))
	if lo < 0 {
		lo = 0
	}
	if max := fftLen / 2; hi > max {
		hi = max
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// HardDecision picks the tone whose expected bin window (shifted by
// freqOffsetHz) has the highest magnitude, reporting a confidence of
// max magnitude over average magnitude, clamped to [0,1].
func HardDecision(mode params.Mode, window []float64, freqOffsetHz float64) (tone int, confidence float64) {
	toneMag := toneMagnitudes(mode, window, freqOffsetHz)
	best, _ := argMax2(toneMag)
	avg := average(toneMag)
	conf := 1.0
	if avg > 0 {
		conf = toneMag[best] / avg
	}
	if conf > 1 {
		conf = 1
	}
	return best, conf
}

// SoftDecision returns, for every tone, a byte-normalized evidence
// value combining the tone's magnitude sum and peak within its
// expected bin window, plus the gap between the best and second-best
// tone as a scalar confidence in [0,1].
func SoftDecision(mode params.Mode, window []float64, freqOffsetHz float64) (soft []byte, confidence float64) {
	mags := spectrum(window)
	fftLen := 2 * (len(mags) - 1)
	freqs := mode.ToneFrequencies()

	raw := make([]float64, mode.NumTones)
	for i, f := range freqs {
		lo, hi := toneBinRange(f+freqOffsetHz, mode.ToneSpacing, mode.SampleRate, fftLen)
		raw[i] = 0.3*sumIn(mags, lo, hi) + 0.7*maxIn(mags, lo, hi)
	}

	maxRaw := maxOf(raw)
	soft = make([]byte, len(raw))
	if maxRaw > 0 {
		for i, v := range raw {
			soft[i] = byte(math.Round(255 * v / maxRaw))
		}
	}

	best, second := argMax2(raw)
	if raw[best] > 0 {
		confidence = (raw[best] - raw[second]) / raw[best]
	}
	return soft, confidence
}

func toneMagnitudes(mode params.Mode, window []float64, freqOffsetHz float64) []float64 {
	mags := spectrum(window)
	fftLen := 2 * (len(mags) - 1)
	freqs := mode.ToneFrequencies()

	toneMag := make([]float64, mode.NumTones)
	for i, f := range freqs {
		lo, hi := toneBinRange(f+freqOffsetHz, mode.ToneSpacing, mode.SampleRate, fftLen)
		toneMag[i] = maxIn(mags, lo, hi)
	}
	return toneMag
}

// EstimateFrequencyOffset runs a magnitude-weighted peak search within
// +-100Hz of each calibration symbol's expected tone and returns the
// weighted mean error, clamped to +-30Hz.
func EstimateFrequencyOffset(mode params.Mode, windows [][]float64, calibrationTones []int) float64 {
	const searchWidthHz = 200 // +-100Hz
	const clampHz = 30

	var weightedSum, weightTotal float64
	freqs := mode.ToneFrequencies()
	for i, w := range windows {
		if i >= len(calibrationTones) {
			break
		}
		expected := freqs[calibrationTones[i]]
		mags := spectrum(w)
		fftLen := 2 * (len(mags) - 1)
		binHz := float64(mode.SampleRate) / float64(fftLen)
		lo, hi := toneBinRange(expected, searchWidthHz, mode.SampleRate, fftLen)

		peakBin, peakMag := lo, 0.0
		for b := lo; b <= hi && b < len(mags); b++ {
			if mags[b] > peakMag {
				peakMag = mags[b]
				peakBin = b
			}
		}
		if peakMag == 0 {
			continue
		}
		err := float64(peakBin)*binHz - expected
		weightedSum += err * peakMag
		weightTotal += peakMag
	}
	if weightTotal == 0 {
		return 0
	}
	offset := weightedSum / weightTotal
	switch {
	case offset > clampHz:
		return clampHz
	case offset < -clampHz:
		return -clampHz
	default:
		return offset
	}
}

func maxIn(mags []float64, lo, hi int) float64 {
	m := 0.0
	for i := lo; i <= hi && i < len(mags); i++ {
		if mags[i] > m {
			m = mags[i]
		}
	}
	return m
}

func sumIn(mags []float64, lo, hi int) float64 {
	var s float64
	for i := lo; i <= hi && i < len(mags); i++ {
		s += mags[i]
	}
	return s
}

func average(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func maxOf(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}

func argMax2(v []float64) (best, second int) {
	if len(v) < 2 {
		return 0, 0
	}
	if v[0] >= v[1] {
		best, second = 0, 1
	} else {
		best, second = 1, 0
	}
	for i := 2; i < len(v); i++ {
		switch {
		case v[i] > v[best]:
			second = best
			best = i
		case v[i] > v[second]:
			second = i
		}
	}
	return best, second
}
