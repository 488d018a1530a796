/*
NAME
  chirp.go

DESCRIPTION
  chirp.go implements the chirp matched-filter sync detector: it
  normalized-cross-correlates a window of received samples against
  both modes' locally generated up/down chirp templates, coarse-
  stepping first and refining the winning neighborhood to single-
  sample resolution, and reports which mode's template won.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package demod

import (
	"math"

	"github.com/n3modem/n3modem/modulate"
	"github.com/n3modem/n3modem/params"
)

// ChirpThreshold is the minimum normalized correlation score counted
// as a detection.
const ChirpThreshold = 0.35

// ChirpResult reports the outcome of correlating a sample window
// against one mode's chirp template.
type ChirpResult struct {
	Mode       params.Mode
	Detected   bool
	ChirpEnd   int64 // Absolute sample index one past the chirp's last sample.
	Confidence float64
}

type chirpTemplate struct {
	mode    params.Mode
	samples []float64
	energy  float64
}

func chirpTemplates() []chirpTemplate {
	out := make([]chirpTemplate, len(params.All))
	for i, m := range params.All {
		s := modulate.Chirp(m)
		out[i] = chirpTemplate{mode: m, samples: s, energy: energyOf(s)}
	}
	return out
}

func energyOf(s []float64) float64 {
	var e float64
	for _, v := range s {
		e += v * v
	}
	return e
}

// DetectChirp searches samples -- an absolute-indexed window read from
// the ring buffer, base being samples[0]'s absolute index -- for the
// best-correlating chirp among all modes. It returns the winning
// mode's result even when its score falls under ChirpThreshold, so the
// caller can use the confidence for logging; Detected reflects the
// threshold test.
func DetectChirp(samples []float64, base int64) ChirpResult {
	var best ChirpResult
	for _, tmpl := range chirpTemplates() {
		if len(samples) < len(tmpl.samples) {
			continue
		}
		pos, score := refinedSearch(samples, tmpl)
		if score > best.Confidence {
			best = ChirpResult{
				Mode:       tmpl.mode,
				Detected:   score >= ChirpThreshold,
				ChirpEnd:   base + int64(pos+len(tmpl.samples)),
				Confidence: score,
			}
		}
	}
	return best
}

// refinedSearch coarse-steps across the whole window (~20ms step) then
// refines the best coarse position's neighborhood at unit-sample
// resolution.
func refinedSearch(samples []float64, tmpl chirpTemplate) (int, float64) {
	maxPos := len(samples) - len(tmpl.samples)
	coarseStep := tmpl.mode.SampleRate * 20 / 1000
	if coarseStep < 1 {
		coarseStep = 1
	}

	coarsePos, coarseScore := bestInRange(samples, tmpl, 0, maxPos, coarseStep)

	fineStart := coarsePos - coarseStep
	if fineStart < 0 {
		fineStart = 0
	}
	fineEnd := coarsePos + coarseStep
	if fineEnd > maxPos {
		fineEnd = maxPos
	}
	if fineEnd < fineStart {
		fineEnd = fineStart
	}
	finePos, fineScore := bestInRange(samples, tmpl, fineStart, fineEnd, 1)

	if coarseScore > fineScore {
		return coarsePos, coarseScore
	}
	return finePos, fineScore
}

func bestInRange(samples []float64, tmpl chirpTemplate, from, to, step int) (int, float64) {
	bestPos, bestScore := from, -1.0
	for pos := from; pos <= to; pos += step {
		score := normalizedCorrelation(samples[pos:pos+len(tmpl.samples)], tmpl)
		if score > bestScore {
			bestScore = score
			bestPos = pos
		}
	}
	return bestPos, bestScore
}

func normalizedCorrelation(window []float64, tmpl chirpTemplate) float64 {
	var dot, winEnergy float64
	for i, v := range window {
		dot += v * tmpl.samples[i]
		winEnergy += v * v
	}
	denom := math.Sqrt(winEnergy * tmpl.energy)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
