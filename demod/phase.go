/*
NAME
  phase.go

DESCRIPTION
  phase.go implements the multi-phase symbol extractor's sub-symbol
  phase candidates and the calibration+sync pattern match used for
  sync lock: once a (phase, mode) pair's detected preamble tones match
  the expected calibration-then-sync sequence within tolerance, the
  decoder commits to that pair.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package demod

import "github.com/n3modem/n3modem/params"

// NumPhases is the number of sub-symbol phase offsets trialed before
// sync lock.
const NumPhases = 4

// PhaseOffsetSamples returns the four candidate starting offsets, in
// samples, for mode: 0, T/4, T/2, 3T/4 of one symbol.
func PhaseOffsetSamples(mode params.Mode) [NumPhases]int {
	symLen := mode.SymbolSamples()
	var out [NumPhases]int
	for i := range out {
		out[i] = i * symLen / NumPhases
	}
	return out
}

// ExpectedPreamble returns the full calibration-then-sync tone-index
// sequence sync lock searches for.
func ExpectedPreamble(mode params.Mode) []int {
	out := make([]int, 0, mode.PreambleSymbols())
	for r := 0; r < mode.CalibrationRepeats; r++ {
		out = append(out, mode.CalibrationTones...)
	}
	out = append(out, mode.SyncPattern[:]...)
	return out
}

// MatchesPreamble reports whether detected tone indices match mode's
// expected calibration+sync sequence within its tolerance: at most one
// mismatched symbol out of sixteen, with Wideband additionally
// tolerating a detected tone one index away from expected (Phone
// requires exact equality, preserving the source asymmetry between
// the two modes).
func MatchesPreamble(mode params.Mode, detected []int) bool {
	expected := ExpectedPreamble(mode)
	if len(detected) != len(expected) {
		return false
	}
	tolerance := 0
	if mode.Name == params.Wideband {
		tolerance = 1
	}
	mismatches := 0
	for i, want := range expected {
		if absInt(detected[i]-want) > tolerance {
			mismatches++
		}
	}
	return mismatches <= 1
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
