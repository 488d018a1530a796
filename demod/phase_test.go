/*
NAME
  phase_test.go

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package demod

import (
	"testing"

	"github.com/n3modem/n3modem/params"
)

func TestPhaseOffsetSamplesQuartersSymbol(t *testing.T) {
	mode := params.PhoneMode
	offsets := PhaseOffsetSamples(mode)
	if offsets[0] != 0 {
		t.Errorf("offset[0] = %d, want 0", offsets[0])
	}
	if offsets[2] != mode.SymbolSamples()/2 {
		t.Errorf("offset[2] = %d, want half a symbol", offsets[2])
	}
}

func TestExpectedPreambleLengthIsSixteen(t *testing.T) {
	for _, mode := range params.All {
		if n := len(ExpectedPreamble(mode)); n != 16 {
			t.Errorf("%s: preamble length = %d, want 16", mode.Name, n)
		}
	}
}

func TestMatchesPreambleExact(t *testing.T) {
	for _, mode := range params.All {
		if !MatchesPreamble(mode, ExpectedPreamble(mode)) {
			t.Errorf("%s: exact preamble did not match", mode.Name)
		}
	}
}

func TestMatchesPreambleToleratesOneMismatch(t *testing.T) {
	for _, mode := range params.All {
		detected := append([]int{}, ExpectedPreamble(mode)...)
		detected[3] = (detected[3] + 1) % mode.NumTones
		if !MatchesPreamble(mode, detected) {
			t.Errorf("%s: one mismatch should still be tolerated", mode.Name)
		}
	}
}

func TestMatchesPreambleRejectsTwoMismatches(t *testing.T) {
	for _, mode := range params.All {
		detected := append([]int{}, ExpectedPreamble(mode)...)
		// Pick two tones that differ by more than Wideband's +-1
		// tolerance so both count as mismatches under either mode.
		detected[3] = (detected[3] + 2) % mode.NumTones
		detected[9] = (detected[9] + 2) % mode.NumTones
		if MatchesPreamble(mode, detected) {
			t.Errorf("%s: two mismatches should not be tolerated", mode.Name)
		}
	}
}

func TestMatchesPreambleWidebandToneTolerance(t *testing.T) {
	mode := params.WidebandMode
	detected := append([]int{}, ExpectedPreamble(mode)...)
	detected[0] = detected[0] + 1 // Within +-1 tone tolerance.
	if !MatchesPreamble(mode, detected) {
		t.Error("wideband should tolerate a +-1 tone offset as a match, not a mismatch")
	}
}

func TestMatchesPreambleWrongLength(t *testing.T) {
	mode := params.PhoneMode
	if MatchesPreamble(mode, []int{0, 1, 2}) {
		t.Error("wrong-length detection should never match")
	}
}
