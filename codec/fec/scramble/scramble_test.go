/*
NAME
  scramble_test.go

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package scramble

import (
	"bytes"
	"math/bits"
	"math/rand"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	seeds := []uint16{0, DefaultSeed, 1, 0x1234, 0x7FFF}
	for _, seed := range seeds {
		rng := rand.New(rand.NewSource(int64(seed) + 1))
		data := make([]byte, 500)
		rng.Read(data)
		scrambled := Scramble(data, seed)
		recovered := Descramble(scrambled, seed)
		if !bytes.Equal(recovered, data) {
			t.Errorf("seed %#x: descramble(scramble(x)) != x", seed)
		}
	}
}

func TestZeroSeedUsesDefault(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	if !bytes.Equal(Scramble(data, 0), Scramble(data, DefaultSeed)) {
		t.Error("zero seed did not fall back to DefaultSeed")
	}
}

func TestBitDistributionOfAllZeros(t *testing.T) {
	n := 2000
	zeros := make([]byte, n)
	scrambled := Scramble(zeros, DefaultSeed)

	var ones int
	for _, b := range scrambled {
		ones += bits.OnesCount8(b)
	}
	ratio := float64(ones) / float64(n*8)
	if ratio < 0.40 || ratio > 0.60 {
		t.Errorf("ones ratio = %v, want within [0.40, 0.60]", ratio)
	}
}

func TestScrambleOutputNotAllZero(t *testing.T) {
	zeros := make([]byte, 32)
	scrambled := Scramble(zeros, DefaultSeed)
	allZero := true
	for _, b := range scrambled {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("scrambling all-zero input produced all-zero output")
	}
}
