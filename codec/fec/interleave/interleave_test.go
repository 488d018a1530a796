/*
NAME
  interleave_test.go

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package interleave

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for n := 1; n <= 200; n++ {
		in := make([]byte, n)
		for i := range in {
			in[i] = byte(i*7 + 3)
		}
		out := Deinterleave(Interleave(in))
		if !bytes.Equal(out, in) {
			t.Fatalf("length %d: round trip mismatch", n)
		}
	}
}

func TestInterleaveSpreadsBurst(t *testing.T) {
	in := make([]byte, 64)
	for i := range in {
		in[i] = 1
	}
	// A burst error hits three consecutive bytes of the interleaved
	// (transmission order) stream; after deinterleaving it should not
	// land as three consecutive bytes in the original frame.
	out := Interleave(in)
	corrupted := append([]byte{}, out...)
	corrupted[10], corrupted[11], corrupted[12] = 0, 0, 0

	recovered := Deinterleave(corrupted)
	consecutive := 0
	maxConsecutive := 0
	for _, b := range recovered {
		if b == 0 {
			consecutive++
			if consecutive > maxConsecutive {
				maxConsecutive = consecutive
			}
		} else {
			consecutive = 0
		}
	}
	if maxConsecutive >= 3 {
		t.Errorf("burst error was not spread: %d consecutive corrupted bytes after deinterleave", maxConsecutive)
	}
}

func TestOrderMatchesByteDeinterleave(t *testing.T) {
	n := 37
	in := make([]byte, n)
	for i := range in {
		in[i] = byte(i)
	}
	interleaved := Interleave(in)

	order := Order(n)
	out := make([]byte, n)
	for k, pos := range order {
		out[pos] = interleaved[k]
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("manual Order-based deinterleave mismatch: got %v, want %v", out, in)
	}
}

func TestEmptyInput(t *testing.T) {
	if out := Interleave(nil); out != nil {
		t.Errorf("Interleave(nil) = %v, want nil", out)
	}
	if out := Deinterleave(nil); out != nil {
		t.Errorf("Deinterleave(nil) = %v, want nil", out)
	}
}
