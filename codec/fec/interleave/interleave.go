/*
NAME
  interleave.go

DESCRIPTION
  interleave.go implements the 8-row block interleaver applied to each
  frame's convolutionally-encoded bytes: write row-major, read
  column-major, so a later burst error (contiguous in transmission
  order) becomes spread sparsely across the deinterleaved stream.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package interleave implements the fixed 8-row block interleaver used
// to spread burst errors across a frame's encoded bytes before
// modulation.
package interleave

// Rows is the fixed row count of the interleaver matrix.
const Rows = 8

// Interleave writes in row-major into a Rows x cols matrix (cols =
// ceil(len(in)/Rows)) and reads it back column-major. Trailing padding
// slots, when len(in) is not a multiple of Rows, are simply skipped, so
// the output length always equals len(in).
func Interleave(in []byte) []byte {
	n := len(in)
	if n == 0 {
		return nil
	}
	order := readOrder(n)
	out := make([]byte, n)
	for k, pos := range order {
		out[k] = in[pos]
	}
	return out
}

// Deinterleave is the exact inverse of Interleave.
func Deinterleave(in []byte) []byte {
	n := len(in)
	if n == 0 {
		return nil
	}
	order := readOrder(n)
	out := make([]byte, n)
	for k, pos := range order {
		out[pos] = in[k]
	}
	return out
}

// Order exposes the column-major read order over a row-major matrix of
// n elements, letting a caller apply the same permutation to something
// other than a []byte -- namely per-bit soft-decision groups, where
// each of the n "byte" slots is really 8 soft values wide.
func Order(n int) []int {
	return readOrder(n)
}

// readOrder returns, for a row-major matrix of n elements laid out in
// Rows rows of ceil(n/Rows) columns, the sequence of original (row-
// major) indices visited when reading column-major, skipping any
// index at or beyond n that falls in trailing padding.
func readOrder(n int) []int {
	cols := (n + Rows - 1) / Rows
	order := make([]int, 0, n)
	for c := 0; c < cols; c++ {
		for r := 0; r < Rows; r++ {
			pos := r*cols + c
			if pos < n {
				order = append(order, pos)
			}
		}
	}
	return order
}
