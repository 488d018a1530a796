/*
NAME
  fec.go

DESCRIPTION
  fec.go composes the four FEC stages (Reed-Solomon, LFSR scrambling,
  convolutional coding, block interleaving) into the single per-frame
  encode/decode pipeline the wire format specifies, in both a
  hard-decision and a soft-decision decode variant.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package fec composes the outer Reed-Solomon code, the LFSR
// scrambler, the inner convolutional code, and the block interleaver
// into the frame-level forward error correction pipeline: for each
// frame, Reed-Solomon parity is appended, the result is scrambled,
// convolutionally encoded, and interleaved, in that order.
package fec

import (
	"github.com/n3modem/n3modem/codec/fec/conv"
	"github.com/n3modem/n3modem/codec/fec/interleave"
	"github.com/n3modem/n3modem/codec/fec/rs"
	"github.com/n3modem/n3modem/codec/fec/scramble"
)

// Result is the outcome of decoding one FEC-protected frame.
type Result struct {
	Data      []byte
	Corrected bool
	NumErrors int
}

// Encode runs one frame's bytes through the full FEC chain: Reed-
// Solomon parity, LFSR scrambling, convolutional encoding (optionally
// punctured to rate 2/3), and block interleaving.
func Encode(data []byte, punctured bool) []byte {
	withParity := rs.Encode(data)
	scrambled := scramble.Scramble(withParity, scramble.DefaultSeed)
	coded := conv.Encode(scrambled, punctured)
	return interleave.Interleave(coded)
}

// ScrambledLen returns the length, in bytes, of the RS-encoded and
// scrambled payload the convolutional coder operates on for a frame
// whose original (pre-RS) length is dataLen.
func ScrambledLen(dataLen int) int {
	return dataLen + rs.NumParity
}

// WireLen returns the number of bytes Encode produces for a frame whose
// original (pre-RS) length is dataLen -- the span a demodulator must
// collect symbols over before it can attempt a decode.
func WireLen(dataLen int, punctured bool) int {
	return conv.EncodedByteLen(ScrambledLen(dataLen), punctured)
}

// Decode reverses Encode given a hard-decision wire byte stream:
// deinterleave, Viterbi-decode, descramble, then Reed-Solomon correct.
// dataLen is the frame's original (pre-RS) length in bytes.
func Decode(wire []byte, dataLen int, punctured bool) (Result, error) {
	deinterleaved := interleave.Deinterleave(wire)
	decoded, err := conv.Decode(deinterleaved, ScrambledLen(dataLen), punctured)
	if err != nil {
		return Result{}, err
	}
	return finishDecode(decoded, dataLen)
}

// DecodeSoft is like Decode but takes per-coded-bit soft values in
// [0,1] from the FFT tone detector, as produced over one frame's
// symbols. The interleaver permutes whole bytes of the convolutional
// encoder's packed output, so deinterleaving the soft stream applies
// that same permutation to 8-value groups instead of single bytes.
func DecodeSoft(soft []float64, dataLen int, punctured bool) (Result, error) {
	deinterleaved := deinterleaveSoft(soft)
	decoded, err := conv.DecodeSoft(deinterleaved, ScrambledLen(dataLen), punctured)
	if err != nil {
		return Result{}, err
	}
	return finishDecode(decoded, dataLen)
}

func finishDecode(scrambled []byte, dataLen int) (Result, error) {
	withParity := scramble.Descramble(scrambled, scramble.DefaultSeed)
	rsResult, err := rs.Decode(withParity)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: rsResult.Data, Corrected: rsResult.Corrected, NumErrors: rsResult.NumErrors}, nil
}

const bitsPerByte = 8

// deinterleaveSoft applies the interleaver's byte-granularity
// permutation to groups of 8 soft values, the bit-domain equivalent of
// Deinterleave on the packed byte stream that produced them.
func deinterleaveSoft(soft []float64) []float64 {
	n := len(soft) / bitsPerByte
	order := interleave.Order(n)
	out := make([]float64, len(soft))
	for k, pos := range order {
		copy(out[pos*bitsPerByte:(pos+1)*bitsPerByte], soft[k*bitsPerByte:(k+1)*bitsPerByte])
	}
	return out
}
