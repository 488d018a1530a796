/*
NAME
  conv.go

DESCRIPTION
  conv.go implements the rate-1/2 k=7 convolutional encoder (generator
  polynomials G1=0x6D, G2=0x4F) used as the inner code, with optional
  rate-2/3 puncturing. See viterbi.go for the matching soft-decision
  decoder.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package conv implements the rate-1/2 k=7 convolutional inner code
// (171,133-octal-equivalent, G1=0x6D, G2=0x4F), its optional rate-2/3
// puncturing, and a soft-decision Viterbi decoder over a 64-state
// trellis.
package conv

import (
	"math/bits"

	"github.com/pkg/errors"
)

const (
	// ConstraintLength is k, the encoder's constraint length.
	ConstraintLength = 7

	// Memory is m = k-1, the number of state bits held in the shift register.
	Memory = ConstraintLength - 1

	// NumStates is 2^Memory.
	NumStates = 1 << Memory

	// G1 and G2 are the two generator polynomials, expressed with the
	// current input bit in position Memory (bit 6).
	G1 byte = 0x6D
	G2 byte = 0x4F
)

// PuncturePattern is the rate-2/3 puncturing pattern: a cycle of 6
// bits over the rate-1/2 output stream, keeping 4 of every 6 bits.
var PuncturePattern = [6]byte{1, 1, 0, 1, 1, 0}

// ErrShortInput is returned by Decode when the supplied bytes do not
// contain enough bits for the requested dataLen.
var ErrShortInput = errors.New("conv: input too short for requested data length")

func parity(b byte) byte {
	return byte(bits.OnesCount8(b) & 1)
}

// step advances the encoder by one input bit, returning the two output
// bits and the new 6-bit state.
func step(bit, state byte) (o1, o2, next byte) {
	window := (bit << Memory) | state
	return parity(window & G1), parity(window & G2), (state >> 1) | (bit << (Memory - 1))
}

func bytesToBits(b []byte) []byte {
	bits := make([]byte, len(b)*8)
	for i, by := range b {
		for j := 0; j < 8; j++ {
			bits[i*8+j] = (by >> uint(7-j)) & 1
		}
	}
	return bits
}

func bitsToBytes(bits []byte) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit != 0 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

// NumSteps returns the number of trellis steps (= input bits, including
// the Memory tail-flush bits) needed to encode dataLen bytes.
func NumSteps(dataLen int) int {
	return dataLen*8 + Memory
}

// rawBitLen returns the un-punctured, rate-1/2 output bit count for
// dataLen bytes of input.
func rawBitLen(dataLen int) int {
	return 2 * NumSteps(dataLen)
}

// puncturedBitLen returns the number of bits kept after puncturing the
// first n raw output bits.
func puncturedBitLen(n int) int {
	kept := 0
	for i := 0; i < n; i++ {
		if PuncturePattern[i%len(PuncturePattern)] == 1 {
			kept++
		}
	}
	return kept
}

// EncodedByteLen returns the number of wire bytes Encode produces for
// dataLen bytes of input, including any zero padding to a byte
// boundary.
func EncodedByteLen(dataLen int, punctured bool) int {
	n := rawBitLen(dataLen)
	if punctured {
		n = puncturedBitLen(n)
	}
	return (n + 7) / 8
}

// Encode convolutionally encodes data, flushing a Memory-bit zero
// tail, and optionally puncturing to rate 2/3. The returned bytes are
// zero-padded to a byte boundary; EncodedByteLen gives the exact
// length.
func Encode(data []byte, punctured bool) []byte {
	inBits := bytesToBits(data)
	inBits = append(inBits, make([]byte, Memory)...)

	outBits := make([]byte, 0, 2*len(inBits))
	var state byte
	for _, bit := range inBits {
		o1, o2, next := step(bit, state)
		outBits = append(outBits, o1, o2)
		state = next
	}

	if punctured {
		outBits = puncture(outBits)
	}

	pad := (8 - len(outBits)%8) % 8
	if pad > 0 {
		outBits = append(outBits, make([]byte, pad)...)
	}
	return bitsToBytes(outBits)
}

func puncture(bits []byte) []byte {
	out := make([]byte, 0, len(bits))
	for i, b := range bits {
		if PuncturePattern[i%len(PuncturePattern)] == 1 {
			out = append(out, b)
		}
	}
	return out
}

// depunctureSoft expands a punctured soft-bit stream back to fullLen,
// inserting the erasure value 0.5 at every position the encoder
// dropped.
func depunctureSoft(soft []float64, fullLen int) []float64 {
	out := make([]float64, fullLen)
	si := 0
	for i := 0; i < fullLen; i++ {
		if PuncturePattern[i%len(PuncturePattern)] == 1 {
			out[i] = soft[si]
			si++
		} else {
			out[i] = 0.5
		}
	}
	return out
}

// Decode recovers dataLen bytes from raw, a byte-packed hard-decision
// stream as produced by Encode. Hard bits are promoted to {0.0, 1.0}
// soft values and run through the same Viterbi path as DecodeSoft.
func Decode(raw []byte, dataLen int, punctured bool) ([]byte, error) {
	rawBits := bytesToBits(raw)
	n := rawBitLen(dataLen)
	want := n
	if punctured {
		want = puncturedBitLen(n)
	}
	if len(rawBits) < want {
		return nil, ErrShortInput
	}
	soft := make([]float64, want)
	for i := 0; i < want; i++ {
		soft[i] = float64(rawBits[i])
	}
	return DecodeSoft(soft, dataLen, punctured)
}

// DecodeSoft recovers dataLen bytes from a soft-decision stream (each
// value in [0,1], 0 meaning confident-0 and 1 confident-1). If
// punctured, soft must have at least puncturedBitLen(rawBitLen(dataLen))
// entries and erasures (0.5) are inserted at the dropped positions
// before Viterbi decoding; otherwise soft must have at least
// rawBitLen(dataLen) entries. Entries beyond that count (such as
// byte-padding bits) are ignored.
func DecodeSoft(soft []float64, dataLen int, punctured bool) ([]byte, error) {
	full := rawBitLen(dataLen)
	want := full
	if punctured {
		want = puncturedBitLen(full)
	}
	if len(soft) < want {
		return nil, ErrShortInput
	}
	soft = soft[:want]
	if punctured {
		soft = depunctureSoft(soft, full)
	}
	return viterbiDecode(soft, dataLen)
}
