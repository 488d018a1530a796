/*
NAME
  rs.go

DESCRIPTION
  rs.go implements the Reed-Solomon outer code over GF(2^8): systematic
  encoding by polynomial long division, and decoding by syndrome
  computation, Berlekamp-Massey error-locator search, Chien search, and
  Forney error-magnitude recovery.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package rs implements the GF(2^8) Reed-Solomon code used as the
// outer code in the FEC chain: 16 parity bytes over the field defined
// by x^8 + x^4 + x^3 + x^2 + 1, correcting up to 8 byte errors per
// codeword.
package rs

import "github.com/pkg/errors"

const (
	// primPoly is x^8 + x^4 + x^3 + x^2 + 1.
	primPoly = 0x11D

	// genRoot is the field generator alpha.
	genRoot = 2

	// gfOrder is the multiplicative order of GF(2^8)* (2^8 - 1).
	gfOrder = 255

	// NumParity is the number of parity bytes appended per codeword,
	// correcting up to NumParity/2 byte errors.
	NumParity = 16
)

// ErrUncorrectable is returned when the received word has too many
// errors to correct: the error-locator polynomial's degree exceeds
// NumParity/2, the Chien search does not find a root for every
// declared error, or the post-correction syndrome is non-zero.
var ErrUncorrectable = errors.New("rs: uncorrectable codeword")

var expTable [2 * gfOrder]byte
var logTable [256]byte
var generator []byte

func init() {
	x := 1
	for i := 0; i < gfOrder; i++ {
		expTable[i] = byte(x)
		logTable[byte(x)] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= primPoly
		}
	}
	for i := gfOrder; i < len(expTable); i++ {
		expTable[i] = expTable[i-gfOrder]
	}
	generator = buildGenerator(NumParity)
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[int(logTable[a])+int(logTable[b])]
}

func gfDiv(a, b byte) byte {
	if a == 0 {
		return 0
	}
	li := int(logTable[a]) - int(logTable[b])
	if li < 0 {
		li += gfOrder
	}
	return expTable[li]
}

func gfPow(a byte, power int) byte {
	if power == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}
	li := (int(logTable[a]) * power) % gfOrder
	if li < 0 {
		li += gfOrder
	}
	return expTable[li]
}

// buildGenerator computes g(x) = product_{i=0}^{nsym-1} (x - alpha^i),
// with coefficients ordered highest-degree-first to match the
// message-polynomial convention used by Encode/syndromes.
func buildGenerator(nsym int) []byte {
	g := []byte{1}
	for i := 0; i < nsym; i++ {
		root := gfPow(genRoot, i)
		next := make([]byte, len(g)+1)
		// Multiply g(x) by (x - root), i.e. (x + root) in GF(2^8).
		copy(next, g)
		for j := range g {
			next[j+1] ^= gfMul(g[j], root)
		}
		g = next
	}
	return g
}

// Encode appends NumParity parity bytes to data via polynomial long
// division by the generator, returning a new slice data||parity of
// length len(data)+NumParity.
func Encode(data []byte) []byte {
	out := make([]byte, len(data)+len(generator)-1)
	copy(out, data)
	for i := 0; i < len(data); i++ {
		coef := out[i]
		if coef == 0 {
			continue
		}
		for j := 1; j < len(generator); j++ {
			out[i+j] ^= gfMul(generator[j], coef)
		}
	}
	copy(out, data)
	return out
}

// polEval evaluates a highest-degree-first polynomial at x via
// Horner's method.
func polEval(poly []byte, x byte) byte {
	y := poly[0]
	for i := 1; i < len(poly); i++ {
		y = gfMul(y, x) ^ poly[i]
	}
	return y
}

// syndromes computes S_i = codeword(alpha^i) for i in [0, nsym).
func syndromes(codeword []byte, nsym int) []byte {
	s := make([]byte, nsym)
	for i := range s {
		s[i] = polEval(codeword, gfPow(genRoot, i))
	}
	return s
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// berlekampMassey runs the Fibonacci-form Berlekamp-Massey recursion
// over the syndromes to find the error-locator polynomial sigma(x), in
// ascending-degree order (sigma[0] is the constant term, always 1).
func berlekampMassey(synd []byte) ([]byte, error) {
	c := []byte{1} // Current best LFSR connection polynomial, C(x).
	b := []byte{1} // Connection polynomial since the last length change, B(x).
	l := 0         // Current LFSR length.
	m := 1         // Steps since b, bDisc were last updated.
	bDisc := byte(1)

	for n := 0; n < len(synd); n++ {
		delta := synd[n]
		for i := 1; i <= l && i < len(c); i++ {
			delta ^= gfMul(c[i], synd[n-i])
		}
		if delta == 0 {
			m++
			continue
		}
		t := make([]byte, len(c))
		copy(t, c)

		coef := gfDiv(delta, bDisc)
		c = subShift(c, b, coef, m)

		if 2*l <= n {
			l = n + 1 - l
			b = t
			bDisc = delta
			m = 1
		} else {
			m++
		}
	}
	if l > len(synd)/2 {
		return nil, ErrUncorrectable
	}
	return c[:l+1], nil
}

// subShift computes c(x) XOR coef*x^shift*b(x), both in
// ascending-degree order.
func subShift(c, b []byte, coef byte, shift int) []byte {
	n := len(c)
	if shift+len(b) > n {
		n = shift + len(b)
	}
	out := make([]byte, n)
	copy(out, c)
	for i, bc := range b {
		out[shift+i] ^= gfMul(coef, bc)
	}
	return out
}

// chienSearch finds the roots of sigma(x) by brute-force evaluation at
// alpha^0 .. alpha^254, translating each root into a byte position
// within a codeword of length msgLen. Returns the error positions and
// the corresponding Chien-search exponents (so Forney can reuse
// alpha^i = X_k^-1 without recomputing a discrete log).
func chienSearch(sigma []byte, msgLen int) (positions []int, rootExps []int, err error) {
	for i := 0; i < gfOrder; i++ {
		if polEvalAscending(sigma, gfPow(genRoot, i)) != 0 {
			continue
		}
		// A root at alpha^i means X_k^-1 = alpha^i, so the error sits
		// at byte pos with msgLen-1-pos == -i (mod gfOrder). The
		// reduction must wrap: for codewords shorter than the field
		// order, i=0 locates the final byte.
		pos := (msgLen - 1 - gfOrder + i) % gfOrder
		if pos < 0 {
			pos += gfOrder
		}
		if pos >= msgLen {
			continue
		}
		positions = append(positions, pos)
		rootExps = append(rootExps, i)
	}
	if len(positions) != len(sigma)-1 {
		return nil, nil, ErrUncorrectable
	}
	return positions, rootExps, nil
}

func polEvalAscending(poly []byte, x byte) byte {
	var y byte
	xPow := byte(1)
	for _, c := range poly {
		y ^= gfMul(c, xPow)
		xPow = gfMul(xPow, x)
	}
	return y
}

// polMulAscending convolves two ascending-degree polynomials.
func polMulAscending(a, b []byte) []byte {
	out := make([]byte, len(a)+len(b)-1)
	for i, ac := range a {
		if ac == 0 {
			continue
		}
		for j, bc := range b {
			out[i+j] ^= gfMul(ac, bc)
		}
	}
	return out
}

// formalDerivative computes sigma'(x): the formal derivative over
// GF(2) retains only odd-degree terms (even powers vanish because
// their integer coefficient is even, i.e. zero in characteristic 2).
func formalDerivative(sigma []byte) []byte {
	if len(sigma) <= 1 {
		return nil
	}
	out := make([]byte, len(sigma)-1)
	for k := 1; k < len(sigma); k++ {
		if k%2 == 1 {
			out[k-1] = sigma[k]
		}
	}
	return out
}

// Result describes the outcome of a Decode call.
type Result struct {
	Data      []byte // Corrected data bytes (without parity).
	Corrected bool   // True if any byte errors were found and fixed.
	NumErrors int
}

// Decode corrects a copy of a received codeword of data||parity
// (received itself is left unmodified), returning the data portion. If the codeword is error-free, Data is
// the original data bytes and Corrected is false. If errors are found
// but cannot be corrected -- the error-locator degree exceeds
// NumParity/2, the Chien search can't locate every claimed error, or
// the post-correction syndrome is non-zero -- ErrUncorrectable is
// returned and Data is nil.
func Decode(received []byte) (Result, error) {
	nsym := NumParity
	if len(received) <= nsym {
		return Result{}, errors.Errorf("rs: codeword length %d too short for %d parity bytes", len(received), nsym)
	}

	synd := syndromes(received, nsym)
	if allZero(synd) {
		data := make([]byte, len(received)-nsym)
		copy(data, received[:len(received)-nsym])
		return Result{Data: data, Corrected: false}, nil
	}

	// Berlekamp-Massey consumes syndromes ascending from S_0; our synd
	// slice is already S_0..S_{nsym-1} in that order.
	sigma, err := berlekampMassey(synd)
	if err != nil {
		return Result{}, err
	}

	positions, rootExps, err := chienSearch(sigma, len(received))
	if err != nil {
		return Result{}, err
	}

	// Omega(x) = S(x)*sigma(x) mod x^nsym.
	sAsc := make([]byte, nsym)
	copy(sAsc, synd)
	omegaFull := polMulAscending(sAsc, sigma)
	omega := omegaFull
	if len(omega) > nsym {
		omega = omega[:nsym]
	}
	sigmaPrime := formalDerivative(sigma)

	corrected := make([]byte, len(received))
	copy(corrected, received)

	for k, pos := range positions {
		i := rootExps[k]
		xInv := gfPow(genRoot, i)
		omegaEval := polEvalAscending(omega, xInv)
		sigmaPrimeEval := polEvalAscending(sigmaPrime, xInv)
		if sigmaPrimeEval == 0 {
			return Result{}, ErrUncorrectable
		}
		// X_k = alpha^(msgLen-1-pos); magnitude = X_k * Omega(X_k^-1) / sigma'(X_k^-1).
		xk := gfPow(genRoot, len(received)-1-pos)
		mag := gfMul(xk, gfDiv(omegaEval, sigmaPrimeEval))
		corrected[pos] ^= mag
	}

	if !allZero(syndromes(corrected, nsym)) {
		return Result{}, ErrUncorrectable
	}

	data := make([]byte, len(received)-nsym)
	copy(data, corrected[:len(received)-nsym])
	return Result{Data: data, Corrected: true, NumErrors: len(positions)}, nil
}
