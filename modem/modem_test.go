/*
NAME
  modem_test.go

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package modem

import (
	"bytes"
	"crypto/sha256"
	"math/rand"
	"testing"

	"github.com/n3modem/n3modem/codec/pcm"
	"github.com/n3modem/n3modem/params"
)

func decodeAll(t *testing.T, mode params.Mode, samples []float64, opts DecodeOptions) ([]byte, Transmission) {
	t.Helper()
	opts.SampleRate = mode.SampleRate
	dec := NewDecoder(opts)

	// A real caller pushes ~100ms chunks; pushing in chunks here
	// exercises the same incremental state machine a live capture loop
	// would drive, rather than handing the whole clip to one Push.
	chunk := mode.SampleRate / 10
	for i := 0; i < len(samples); i += chunk {
		end := i + chunk
		if end > len(samples) {
			end = len(samples)
		}
		dec.Push(samples[i:end])
		if data, _, err := dec.Result(); err != nil {
			t.Fatalf("decode failed: %v", err)
		} else if data != nil {
			break
		}
	}
	if err := dec.Finish(); err != nil {
		t.Fatalf("decode did not complete: %v", err)
	}
	data, tx, err := dec.Result()
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if data == nil {
		t.Fatal("decode never produced a result")
	}
	return data, tx
}

func TestEncodeDecodeRoundTripWideband(t *testing.T) {
	want := []byte("hello world")
	samples, encTx, err := Encode(params.WidebandMode, want, EncodeOptions{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encTx.Frames != 1 {
		t.Errorf("frames = %d, want 1 for an 11-byte payload", encTx.Frames)
	}

	got, decTx := decodeAll(t, params.WidebandMode, samples, DecodeOptions{})
	if !bytes.Equal(got, want) {
		t.Errorf("decoded = %q, want %q", got, want)
	}
	if decTx.SHA256 != sha256.Sum256(want) {
		t.Error("decoded SHA-256 does not match the original payload")
	}
	if encTx.SHA256 != decTx.SHA256 {
		t.Error("encoder and decoder disagree on the transmitted SHA-256")
	}
}

func TestEncodeDecodeRoundTripPhone(t *testing.T) {
	want := []byte("Decode this message")
	samples, _, err := Encode(params.PhoneMode, want, EncodeOptions{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, _ := decodeAll(t, params.PhoneMode, samples, DecodeOptions{})
	if !bytes.Equal(got, want) {
		t.Errorf("decoded = %q, want %q", got, want)
	}
}

func TestEncodeDecodeEncryptedRoundTrip(t *testing.T) {
	want := []byte("Secret encrypted message")
	const password = "testpassword123"

	samples, _, err := Encode(params.WidebandMode, want, EncodeOptions{Password: password})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, _ := decodeAll(t, params.WidebandMode, samples, DecodeOptions{Password: password})
	if !bytes.Equal(got, want) {
		t.Errorf("decoded = %q, want %q", got, want)
	}
}

func TestEncodeDecodeWrongPasswordFails(t *testing.T) {
	want := []byte("Secret encrypted message")
	samples, _, err := Encode(params.WidebandMode, want, EncodeOptions{Password: "testpassword123"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	opts := DecodeOptions{Password: "wrong password", SampleRate: params.WidebandMode.SampleRate}
	dec := NewDecoder(opts)
	chunk := params.WidebandMode.SampleRate / 10
	for i := 0; i < len(samples); i += chunk {
		end := i + chunk
		if end > len(samples) {
			end = len(samples)
		}
		dec.Push(samples[i:end])
	}
	dec.Finish()
	data, _, err := dec.Result()
	if err == nil {
		t.Fatal("expected a decrypt failure with the wrong password")
	}
	if data != nil {
		t.Error("no data should be returned on decrypt failure")
	}
}

func TestEncodeMultiFrameRepeatsHeader(t *testing.T) {
	// 200 incompressible bytes force more than one 128-byte data frame
	// (a repetitive payload would DEFLATE below one frame), which per
	// modulate.Transmission causes the header to be sent twice.
	rng := rand.New(rand.NewSource(7))
	want := make([]byte, 200)
	rng.Read(want)
	samples, encTx, err := Encode(params.WidebandMode, want, EncodeOptions{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encTx.Frames < 2 {
		t.Fatalf("frames = %d, want >= 2", encTx.Frames)
	}

	got, _ := decodeAll(t, params.WidebandMode, samples, DecodeOptions{})
	if !bytes.Equal(got, want) {
		t.Errorf("decoded %d bytes, want %d bytes matching", len(got), len(want))
	}
}

// TestPhoneModeSurvivesTelephonyBandpass passes a Phone-mode
// transmission through a 300-3400Hz bandpass FIR -- the standard
// analog telephone passband -- using codec/pcm's
// SelectiveFrequencyFilter, then confirms the decoder still recovers
// the payload exactly. Phone mode's tones (800-2300Hz) sit well
// inside that band.
func TestPhoneModeSurvivesTelephonyBandpass(t *testing.T) {
	mode := params.PhoneMode
	want := []byte("Decode this message")

	samples, _, err := Encode(mode, want, EncodeOptions{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	const telephoneLowHz = 300
	const telephoneHighHz = 3400
	const taps = 255

	format := pcm.BufferFormat{SFormat: pcm.S16_LE, Rate: uint(mode.SampleRate), Channels: 1}
	filter, err := pcm.NewBandPass(telephoneLowHz, telephoneHighHz, format, taps)
	if err != nil {
		t.Fatalf("building telephony bandpass filter: %v", err)
	}

	buf := pcm.Buffer{Format: format, Data: pcm.Float64ToS16LE(samples)}
	filtered, err := filter.Apply(buf)
	if err != nil {
		t.Fatalf("applying telephony bandpass filter: %v", err)
	}

	got, _ := decodeAll(t, mode, pcm.S16LEToFloat64(filtered), DecodeOptions{})
	if !bytes.Equal(got, want) {
		t.Errorf("decoded after telephony bandpass = %q, want %q", got, want)
	}
}

func TestEncodeRejectsInvalidMode(t *testing.T) {
	bad := params.PhoneMode
	bad.NumTones = 5
	if _, _, err := Encode(bad, []byte("x"), EncodeOptions{}); err == nil {
		t.Error("expected an error for a mode with mismatched num_tones/bits_per_symbol")
	}
}
