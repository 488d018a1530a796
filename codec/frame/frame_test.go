/*
NAME
  frame_test.go

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package frame

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Flags:         FlagCompressed | FlagCRC32,
		TotalFrames:   3,
		PayloadLength: 200,
		OriginalLen:   512,
		SessionID:     0xBEEF,
	}
	b := h.Marshal()
	if len(b) != HeaderLen {
		t.Fatalf("marshaled length = %d, want %d", len(b), HeaderLen)
	}
	got, err := UnmarshalHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(h, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestHeaderCRCVectorMatchesTransmitted(t *testing.T) {
	h := Header{Flags: FlagEncrypted, TotalFrames: 1, PayloadLength: 11, OriginalLen: 11, SessionID: 7}
	b := h.Marshal()
	want := crc16CCITT(b[:10])
	got := uint16(b[10]) | uint16(b[11])<<8
	if got != want {
		t.Errorf("transmitted CRC16 = %#04x, want %#04x", got, want)
	}
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	h := Header{TotalFrames: 1, PayloadLength: 1, OriginalLen: 1}
	b := h.Marshal()
	b[0], b[1] = 'N', '1' // Legacy v1 magic must never decode as v3.
	if _, err := UnmarshalHeader(b); err != ErrBadMagic {
		t.Errorf("got err %v, want ErrBadMagic", err)
	}
}

func TestHeaderRejectsCorruptCRC(t *testing.T) {
	h := Header{TotalFrames: 1, PayloadLength: 1, OriginalLen: 1}
	b := h.Marshal()
	b[5] ^= 0xFF
	if _, err := UnmarshalHeader(b); err != ErrHeaderCRC {
		t.Errorf("got err %v, want ErrHeaderCRC", err)
	}
}

func TestDataFrameRoundTrip(t *testing.T) {
	f := DataFrame{Index: 5, Payload: []byte("hello")}
	b := f.Marshal()
	got, err := UnmarshalDataFrame(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPacketizeFrameSizeSelection(t *testing.T) {
	cases := []struct {
		payloadLen int
		wantSize   int
	}{
		{1, 32}, {32, 32}, {33, 64}, {64, 64}, {65, 128}, {300, 128},
	}
	for _, c := range cases {
		if got := FrameSize(c.payloadLen); got != c.wantSize {
			t.Errorf("FrameSize(%d) = %d, want %d", c.payloadLen, got, c.wantSize)
		}
	}
}

func TestPacketizeAndReassemble(t *testing.T) {
	payload := bytes.Repeat([]byte{1, 2, 3, 4}, 50) // 200 bytes -> frame size 128, 2 frames.
	h, frames, err := Packetize(payload, 180, FlagCompressed)
	if err != nil {
		t.Fatal(err)
	}
	if h.TotalFrames != 2 {
		t.Fatalf("total frames = %d, want 2", h.TotalFrames)
	}
	if int(h.PayloadLength) != len(payload) {
		t.Fatalf("payload length = %d, want %d", h.PayloadLength, len(payload))
	}

	c := NewCollector(h)
	for _, f := range frames {
		c.Add(f)
	}
	if !c.Complete() {
		t.Fatal("collector not complete after adding all frames")
	}
	if got := c.Reassemble(); !bytes.Equal(got, payload) {
		t.Fatalf("reassembled payload mismatch: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestCollectorIgnoresRedeliveryAndOutOfRange(t *testing.T) {
	h, frames, err := Packetize([]byte("short payload"), 13, 0)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCollector(h)
	c.Add(frames[0])
	c.Add(frames[0]) // Redelivery is a no-op.
	if c.Received() != 1 {
		t.Fatalf("received = %d, want 1", c.Received())
	}
	c.Add(DataFrame{Index: 99, Payload: []byte("bogus")})
	if c.Received() != 1 {
		t.Fatal("out-of-range frame index was not ignored")
	}
}

func TestFrameDataLenMatchesPacketizeSplit(t *testing.T) {
	payload := bytes.Repeat([]byte{9}, 200) // frame size 128, 2 frames: 128 + 72.
	h, frames, err := Packetize(payload, 200, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range frames {
		if got, want := h.FrameDataLen(f.Index), len(f.Payload); got != want {
			t.Errorf("FrameDataLen(%d) = %d, want %d", f.Index, got, want)
		}
	}
}

func TestReassembleTruncatesOverlongLastFrame(t *testing.T) {
	h := Header{TotalFrames: 1, PayloadLength: 5}
	c := NewCollector(h)
	c.Add(DataFrame{Index: 1, Payload: []byte("toolong")})
	got := c.Reassemble()
	if len(got) != 5 {
		t.Errorf("reassembled length = %d, want 5", len(got))
	}
}
