/*
NAME
  packetizer.go

DESCRIPTION
  packetizer.go splits a prepared transmission payload into a header
  frame and a run of data frames, choosing the frame-payload size from
  the payload's length and giving the header a random session ID
  (data frames carry no session field of their own).

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package frame

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrPayloadTooLarge is returned when a payload can't be represented
// in the wire format: more than 255 data frames would be required, or
// the payload/original lengths don't fit in their 16-bit fields.
var ErrPayloadTooLarge = errors.New("frame: payload too large to packetize")

// FrameSize chooses the per-frame payload size (32/64/128 bytes) for a
// payload of the given length.
func FrameSize(payloadLen int) int {
	switch {
	case payloadLen <= 32:
		return 32
	case payloadLen <= 64:
		return 64
	default:
		return 128
	}
}

// Packetize splits payload into a header frame and data frames. flags
// must already encode compressed/encrypted/crc32-present as determined
// by the payload processor; Packetize only fills in the frame count,
// lengths, and a fresh random session ID.
func Packetize(payload []byte, originalLen int, flags byte) (Header, []DataFrame, error) {
	if len(payload) > 0xFFFF || originalLen > 0xFFFF {
		return Header{}, nil, ErrPayloadTooLarge
	}

	size := FrameSize(len(payload))
	total := (len(payload) + size - 1) / size
	if total == 0 {
		total = 1 // An empty payload still gets one (empty) data frame.
	}
	if total > 255 {
		return Header{}, nil, ErrPayloadTooLarge
	}

	sessionID, err := randomSessionID()
	if err != nil {
		return Header{}, nil, errors.Wrap(err, "frame: generating session ID")
	}

	frames := make([]DataFrame, total)
	for i := 0; i < total; i++ {
		start := i * size
		end := start + size
		if end > len(payload) {
			end = len(payload)
		}
		frames[i] = DataFrame{
			Index:   uint8(i + 1),
			Payload: append([]byte{}, payload[start:end]...),
		}
	}

	header := Header{
		Flags:         flags,
		TotalFrames:   uint8(total),
		PayloadLength: uint16(len(payload)),
		OriginalLen:   uint16(originalLen),
		SessionID:     sessionID,
	}
	return header, frames, nil
}

// FrameDataLen returns the payload length, in bytes, of data frame
// index (1-based) under header h, recomputing the same per-frame size
// Packetize used so a receiver that only has h can size its next
// frame's FEC span before the payload is reassembled.
func (h Header) FrameDataLen(index uint8) int {
	size := FrameSize(int(h.PayloadLength))
	total := int(h.TotalFrames)
	if total == 0 || int(index) < total {
		return size
	}
	last := int(h.PayloadLength) - size*(total-1)
	if last < 0 {
		last = 0
	}
	return last
}

func randomSessionID() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}
