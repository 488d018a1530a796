/*
NAME
  header.go

DESCRIPTION
  header.go defines the 12-byte header frame: magic, version/flags,
  frame count, payload/original lengths, session ID, and a CRC16-CCITT
  trailer protecting the rest of the header.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package frame defines the wire format: the 12-byte header frame, the
// variable-length data frame, the packetizer that splits a payload
// into frames, and the collector that reassembles them on receive.
package frame

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderLen is the fixed size in bytes of a header frame.
const HeaderLen = 12

// Magic identifies a v3 header. Any other two bytes at offset 0 MUST
// be rejected -- in particular a peer MUST NOT attempt to decode a
// legacy "N1" header as if it were v3.
var Magic = [2]byte{'N', '3'}

// Version is the protocol version encoded in the high nibble of byte 2.
const Version byte = 0x03

// Flag bits, packed into the low nibble of byte 2.
const (
	FlagCompressed byte = 1 << 0
	FlagEncrypted  byte = 1 << 1
	FlagCRC32      byte = 1 << 2
)

// ErrBadMagic is returned when the header's magic bytes don't match
// Magic -- including the legacy "N1" wire format, which this
// implementation never attempts to decode.
var ErrBadMagic = errors.New("frame: unrecognized header magic")

// ErrHeaderCRC is returned when the trailing CRC16 does not match the
// first 10 bytes of the header.
var ErrHeaderCRC = errors.New("frame: header CRC16 mismatch")

// ErrHeaderLen is returned when a byte slice is the wrong size to be a
// header frame.
var ErrHeaderLen = errors.New("frame: header frame must be exactly 12 bytes")

// Header is the parsed form of the 12-byte header frame.
type Header struct {
	Flags         byte
	TotalFrames   uint8
	PayloadLength uint16 // Length after compression/encryption.
	OriginalLen   uint16 // Length before compression.
	SessionID     uint16
}

// Compressed reports whether FlagCompressed is set.
func (h Header) Compressed() bool { return h.Flags&FlagCompressed != 0 }

// Encrypted reports whether FlagEncrypted is set.
func (h Header) Encrypted() bool { return h.Flags&FlagEncrypted != 0 }

// CRC32Present reports whether FlagCRC32 is set.
func (h Header) CRC32Present() bool { return h.Flags&FlagCRC32 != 0 }

// Marshal encodes h into a 12-byte header frame, computing the
// trailing CRC16-CCITT over bytes 0..9.
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderLen)
	b[0], b[1] = Magic[0], Magic[1]
	b[2] = (Version << 4) | (h.Flags & 0x0F)
	b[3] = byte(h.TotalFrames)
	binary.LittleEndian.PutUint16(b[4:6], h.PayloadLength)
	binary.LittleEndian.PutUint16(b[6:8], h.OriginalLen)
	binary.LittleEndian.PutUint16(b[8:10], h.SessionID)
	binary.LittleEndian.PutUint16(b[10:12], crc16CCITT(b[:10]))
	return b
}

// UnmarshalHeader decodes and validates a 12-byte header frame,
// checking the magic and the CRC16 trailer.
func UnmarshalHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, ErrHeaderLen
	}
	if b[0] != Magic[0] || b[1] != Magic[1] {
		return Header{}, ErrBadMagic
	}
	want := binary.LittleEndian.Uint16(b[10:12])
	if got := crc16CCITT(b[:10]); got != want {
		return Header{}, ErrHeaderCRC
	}
	return Header{
		Flags:         b[2] & 0x0F,
		TotalFrames:   b[3],
		PayloadLength: binary.LittleEndian.Uint16(b[4:6]),
		OriginalLen:   binary.LittleEndian.Uint16(b[6:8]),
		SessionID:     binary.LittleEndian.Uint16(b[8:10]),
	}, nil
}
