/*
NAME
  dataframe.go

DESCRIPTION
  dataframe.go defines the variable-length data frame: a 3-byte header
  (magic 'D', 1-based frame index, payload length) followed by up to
  255 payload bytes.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package frame

import "github.com/pkg/errors"

// DataMagic identifies a data frame's first byte.
const DataMagic byte = 'D'

// ErrDataMagic is returned when a data frame's first byte isn't DataMagic.
var ErrDataMagic = errors.New("frame: unrecognized data frame magic")

// ErrDataFrameLen is returned when a byte slice is too short to
// contain a valid data frame, or its declared payload length doesn't
// match what follows.
var ErrDataFrameLen = errors.New("frame: malformed data frame length")

// DataFrame is one payload-carrying frame, tagged with its 1-based
// index within the transmission.
type DataFrame struct {
	Index   uint8
	Payload []byte
}

// Marshal encodes f as magic||index||len(payload)||payload.
func (f DataFrame) Marshal() []byte {
	b := make([]byte, 3+len(f.Payload))
	b[0] = DataMagic
	b[1] = f.Index
	b[2] = byte(len(f.Payload))
	copy(b[3:], f.Payload)
	return b
}

// UnmarshalDataFrame decodes a data frame, validating its magic byte
// and that the declared payload length matches the bytes available.
func UnmarshalDataFrame(b []byte) (DataFrame, error) {
	if len(b) < 3 {
		return DataFrame{}, ErrDataFrameLen
	}
	if b[0] != DataMagic {
		return DataFrame{}, ErrDataMagic
	}
	n := int(b[2])
	if len(b) != 3+n {
		return DataFrame{}, ErrDataFrameLen
	}
	payload := make([]byte, n)
	copy(payload, b[3:])
	return DataFrame{Index: b[1], Payload: payload}, nil
}
