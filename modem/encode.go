/*
NAME
  encode.go

DESCRIPTION
  encode.go implements the top-level Encode entry point: it runs the
  payload processor, packetizer, and per-frame FEC encoder, then hands
  the encoded header and data frame bytes to the modulator to render
  the full transmission's audio samples.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package modem

import (
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/n3modem/n3modem/codec/fec"
	"github.com/n3modem/n3modem/codec/frame"
	"github.com/n3modem/n3modem/codec/payload"
	"github.com/n3modem/n3modem/modulate"
	"github.com/n3modem/n3modem/params"
)

// EncodeOptions configures one call to Encode: an explicit,
// caller-built value, never package-level state.
type EncodeOptions struct {
	// Password, if non-empty, enables ChaCha20-Poly1305 encryption of
	// the payload (see codec/payload).
	Password string

	// Punctured selects rate-2/3 puncturing of the convolutional code
	// instead of the rate-1/2 base code.
	Punctured bool

	// Log, if non-nil, receives Debug entries describing the stages
	// Encode ran through. A nil Log is silently skipped.
	Log logging.Logger
}

func (o EncodeOptions) debug(msg string, kv ...interface{}) {
	if o.Log != nil {
		o.Log.Debug(msg, kv...)
	}
}

// Encode runs the full transmit pipeline for data under mode: prepare
// the payload (compress, optionally encrypt), packetize it into a
// header and data frames, FEC-encode and interleave each frame, then
// render the complete transmission audio, including the warm-up tone,
// chirp, calibration, and sync preamble.
//
// The header frame is transmitted twice whenever more than one data
// frame is emitted, giving the receiver's header recovery a second
// chance without waiting for the whole transmission to replay.
func Encode(mode params.Mode, data []byte, opts EncodeOptions) ([]float64, Transmission, error) {
	if err := mode.Validate(); err != nil {
		return nil, Transmission{}, errors.Wrap(err, "modem: invalid mode")
	}

	prepared, err := payload.Prepare(data, opts.Password)
	if err != nil {
		return nil, Transmission{}, errors.Wrap(err, "modem: preparing payload")
	}
	opts.debug("payload prepared", "len", len(prepared.Payload), "flags", prepared.Flags)

	header, frames, err := frame.Packetize(prepared.Payload, prepared.OriginalLen, prepared.Flags)
	if err != nil {
		return nil, Transmission{}, errors.Wrap(err, "modem: packetizing payload")
	}
	opts.debug("packetized", "frames", len(frames), "sessionID", header.SessionID)

	headerWire := fec.Encode(header.Marshal(), opts.Punctured)

	dataWire := make([]byte, 0, len(frames)*fec.WireLen(frame.FrameSize(int(header.PayloadLength)), opts.Punctured))
	for _, f := range frames {
		dataWire = append(dataWire, fec.Encode(f.Marshal(), opts.Punctured)...)
	}

	samples := modulate.Transmission(mode, headerWire, len(frames) > 1, dataWire)
	opts.debug("rendered transmission", "samples", len(samples), "mode", mode.Name)

	return samples, Transmission{
		Mode:    mode,
		SHA256:  prepared.SHA256,
		Frames:  len(frames),
		Samples: len(samples),
	}, nil
}
