/*
NAME
  decode.go

DESCRIPTION
  decode.go implements the top-level NewDecoder constructor: a thin
  wrapper over demod.Decoder that adds the logging story the rest of
  this module follows and translates a completed decode into the same
  Transmission summary Encode produces.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package modem

import (
	"github.com/ausocean/utils/logging"

	"github.com/n3modem/n3modem/demod"
)

// DecodeOptions configures one Decoder. SampleRate is the caller's
// true captured sample rate, which may differ from a mode's nominal
// rate by the small drift the demodulator's frequency tracker
// compensates for.
type DecodeOptions struct {
	SampleRate int
	Password   string
	Punctured  bool

	// Log, if non-nil, receives Debug entries on every state
	// transition. A nil Log is silently skipped.
	Log logging.Logger
}

// Decoder recovers a transmission from a stream of mono float64
// samples. It wraps demod.Decoder, adding the logging this module's
// ambient stack carries throughout, and translating a completed
// decode into a Transmission alongside the recovered bytes.
type Decoder struct {
	inner *demod.Decoder
	log   logging.Logger
	state demod.State
}

// NewDecoder constructs a Decoder per opts.
func NewDecoder(opts DecodeOptions) *Decoder {
	return &Decoder{
		inner: demod.NewDecoder(opts.SampleRate, opts.Password, opts.Punctured),
		log:   opts.Log,
		state: demod.StateIdle,
	}
}

// Push feeds the next chunk of samples into the decoder, logging state
// transitions as they occur.
func (d *Decoder) Push(samples []float64) {
	d.inner.Push(samples)
	if s := d.inner.Snapshot().State; s != d.state {
		d.state = s
		if d.log != nil {
			d.log.Debug("decoder state transition", "state", s.String())
		}
	}
}

// Progress returns the channel the wrapped demod.Decoder publishes
// snapshots to; see demod.Decoder.Progress.
func (d *Decoder) Progress() <-chan demod.Progress {
	return d.inner.Progress()
}

// Snapshot returns the current progress without waiting on the channel.
func (d *Decoder) Snapshot() demod.Progress {
	return d.inner.Snapshot()
}

// Finish tells the decoder no more samples are coming; see
// demod.Decoder.Finish.
func (d *Decoder) Finish() error {
	return d.inner.Finish()
}

// Result returns the recovered payload and its Transmission summary
// once decoding finished, the fatal error once it failed, or (nil,
// Transmission{}, nil) while still in progress.
func (d *Decoder) Result() ([]byte, Transmission, error) {
	result, err := d.inner.Result()
	if err != nil {
		return nil, Transmission{}, err
	}
	if result == nil {
		return nil, Transmission{}, nil
	}
	return result.Data, Transmission{
		Mode:    result.Mode,
		SHA256:  result.SHA256,
		Frames:  result.Frames,
		Samples: int(d.inner.Written()),
	}, nil
}
