/*
NAME
  buffer.go

DESCRIPTION
  buffer.go implements the decoder's sample ring buffer: a single
  fixed-size allocation addressed by absolute sample count modulo its
  size, so writers advance a monotonic counter and readers request
  absolute ranges without ever knowing the physical layout. Reading a
  range older than the buffer's retention reports an overrun rather
  than returning stale or wrapped-over data.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package demod

// RingSeconds is how much audio, at the mode's sample rate, the
// decoder's ring buffer retains.
const RingSeconds = 60

// RingBuffer is a circular buffer of mono float64 samples, owned
// exclusively by one Decoder.
type RingBuffer struct {
	data    []float64
	written int64 // Monotonic count of samples ever written.
}

// NewRingBuffer allocates a ring sized for RingSeconds of audio at
// sampleRate.
func NewRingBuffer(sampleRate int) *RingBuffer {
	return &RingBuffer{data: make([]float64, RingSeconds*sampleRate)}
}

// Write appends samples, advancing the monotonic write counter.
func (r *RingBuffer) Write(samples []float64) {
	for _, s := range samples {
		r.data[r.written%int64(len(r.data))] = s
		r.written++
	}
}

// Written reports the total number of samples ever written.
func (r *RingBuffer) Written() int64 {
	return r.written
}

// Range returns the samples in the absolute index range [start, end).
// ok is false if start has already been overwritten (an overrun); end
// is silently clamped to the number of samples written so far.
func (r *RingBuffer) Range(start, end int64) (samples []float64, ok bool) {
	if end > r.written {
		end = r.written
	}
	if end <= start {
		return nil, true
	}
	if r.written-start > int64(len(r.data)) {
		return nil, false
	}
	out := make([]float64, end-start)
	size := int64(len(r.data))
	for i := range out {
		out[i] = r.data[(start+int64(i))%size]
	}
	return out, true
}
