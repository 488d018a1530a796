/*
NAME
  collector.go

DESCRIPTION
  collector.go implements the receive-side frame collector: it holds a
  header, the session ID it commits to, and the data frames received so
  far, rejecting frames from any other session, and reassembling the
  payload once every index is present.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package frame

// Collector assembles a transmission's data frames under one session
// ID, as committed by its header. It is owned exclusively by one
// decoder instance; there is no internal locking.
type Collector struct {
	Header Header
	frames map[uint8][]byte
}

// NewCollector starts a Collector bound to header's session ID.
func NewCollector(h Header) *Collector {
	return &Collector{
		Header: h,
		frames: make(map[uint8][]byte, h.TotalFrames),
	}
}

// Add offers a decoded data frame to the collector. Frames whose
// session doesn't apply to this collector are not modelled here --
// callers compare SessionID against Header.SessionID themselves before
// calling Add, since the session tag lives on the data frame's
// surrounding context, not DataFrame itself; the receiver never mixes
// frames from two session IDs. Redelivery of an already-held index is
// a no-op.
func (c *Collector) Add(f DataFrame) {
	if f.Index < 1 || int(f.Index) > int(c.Header.TotalFrames) {
		return
	}
	if _, ok := c.frames[f.Index]; ok {
		return
	}
	c.frames[f.Index] = f.Payload
}

// Complete reports whether every frame index in [1, TotalFrames] has
// been received.
func (c *Collector) Complete() bool {
	return len(c.frames) == int(c.Header.TotalFrames)
}

// Received returns how many distinct frame indices have arrived so far.
func (c *Collector) Received() int {
	return len(c.frames)
}

// Reassemble concatenates the held frames in index order, truncating
// the contribution of each frame so the total never exceeds
// Header.PayloadLength -- guarding against a last frame that arrived
// longer than the remaining budget.
func (c *Collector) Reassemble() []byte {
	out := make([]byte, 0, c.Header.PayloadLength)
	remaining := int(c.Header.PayloadLength)
	for i := uint8(1); int(i) <= int(c.Header.TotalFrames); i++ {
		payload := c.frames[i]
		if len(payload) > remaining {
			payload = payload[:remaining]
		}
		out = append(out, payload...)
		remaining -= len(payload)
		if remaining <= 0 {
			break
		}
	}
	return out
}
