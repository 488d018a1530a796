/*
NAME
  modem.go

DESCRIPTION
  modem.go defines the top-level orchestration types shared by Encode
  and Decode: the Transmission result that bundles the SHA-256 of the
  original payload, the mode used, and how many samples/frames were
  involved -- the single value both sides can compare to agree the
  same bytes made the trip.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package modem ties the payload processor, packetizer, FEC, modulator
// and demodulator into the single top-level Encode and NewDecoder
// entry points a caller uses to send or receive a transmission. It
// holds no state of its own beyond what Encode and Decoder need for
// one transmission; the modem is not a long-lived service.
package modem

import "github.com/n3modem/n3modem/params"

// Transmission summarizes one encode or decode: the mode used, the
// SHA-256 of the original (pre-compression, pre-encryption) payload
// bytes, the number of data frames, and a sample count. Both sides
// fill Mode, SHA256 and Frames the same way, so a caller can compare
// them without reaching into either side's internals. Samples differs
// by side: the encoder reports the length of the rendered transmission
// audio, the decoder the total number of samples pushed into it so far,
// including any audio before or after the transmission itself.
type Transmission struct {
	Mode    params.Mode
	SHA256  [32]byte
	Frames  int
	Samples int
}
