/*
NAME
  crc.go

DESCRIPTION
  crc.go implements the CRC16-CCITT check used to protect the header
  frame. The payload CRC32 (IEEE, reflected) is the standard library's
  hash/crc32, used directly by codec/payload.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package frame

// crc16CCITT computes the CRC16-CCITT (init 0xFFFF, poly 0x1021, no
// reflection, no xor-out) of b, matching the header frame's trailing
// check field.
func crc16CCITT(b []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, by := range b {
		crc ^= uint16(by) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
