/*
NAME
  payload.go

DESCRIPTION
  payload.go implements the payload processor: DEFLATE compression,
  optional ChaCha20-Poly1305 encryption with a PBKDF2-derived key, and a
  CRC32 integrity check for the unencrypted case. Prepare runs the
  forward chain (compress, then encrypt, then checksum); Recover runs
  it in reverse, failing with a distinct error kind at the first check
  that doesn't pass.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package payload implements the transmission payload processor:
// compression, optional password-based authenticated encryption, and
// the integrity check that binds the two together before framing.
package payload

import (
	"bytes"
	"compress/flate"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"github.com/n3modem/n3modem/codec/frame"
)

const (
	saltLen          = 16
	nonceLen         = 12
	pbkdf2Iterations = 100000
	keyLen           = chacha20poly1305.KeySize
)

// ErrDecompress covers both a DEFLATE stream error and a decompressed
// length that doesn't match the original length carried in the header.
var ErrDecompress = errors.New("payload: decompression failed or length mismatch")

// ErrDecrypt is returned when the AEAD authentication tag doesn't
// verify -- a wrong password or corrupted ciphertext.
var ErrDecrypt = errors.New("payload: AEAD authentication failed")

// ErrPayloadCRC is returned when the trailing CRC32 (present only on
// unencrypted payloads) doesn't match.
var ErrPayloadCRC = errors.New("payload: CRC32 mismatch")

// Prepared is the result of Prepare: the bytes ready for the
// packetizer, the header fields that travel alongside them, and the
// SHA-256 of the original input (so the encoder and decoder can agree
// the same bytes made the trip).
type Prepared struct {
	Payload     []byte
	OriginalLen int
	Flags       byte
	SHA256      [32]byte
}

// Prepare runs the forward chain: compress (if it shrinks the input),
// then encrypt (if password is non-empty), then append a CRC32 if and
// only if the payload was not encrypted.
func Prepare(data []byte, password string) (Prepared, error) {
	sum := sha256.Sum256(data)
	body := data

	var flags byte
	if compressed, ok := deflate(data); ok {
		body = compressed
		flags |= frame.FlagCompressed
	}

	if password != "" {
		enc, err := encrypt(body, password)
		if err != nil {
			return Prepared{}, errors.Wrap(err, "payload: encrypting")
		}
		body = enc
		flags |= frame.FlagEncrypted
	} else {
		withCRC := make([]byte, len(body)+4)
		copy(withCRC, body)
		binary.LittleEndian.PutUint32(withCRC[len(body):], crc32.ChecksumIEEE(body))
		body = withCRC
		flags |= frame.FlagCRC32
	}

	return Prepared{
		Payload:     body,
		OriginalLen: len(data),
		Flags:       flags,
		SHA256:      sum,
	}, nil
}

// Recover runs the reverse chain: verify-and-strip CRC32, decrypt,
// decompress, in that order, returning the original bytes and their
// SHA-256. Any failure returns a distinct sentinel error.
func Recover(payload []byte, flags byte, originalLen int, password string) ([]byte, [32]byte, error) {
	body := payload

	if flags&frame.FlagCRC32 != 0 {
		if len(body) < 4 {
			return nil, [32]byte{}, ErrPayloadCRC
		}
		n := len(body) - 4
		want := binary.LittleEndian.Uint32(body[n:])
		if got := crc32.ChecksumIEEE(body[:n]); got != want {
			return nil, [32]byte{}, ErrPayloadCRC
		}
		body = body[:n]
	}

	if flags&frame.FlagEncrypted != 0 {
		dec, err := decrypt(body, password)
		if err != nil {
			return nil, [32]byte{}, ErrDecrypt
		}
		body = dec
	}

	if flags&frame.FlagCompressed != 0 {
		out, err := inflate(body, originalLen)
		if err != nil {
			return nil, [32]byte{}, err
		}
		body = out
	}

	if len(body) != originalLen {
		return nil, [32]byte{}, ErrDecompress
	}
	return body, sha256.Sum256(body), nil
}

// deflate compresses data at the maximum DEFLATE level. It returns
// ok=false (and a nil slice) if the compressed form isn't smaller than
// the input, in which case the caller keeps the original bytes.
func deflate(data []byte) ([]byte, bool) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, false
	}
	if _, err := w.Write(data); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	if buf.Len() >= len(data) {
		return nil, false
	}
	return buf.Bytes(), true
}

// inflate decompresses data and checks the result is exactly wantLen
// bytes long.
func inflate(data []byte, wantLen int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrDecompress
	}
	if len(out) != wantLen {
		return nil, ErrDecompress
	}
	return out, nil
}

// encrypt seals data with ChaCha20-Poly1305 under a PBKDF2-SHA256 key
// derived from password and a fresh random salt. The wire layout is
// ciphertext||salt||nonce||tag: the 16-byte salt, 12-byte nonce, and
// 16-byte Poly1305 tag are appended after the ciphertext in that
// order, for 44 bytes of total overhead.
func encrypt(data []byte, password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}

	// Seal produces ciphertext||tag; the salt and nonce slot in
	// between on the wire.
	sealed := aead.Seal(nil, nonce, data, nil)
	split := len(sealed) - chacha20poly1305.Overhead
	out := make([]byte, 0, len(sealed)+saltLen+nonceLen)
	out = append(out, sealed[:split]...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed[split:]...)
	return out, nil
}

// decrypt reverses encrypt.
func decrypt(data []byte, password string) ([]byte, error) {
	overhead := saltLen + nonceLen + chacha20poly1305.Overhead
	if len(data) < overhead {
		return nil, errors.New("payload: ciphertext shorter than salt+nonce+tag")
	}
	n := len(data) - overhead
	ciphertext := data[:n]
	salt := data[n : n+saltLen]
	nonce := data[n+saltLen : n+saltLen+nonceLen]
	tag := data[n+saltLen+nonceLen:]

	aead, err := chacha20poly1305.New(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	return aead.Open(nil, nonce, sealed, nil)
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha256.New)
}
