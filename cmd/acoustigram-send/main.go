/*
NAME
  acoustigram-send is a command-line front end that encodes a text or
  file payload into an acoustic transmission and writes it out as a
  16-bit PCM WAV file.

AUTHORS
  n3modem contributors

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package main implements acoustigram-send: read a text message (or a
// file), encode it through the modem core, and write the resulting
// audio to a WAV file the companion acoustigram-recv (or any WAV
// player) can play back over a speaker.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/utils/logging"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/n3modem/n3modem/modem"
	"github.com/n3modem/n3modem/params"
)

// Logging configuration.
const (
	logPath      = "acoustigram-send.log"
	logMaxSize   = 10 // MB
	logMaxBackup = 3
	logMaxAge    = 28 // days
)

func main() {
	text := flag.String("text", "", "Message text to send. Mutually exclusive with -file.")
	file := flag.String("file", "", "Path to a file to send instead of -text.")
	out := flag.String("out", "transmission.wav", "Output WAV file path.")
	modeName := flag.String("mode", string(params.Wideband), "Transmission mode: phone or wideband.")
	password := flag.String("password", "", "Password enabling ChaCha20-Poly1305 encryption.")
	punctured := flag.Bool("punctured", false, "Use rate-2/3 punctured convolutional coding.")
	verbose := flag.Bool("v", false, "Log at debug level instead of info.")
	flag.Parse()

	level := logging.Info
	if *verbose {
		level = logging.Debug
	}
	fileLog := &lumberjack.Logger{Filename: logPath, MaxSize: logMaxSize, MaxBackups: logMaxBackup, MaxAge: logMaxAge}
	log := logging.New(level, io.MultiWriter(fileLog, os.Stderr), true)

	data, err := payloadBytes(*text, *file)
	if err != nil {
		log.Fatal("acoustigram-send: reading payload", "error", err.Error())
	}

	mode, err := params.ByName(params.Name(*modeName))
	if err != nil {
		log.Fatal("acoustigram-send: resolving mode", "error", err.Error())
	}

	samples, tx, err := modem.Encode(mode, data, modem.EncodeOptions{
		Password:  *password,
		Punctured: *punctured,
		Log:       log,
	})
	if err != nil {
		log.Fatal("acoustigram-send: encoding", "error", err.Error())
	}
	log.Info("encoded transmission", "mode", tx.Mode.Name, "frames", tx.Frames, "samples", tx.Samples,
		"seconds", float64(tx.Samples)/float64(mode.SampleRate))

	if err := writeWAV(*out, samples, mode.SampleRate); err != nil {
		log.Fatal("acoustigram-send: writing WAV", "error", err.Error())
	}
	fmt.Printf("wrote %s: %d bytes, %.2fs of audio, sha256=%x\n", *out,
		len(data), float64(tx.Samples)/float64(mode.SampleRate), tx.SHA256)
}

func payloadBytes(text, file string) ([]byte, error) {
	switch {
	case file != "" && text != "":
		return nil, fmt.Errorf("-text and -file are mutually exclusive")
	case file != "":
		return os.ReadFile(file)
	case text != "":
		return []byte(text), nil
	default:
		return nil, fmt.Errorf("one of -text or -file is required")
	}
}

// writeWAV encodes samples as mono 16-bit PCM at sampleRate into path,
// using the standard 44-byte RIFF/WAVE/fmt/data layout.
func writeWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	const bitDepth = 16
	const wavFormatPCM = 1
	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, wavFormatPCM)
	defer enc.Close()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           float64ToPCM16(samples),
		SourceBitDepth: bitDepth,
	}
	return enc.Write(buf)
}

// float64ToPCM16 converts normalized float64 samples in [-1,1] to the
// int16-ranged (but int-typed, as go-audio's IntBuffer expects) PCM
// codes a 16-bit WAV encoder writes.
func float64ToPCM16(samples []float64) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int(int16(s * 32767))
	}
	return out
}
