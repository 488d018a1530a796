/*
NAME
  acoustigram-recv is a command-line front end that reads a WAV file
  (typically a microphone recording of an acoustigram-send
  transmission) and decodes it back into the original payload.

AUTHORS
  n3modem contributors

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package main implements acoustigram-recv: read a WAV file, feed its
// samples through the modem core's streaming decoder in chunks (as a
// live capture loop would), and print the recovered payload.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/utils/logging"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/n3modem/n3modem/modem"
)

// Logging configuration.
const (
	logPath      = "acoustigram-recv.log"
	logMaxSize   = 10 // MB
	logMaxBackup = 3
	logMaxAge    = 28 // days
)

// chunkMS is the size of the sample chunks pushed into the decoder on
// each iteration, the same ~100ms cadence a live capture loop would
// deliver.
const chunkMS = 100

func main() {
	in := flag.String("in", "", "Input WAV file to decode.")
	password := flag.String("password", "", "Password to reverse ChaCha20-Poly1305 encryption, if any.")
	punctured := flag.Bool("punctured", false, "Expect rate-2/3 punctured convolutional coding.")
	out := flag.String("out", "", "Write the recovered payload to this file instead of stdout.")
	verbose := flag.Bool("v", false, "Log at debug level instead of info.")
	flag.Parse()

	level := logging.Info
	if *verbose {
		level = logging.Debug
	}
	fileLog := &lumberjack.Logger{Filename: logPath, MaxSize: logMaxSize, MaxBackups: logMaxBackup, MaxAge: logMaxAge}
	log := logging.New(level, io.MultiWriter(fileLog, os.Stderr), true)

	if *in == "" {
		log.Fatal("acoustigram-recv: -in is required")
	}

	samples, sampleRate, err := readWAV(*in)
	if err != nil {
		log.Fatal("acoustigram-recv: reading WAV", "error", err.Error())
	}
	log.Info("loaded capture", "samples", len(samples), "sampleRate", sampleRate)

	dec := modem.NewDecoder(modem.DecodeOptions{
		SampleRate: sampleRate,
		Password:   *password,
		Punctured:  *punctured,
		Log:        log,
	})

	chunk := sampleRate * chunkMS / 1000
	for i := 0; i < len(samples); i += chunk {
		end := i + chunk
		if end > len(samples) {
			end = len(samples)
		}
		dec.Push(samples[i:end])
	}
	if err := dec.Finish(); err != nil {
		log.Fatal("acoustigram-recv: decode did not complete", "error", err.Error())
	}

	data, tx, err := dec.Result()
	if err != nil {
		log.Fatal("acoustigram-recv: decode failed", "error", err.Error())
	}
	log.Info("decoded transmission", "mode", tx.Mode.Name, "frames", tx.Frames, "bytes", len(data))

	if *out != "" {
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			log.Fatal("acoustigram-recv: writing output", "error", err.Error())
		}
		fmt.Printf("wrote %s: %d bytes, sha256=%x\n", *out, len(data), tx.SHA256)
		return
	}
	os.Stdout.Write(data)
}

// readWAV decodes path's mono (or stereo, downmixed) 16-bit PCM audio
// into normalized float64 samples in [-1,1], and reports the file's
// sample rate.
func readWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, errors.Wrap(err, "decoding WAV")
	}
	if buf.Format == nil {
		return nil, 0, errors.New("WAV file has no format chunk")
	}

	samples := pcm16ToFloat64(buf.Data, buf.SourceBitDepth)
	if buf.Format.NumChannels == 2 {
		samples = stereoToMonoFloat64(samples)
	} else if buf.Format.NumChannels != 1 {
		return nil, 0, errors.Errorf("unsupported channel count %d", buf.Format.NumChannels)
	}
	return samples, buf.Format.SampleRate, nil
}

// pcm16ToFloat64 normalizes the int-typed PCM codes go-audio's decoder
// produces (sign-extended ints at the file's bit depth) to [-1,1]
// float64 samples.
func pcm16ToFloat64(data []int, bitDepth int) []float64 {
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1)<<(uint(bitDepth)-1)) - 1
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v) / scale
	}
	return out
}

// stereoToMonoFloat64 keeps only the left channel, matching
// codec/pcm.StereoToMono's convention for the byte-oriented path.
func stereoToMonoFloat64(interleaved []float64) []float64 {
	out := make([]float64, len(interleaved)/2)
	for i := range out {
		out[i] = interleaved[2*i]
	}
	return out
}
