/*
NAME
  decoder.go

DESCRIPTION
  decoder.go implements the streaming decoder: an event-driven state
  machine that a caller feeds sample chunks of arbitrary size, moving
  from listening for signal energy through chirp sync, phase/mode
  lock, header recovery, and frame-by-frame data recovery, emitting a
  progress snapshot after every push.

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

// Package demod implements the receive side of the acoustic link: the
// sample ring buffer, chirp matched-filter sync, multi-phase symbol
// extraction, the per-symbol FFT tone detector, and the Decoder state
// machine that ties them to FEC and payload recovery.
package demod

import (
	"math"

	"github.com/pkg/errors"

	"github.com/n3modem/n3modem/codec/fec"
	"github.com/n3modem/n3modem/codec/frame"
	"github.com/n3modem/n3modem/codec/payload"
	"github.com/n3modem/n3modem/params"
)

// State is one of the decoder's tagged state-machine variants.
type State int

const (
	StateIdle State = iota
	StateListening
	StateDetectingPreamble
	StateReceivingHeader
	StateReceivingData
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateDetectingPreamble:
		return "detecting_preamble"
	case StateReceivingHeader:
		return "receiving_header"
	case StateReceivingData:
		return "receiving_data"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EnergyThreshold is the RMS level above which the decoder leaves
// StateListening to start looking for a chirp.
const EnergyThreshold = 0.05

// HeaderWarnFailures and HeaderSwitchFailures are the consecutive
// header-decode failure counts at which the decoder raises a soft
// warning and, respectively, gives up on the current mode guess.
const (
	HeaderWarnFailures   = 5
	HeaderSwitchFailures = 15
)

// ErrIncomplete is returned by Finish when the sample stream ends
// before the frame collector completed.
var ErrIncomplete = errors.New("demod: sample stream ended before transmission completed")

// ErrHeaderExhausted is the fatal error surfaced once header decoding
// has failed HeaderSwitchFailures times with every mode tried.
var ErrHeaderExhausted = errors.New("demod: header decoding failed in every mode")

// Result is the payload recovered once the decoder reaches StateComplete.
type Result struct {
	Data   []byte
	SHA256 [32]byte
	Mode   params.Mode
	Frames int
}

// Progress is a point-in-time snapshot of decode state, suitable for
// polling or for publishing over a bounded channel.
type Progress struct {
	State          State
	SignalLevel    float64
	SyncConfidence float64
	FramesReceived int
	FramesTotal    int
	BytesCorrected int
	SoftWarning    bool
}

// searchMode selects which (mode, phase) candidates the preamble
// search tries next.
type searchMode int

const (
	searchChirp    searchMode = iota // Wait for a chirp match, then confirm its mode.
	searchFallback                   // No chirp seen in time; sweep every mode and phase.
	searchForced                     // Retry or mode-switch after a header/overrun setback.
)

// Decoder recovers a transmission from a stream of mono float64
// samples pushed in arbitrary-sized chunks. It owns the ring buffer,
// the chirp and preamble search state, the frame collector, and the
// password used to reverse payload encryption -- nothing here is
// shared with any other Decoder instance.
type Decoder struct {
	sampleRate int
	password   string
	punctured  bool

	ring *RingBuffer

	state State
	err   error

	modesTried map[params.Name]bool

	search       searchMode
	searchTarget params.Mode
	scanFrom     int64

	lockedMode   params.Mode
	freqOffsetHz float64
	cursor       int64 // Absolute sample index of the next symbol to extract.

	headerSoft     []float64
	headerAttempt  int
	headerFailures int
	softWarning    bool

	header            frame.Header
	collector         *frame.Collector
	currentFrameIndex uint8
	frameSoft         []float64

	bytesCorrected int
	signalLevel    float64
	syncConfidence float64

	result *Result

	progress chan Progress
}

// NewDecoder constructs a Decoder for audio at sampleRate, reversing
// password-based encryption (if any) and assuming the given rate-2/3
// puncturing setting -- both of these are out-of-band agreements
// between the two ends, the same as the caller-selected mode is on the
// encode side.
func NewDecoder(sampleRate int, password string, punctured bool) *Decoder {
	return &Decoder{
		sampleRate: sampleRate,
		password:   password,
		punctured:  punctured,
		ring:       NewRingBuffer(sampleRate),
		state:      StateIdle,
		modesTried: make(map[params.Name]bool),
		progress:   make(chan Progress, 1),
	}
}

// Progress returns the channel progress snapshots are published to
// after every Push. The channel is bounded to one slot; a snapshot
// that isn't drained before the next is published is replaced, never
// queued.
func (d *Decoder) Progress() <-chan Progress {
	return d.progress
}

// Written reports the total number of samples pushed so far.
func (d *Decoder) Written() int64 {
	return d.ring.Written()
}

// Snapshot returns the current progress without waiting on the channel.
func (d *Decoder) Snapshot() Progress {
	p := Progress{
		State:          d.state,
		SignalLevel:    d.signalLevel,
		SyncConfidence: d.syncConfidence,
		BytesCorrected: d.bytesCorrected,
		SoftWarning:    d.softWarning,
	}
	if d.collector != nil {
		p.FramesReceived = d.collector.Received()
		p.FramesTotal = int(d.collector.Header.TotalFrames)
	}
	return p
}

// Result returns the recovered payload once decoding finished, the
// fatal error once it failed, or (nil, nil) while still in progress.
func (d *Decoder) Result() (*Result, error) {
	switch d.state {
	case StateComplete:
		return d.result, nil
	case StateError:
		return nil, d.err
	default:
		return nil, nil
	}
}

// Finish tells the decoder no more samples are coming. A transmission
// still in progress becomes a fatal ErrIncomplete; an already-complete
// or already-failed decoder is unaffected.
func (d *Decoder) Finish() error {
	switch d.state {
	case StateComplete:
		return nil
	case StateError:
		return d.err
	default:
		d.fail(ErrIncomplete)
		return d.err
	}
}

// Push feeds the next chunk of samples, advancing the state machine as
// far as the available samples allow, and publishes a fresh Progress.
func (d *Decoder) Push(samples []float64) {
	if d.state == StateIdle {
		d.state = StateListening
	}
	d.ring.Write(samples)
	d.signalLevel = rms(samples)

	if d.state == StateListening {
		if d.signalLevel > EnergyThreshold {
			d.scanFrom = d.ring.Written() - int64(len(samples))
			if d.scanFrom < 0 {
				d.scanFrom = 0
			}
			d.state = StateDetectingPreamble
		}
	}

	for advanced := true; advanced; {
		switch d.state {
		case StateDetectingPreamble:
			advanced = d.stepPreamble()
		case StateReceivingHeader:
			advanced = d.stepHeader()
		case StateReceivingData:
			advanced = d.stepData()
		default:
			advanced = false
		}
	}

	d.publish()
}

func (d *Decoder) publish() {
	select {
	case <-d.progress:
	default:
	}
	d.progress <- d.Snapshot()
}

func (d *Decoder) fail(err error) {
	d.err = err
	d.state = StateError
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// readWindow reads length samples starting at start. overrun reports a
// read older than the ring's retention; ready reports whether the full
// window has arrived yet.
func (d *Decoder) readWindow(start int64, length int) (samples []float64, overrun, ready bool) {
	samples, ok := d.ring.Range(start, start+int64(length))
	if !ok {
		return nil, true, false
	}
	if len(samples) < length {
		return nil, false, false
	}
	return samples, false, true
}

// collectTones extracts n consecutive symbols' hard tone decisions (and
// their analysis windows, for frequency-offset estimation) starting at
// base, for the given mode.
func (d *Decoder) collectTones(mode params.Mode, base int64, n int) (tones []int, windows [][]float64, overrun, ready bool) {
	tones = make([]int, 0, n)
	windows = make([][]float64, 0, n)
	for i := 0; i < n; i++ {
		symStart := base + int64(i)*int64(mode.SymbolSamples())
		w, over, ok := d.readWindow(symStart+int64(mode.GuardSamples()), ToneWindowSamples(mode))
		if over {
			return nil, nil, true, false
		}
		if !ok {
			return nil, nil, false, false
		}
		tone, _ := HardDecision(mode, w, d.freqOffsetHz)
		tones = append(tones, tone)
		windows = append(windows, w)
	}
	return tones, windows, false, true
}

// minSymbolSamples returns the smallest SymbolSamples among modes, the
// step a sliding preamble search advances by when nothing matched.
func minSymbolSamples(modes []params.Mode) int {
	best := 0
	for i, m := range modes {
		if i == 0 || m.SymbolSamples() < best {
			best = m.SymbolSamples()
		}
	}
	return best
}

// stepPreamble advances chirp/preamble search by as much as the
// buffered samples allow, reporting whether it made forward progress
// (so the caller's loop keeps draining newly available symbols).
func (d *Decoder) stepPreamble() bool {
	written := d.ring.Written()

	if d.search == searchChirp {
		minWindow := int64(d.sampleRate) / 2
		if written-d.scanFrom < minWindow {
			return false
		}
		window, ok := d.ring.Range(d.scanFrom, written)
		if !ok {
			d.scanFrom = written
			return true
		}
		result := DetectChirp(window, d.scanFrom)
		d.syncConfidence = result.Confidence
		if result.Detected {
			d.modesTried[result.Mode.Name] = true
			return d.tryLock([]params.Mode{result.Mode}, result.ChirpEnd)
		}
		fallbackAfter := int64(d.sampleRate) * 3
		if written-d.scanFrom > fallbackAfter {
			d.search = searchFallback
			return true
		}
		return false
	}

	candidates := params.All
	if d.search == searchForced {
		candidates = []params.Mode{d.searchTarget}
	}
	return d.tryLock(candidates, d.scanFrom)
}

// tryLock searches every (mode, phase) pair drawn from candidates,
// anchored at base, for a calibration+sync pattern match, committing
// and transitioning to StateReceivingHeader on the first hit.
func (d *Decoder) tryLock(candidates []params.Mode, base int64) bool {
	overrun := false
	waiting := false
	for _, mode := range candidates {
		for _, off := range PhaseOffsetSamples(mode) {
			start := base + int64(off)
			tones, windows, over, ready := d.collectTones(mode, start, mode.PreambleSymbols())
			if over {
				overrun = true
				continue
			}
			if !ready {
				waiting = true
				continue
			}
			if MatchesPreamble(mode, tones) {
				d.commitLock(mode, start+int64(mode.PreambleSymbols()*mode.SymbolSamples()), windows)
				return true
			}
		}
	}
	if overrun {
		d.scanFrom = d.ring.Written()
		return true
	}
	if waiting {
		// At least one candidate's preamble window hasn't fully
		// arrived; hold position until more samples are pushed rather
		// than sliding past symbols that were never inspected.
		return false
	}
	if d.search != searchChirp {
		d.scanFrom += int64(minSymbolSamples(candidates))
		return true
	}
	return false
}

func (d *Decoder) commitLock(mode params.Mode, dataCursor int64, windows [][]float64) {
	calSymbols := mode.CalibrationSymbols()
	expected := ExpectedPreamble(mode)[:calSymbols]
	d.freqOffsetHz = EstimateFrequencyOffset(mode, windows[:calSymbols], expected)

	d.lockedMode = mode
	d.modesTried[mode.Name] = true
	d.search = searchChirp
	d.cursor = dataCursor
	d.headerSoft = d.headerSoft[:0]
	d.headerAttempt = 0
	d.syncConfidence = 1
	d.state = StateReceivingHeader
}

// resyncForMode sends the decoder back to preamble search, restricted
// to mode, without rediscovering the chirp -- used both to retry a
// failed header under the same mode guess and, after too many
// failures, to switch to an untried one.
func (d *Decoder) resyncForMode(mode params.Mode, from int64) {
	d.search = searchForced
	d.searchTarget = mode
	d.scanFrom = from
	d.headerSoft = d.headerSoft[:0]
	d.frameSoft = d.frameSoft[:0]
	d.state = StateDetectingPreamble
}

// stepHeader accumulates per-bit soft values for the header frame's FEC
// span, attempting a decode once enough symbols have arrived.
func (d *Decoder) stepHeader() bool {
	mode := d.lockedMode
	wireLen := fec.WireLen(frame.HeaderLen, d.punctured)
	needBits := wireLen * 8

	progressed := false
	for len(d.headerSoft) < needBits {
		w, overrun, ready := d.readWindow(d.cursor+int64(mode.GuardSamples()), ToneWindowSamples(mode))
		if overrun {
			d.softReset()
			return true
		}
		if !ready {
			return progressed
		}
		soft, _ := SoftDecision(mode, w, d.freqOffsetHz)
		d.headerSoft = append(d.headerSoft, softBitsForSymbol(mode, soft)...)
		d.cursor += int64(mode.SymbolSamples())
		progressed = true
	}

	d.attemptHeaderDecode(wireLen)
	return true
}

func (d *Decoder) attemptHeaderDecode(wireLen int) {
	result, err := fec.DecodeSoft(d.headerSoft, frame.HeaderLen, d.punctured)
	d.headerSoft = d.headerSoft[:0]

	var h frame.Header
	if err == nil {
		h, err = frame.UnmarshalHeader(result.Data)
	}
	if err == nil {
		d.bytesCorrected += result.NumErrors
		d.headerFailures = 0
		if h.TotalFrames > 1 && d.headerAttempt == 0 {
			// The header was transmitted twice (modulate.Transmission
			// repeats it whenever more than one data frame follows);
			// decoding off the first copy leaves its redundant twin
			// unconsumed in the symbol stream. Skip those symbols now
			// so the data stage starts aligned on the first data frame.
			d.cursor += int64(wireLen*8/d.lockedMode.BitsPerSymbol) * int64(d.lockedMode.SymbolSamples())
		}
		d.commitHeader(h)
		return
	}

	if d.headerAttempt == 0 {
		// Give the redundant copy (emitted immediately after this one
		// when total_frames > 1) a chance before counting a failure.
		d.headerAttempt = 1
		return
	}
	d.headerAttempt = 0
	d.headerFailures++
	d.escalateHeaderFailure()
}

func (d *Decoder) commitHeader(h frame.Header) {
	d.header = h
	// A header re-decoded after a soft reset may belong to the session
	// already being collected; keep the frames received so far and let
	// redelivery no-op. A different session ID starts a fresh collection.
	if d.collector == nil || d.collector.Header.SessionID != h.SessionID {
		d.collector = frame.NewCollector(h)
	}
	d.currentFrameIndex = 1
	d.frameSoft = d.frameSoft[:0]
	d.state = StateReceivingData
}

func (d *Decoder) escalateHeaderFailure() {
	d.softWarning = d.headerFailures >= HeaderWarnFailures
	if d.headerFailures >= HeaderSwitchFailures {
		if other, ok := untriedMode(d.modesTried); ok {
			d.resyncForMode(other, d.cursor)
			return
		}
		d.fail(ErrHeaderExhausted)
		return
	}
	d.resyncForMode(d.lockedMode, d.cursor)
}

func untriedMode(tried map[params.Name]bool) (params.Mode, bool) {
	for _, m := range params.All {
		if !tried[m.Name] {
			return m, true
		}
	}
	return params.Mode{}, false
}

// stepData accumulates and decodes each data frame in turn, adding
// every successfully recovered frame to the collector; a frame that
// fails FEC is dropped, never retried, per the single-pass wire
// format.
func (d *Decoder) stepData() bool {
	mode := d.lockedMode
	progressed := false

	if d.collector.Complete() {
		d.finishCollection()
		return true
	}

	for d.currentFrameIndex <= d.header.TotalFrames {
		dataLen := 3 + d.header.FrameDataLen(d.currentFrameIndex)
		wireLen := fec.WireLen(dataLen, d.punctured)
		needBits := wireLen * 8

		for len(d.frameSoft) < needBits {
			w, overrun, ready := d.readWindow(d.cursor+int64(mode.GuardSamples()), ToneWindowSamples(mode))
			if overrun {
				d.softReset()
				return true
			}
			if !ready {
				return progressed
			}
			soft, _ := SoftDecision(mode, w, d.freqOffsetHz)
			d.frameSoft = append(d.frameSoft, softBitsForSymbol(mode, soft)...)
			d.cursor += int64(mode.SymbolSamples())
			progressed = true
		}

		result, err := fec.DecodeSoft(d.frameSoft, dataLen, d.punctured)
		d.frameSoft = d.frameSoft[:0]
		if err == nil {
			if df, derr := frame.UnmarshalDataFrame(result.Data); derr == nil {
				d.bytesCorrected += result.NumErrors
				d.collector.Add(df)
			}
		}
		d.currentFrameIndex++
		progressed = true

		if d.collector.Complete() {
			d.finishCollection()
			return true
		}
	}
	return progressed
}

func (d *Decoder) finishCollection() {
	raw := d.collector.Reassemble()
	data, sum, err := payload.Recover(raw, d.header.Flags, int(d.header.OriginalLen), d.password)
	if err != nil {
		d.fail(err)
		return
	}
	d.result = &Result{
		Data:   data,
		SHA256: sum,
		Mode:   d.lockedMode,
		Frames: int(d.header.TotalFrames),
	}
	d.state = StateComplete
}

// softReset handles a ring-buffer overrun encountered mid-frame: the
// partial symbol accumulation is discarded and the decoder re-enters
// preamble search without rediscovering the chirp, per the decoder's
// recoverable-error contract.
func (d *Decoder) softReset() {
	d.resyncForMode(d.lockedMode, d.ring.Written())
}

// softBitsForSymbol demaps one symbol's per-tone soft evidence into
// mode.BitsPerSymbol soft-bit values in [0,1], MSB-first, by summing
// the tone evidence on each side of bit position p and normalizing.
func softBitsForSymbol(mode params.Mode, toneSoft []byte) []float64 {
	bits := make([]float64, mode.BitsPerSymbol)
	for p := 0; p < mode.BitsPerSymbol; p++ {
		toneBit := mode.BitsForToneValue(p)
		var zero, one float64
		for tone, v := range toneSoft {
			if toneBit[tone] == 1 {
				one += float64(v)
			} else {
				zero += float64(v)
			}
		}
		total := zero + one
		if total == 0 {
			bits[p] = 0.5
			continue
		}
		bits[p] = one / total
	}
	return bits
}
