/*
NAME
  buffer_test.go

LICENSE
  Copyright (C) 2024 the n3modem contributors.

  This is free software: you can redistribute it and/or modify it
  under the terms of the BSD 3-Clause License as published in the
  LICENSE file of this repository.
*/

package demod

import "testing"

func TestRingBufferWriteAndRange(t *testing.T) {
	r := &RingBuffer{data: make([]float64, 10)}
	r.Write([]float64{1, 2, 3, 4, 5})
	got, ok := r.Range(1, 4)
	if !ok {
		t.Fatal("unexpected overrun")
	}
	want := []float64{2, 3, 4}
	for i, v := range want {
		if got[i] != v {
			t.Errorf("sample %d = %v, want %v", i, got[i], v)
		}
	}
}

func TestRingBufferWrapsAround(t *testing.T) {
	r := &RingBuffer{data: make([]float64, 4)}
	r.Write([]float64{1, 2, 3, 4, 5, 6})
	got, ok := r.Range(4, 6)
	if !ok {
		t.Fatal("unexpected overrun")
	}
	want := []float64{5, 6}
	for i, v := range want {
		if got[i] != v {
			t.Errorf("sample %d = %v, want %v", i, got[i], v)
		}
	}
}

func TestRingBufferOverrun(t *testing.T) {
	r := &RingBuffer{data: make([]float64, 4)}
	r.Write([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	if _, ok := r.Range(0, 2); ok {
		t.Error("expected overrun reading overwritten samples")
	}
}

func TestRingBufferClampsEndToWritten(t *testing.T) {
	r := &RingBuffer{data: make([]float64, 10)}
	r.Write([]float64{1, 2, 3})
	got, ok := r.Range(0, 100)
	if !ok {
		t.Fatal("unexpected overrun")
	}
	if len(got) != 3 {
		t.Errorf("range length = %d, want 3", len(got))
	}
}

func TestRingBufferEmptyRange(t *testing.T) {
	r := &RingBuffer{data: make([]float64, 10)}
	r.Write([]float64{1, 2, 3})
	got, ok := r.Range(5, 5)
	if !ok || len(got) != 0 {
		t.Errorf("empty range = %v, ok=%v, want empty, true", got, ok)
	}
}
