package core

import (
	"errors"
	"math"
	"testing"
)

func defaultPathLoss(t *testing.T) *PathLossModel {
	t.Helper()
	m, err := NewPathLossModel(2.4e9, 2.5, 1.0)
	if err != nil {
		t.Fatalf("NewPathLossModel: %v", err)
	}
	return m
}

func TestPathLossReference(t *testing.T) {
	m := defaultPathLoss(t)
	want := 20*math.Log10(2.4e9) - 147.55
	if math.Abs(m.ReferenceLossDB()-want) > 1e-9 {
		t.Fatalf("ReferenceLossDB() = %v, want %v", m.ReferenceLossDB(), want)
	}
	if got := m.LossDB(1); math.Abs(got-want) > 1e-9 {
		t.Fatalf("LossDB(1) = %v, want reference %v", got, want)
	}
	if got := m.LossDB(10); math.Abs(got-(want+25)) > 1e-9 {
		t.Fatalf("LossDB(10) = %v, want %v", got, want+25)
	}
}

func TestPathLossZeroDistanceIsFloored(t *testing.T) {
	m := defaultPathLoss(t)
	if m.LossDB(0) != m.LossDB(MinDistanceM) {
		t.Fatalf("LossDB(0) = %v, want LossDB(%v) = %v", m.LossDB(0), MinDistanceM, m.LossDB(MinDistanceM))
	}
	if m.LossDB(0.05) != m.LossDB(MinDistanceM) {
		t.Fatalf("distances under the floor should be clamped")
	}
	if m.LossDB(-3) != m.LossDB(MinDistanceM) {
		t.Fatalf("negative distances should be clamped")
	}
}

func TestPathLossMonotonicAndNonNegative(t *testing.T) {
	m := defaultPathLoss(t)
	prev := m.LossDB(0)
	if prev < 0 {
		t.Fatalf("LossDB(0) = %v, want >= 0", prev)
	}
	for d := 0.01; d < 500; d *= 1.3 {
		got := m.LossDB(d)
		if got < 0 {
			t.Fatalf("LossDB(%v) = %v, want >= 0", d, got)
		}
		if got < prev {
			t.Fatalf("LossDB(%v) = %v decreased from %v", d, got, prev)
		}
		prev = got
	}
}

func TestPathLossClampsAtZero(t *testing.T) {
	m, err := NewPathLossModel(1e6, 2, 1)
	if err != nil {
		t.Fatalf("NewPathLossModel: %v", err)
	}
	if m.ReferenceLossDB() >= 0 {
		t.Fatalf("expected negative reference loss at 1 MHz, got %v", m.ReferenceLossDB())
	}
	if got := m.LossDB(1); got != 0 {
		t.Fatalf("LossDB(1) = %v, want 0", got)
	}
}

func TestNewPathLossModelValidation(t *testing.T) {
	for _, tc := range []struct{ f, n, d0 float64 }{
		{0, 2, 1},
		{2.4e9, 0, 1},
		{2.4e9, 2, 0},
		{-1, 2, 1},
	} {
		if _, err := NewPathLossModel(tc.f, tc.n, tc.d0); !errors.Is(err, ErrInvalidPropagation) {
			t.Errorf("NewPathLossModel(%v, %v, %v) error = %v, want ErrInvalidPropagation", tc.f, tc.n, tc.d0, err)
		}
	}
}
