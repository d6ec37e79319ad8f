package core

import (
	"fmt"
	"math"
)

// MinDistanceM floors every distance fed to the log-distance model so
// co-located endpoints do not hit log10(0).
const MinDistanceM = 0.1

// fsplConstantDB is 20*log10(4*pi/c) for f in Hz and d in metres.
const fsplConstantDB = -147.55

// PathLossModel is a log-distance model anchored to free-space loss at a
// reference distance:
//
//	PL(d) = PL(d0) + 10*n*log10(max(d, MinDistanceM)/d0)
type PathLossModel struct {
	FrequencyHz        float64
	Exponent           float64
	ReferenceDistanceM float64

	referenceLossDB float64
}

// NewPathLossModel precomputes the free-space loss at the reference
// distance.
func NewPathLossModel(frequencyHz, exponent, referenceDistanceM float64) (*PathLossModel, error) {
	if frequencyHz <= 0 || exponent <= 0 || referenceDistanceM <= 0 {
		return nil, fmt.Errorf("%w: path loss model needs positive frequency, exponent and reference distance (got %v Hz, %v, %v m)",
			ErrInvalidPropagation, frequencyHz, exponent, referenceDistanceM)
	}
	return &PathLossModel{
		FrequencyHz:        frequencyHz,
		Exponent:           exponent,
		ReferenceDistanceM: referenceDistanceM,
		referenceLossDB:    20*math.Log10(referenceDistanceM) + 20*math.Log10(frequencyHz) + fsplConstantDB,
	}, nil
}

// ReferenceLossDB is the free-space loss at the reference distance.
func (m *PathLossModel) ReferenceLossDB() float64 {
	return m.referenceLossDB
}

// LossDB returns the distance-only loss in dB. The result is clamped at
// 0 dB.
func (m *PathLossModel) LossDB(distanceM float64) float64 {
	d := math.Max(distanceM, MinDistanceM)
	pl := m.referenceLossDB + 10*m.Exponent*math.Log10(d/m.ReferenceDistanceM)
	if pl < 0 {
		return 0
	}
	return pl
}
