package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/router-placement/model"
)

var ErrInvalidPropagation = errors.New("invalid propagation config")

// LinkBudget holds the radio figures that decide whether a sensor hears a
// router.
type LinkBudget struct {
	TxPowerDBm       float64 `yaml:"tx_power_dbm" json:"tx_power_dbm"`
	RxSensitivityDBm float64 `yaml:"rx_sensitivity_dbm" json:"rx_sensitivity_dbm"`
}

// AllowableLossDB is the largest path loss at which a sensor still reaches
// its sensitivity threshold.
func (lb LinkBudget) AllowableLossDB() float64 {
	return lb.TxPowerDBm - lb.RxSensitivityDBm
}

// PropagationConfig describes the indoor channel used to build loss
// matrices.
type PropagationConfig struct {
	FrequencyHz        float64 `yaml:"frequency_hz" json:"frequency_hz"`
	PathLossExponent   float64 `yaml:"path_loss_exponent" json:"path_loss_exponent"`
	ReferenceDistanceM float64 `yaml:"reference_distance_m" json:"reference_distance_m"`

	// FloorAttenuationDB is added once per storey separating the two ends
	// of a link.
	FloorAttenuationDB float64 `yaml:"floor_attenuation_db" json:"floor_attenuation_db"`

	Budget    LinkBudget          `yaml:"budget" json:"budget"`
	Materials model.MaterialTable `yaml:"materials" json:"materials"`
}

// DefaultPropagationConfig is a 2.4 GHz low-power indoor deployment.
func DefaultPropagationConfig() PropagationConfig {
	return PropagationConfig{
		FrequencyHz:        2.4e9,
		PathLossExponent:   2.5,
		ReferenceDistanceM: 1.0,
		FloorAttenuationDB: 20.0,
		Budget: LinkBudget{
			TxPowerDBm:       5.0,
			RxSensitivityDBm: -80.0,
		},
		Materials: model.DefaultMaterials(),
	}
}

// ApplyDefaults fills zero-valued fields from DefaultPropagationConfig.
// Budget values are left alone since 0 dBm is a legitimate setting.
func (c PropagationConfig) ApplyDefaults() PropagationConfig {
	d := DefaultPropagationConfig()
	if c.FrequencyHz == 0 {
		c.FrequencyHz = d.FrequencyHz
	}
	if c.PathLossExponent == 0 {
		c.PathLossExponent = d.PathLossExponent
	}
	if c.ReferenceDistanceM == 0 {
		c.ReferenceDistanceM = d.ReferenceDistanceM
	}
	if len(c.Materials) == 0 {
		c.Materials = d.Materials
	}
	return c
}

// Validate checks the channel parameters.
func (c PropagationConfig) Validate() error {
	if c.FrequencyHz <= 0 {
		return fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidPropagation, c.FrequencyHz)
	}
	if c.PathLossExponent <= 0 {
		return fmt.Errorf("%w: path loss exponent must be positive, got %v", ErrInvalidPropagation, c.PathLossExponent)
	}
	if c.ReferenceDistanceM <= 0 {
		return fmt.Errorf("%w: reference distance must be positive, got %v", ErrInvalidPropagation, c.ReferenceDistanceM)
	}
	if c.FloorAttenuationDB < 0 {
		return fmt.Errorf("%w: floor attenuation must be non-negative, got %v", ErrInvalidPropagation, c.FloorAttenuationDB)
	}
	if err := c.Materials.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPropagation, err)
	}
	return nil
}
