// Package config loads model documents: YAML files describing orbital
// elements, a noise kernel, exposure settings, and observations.
//
// Every document is unified against an embedded CUE schema before decoding,
// so constraint violations (negative period, eccentricity outside [0,1),
// unknown kernel term types) are reported with file positions instead of
// surfacing later as numeric errors.
package config

import (
	"errors"
	"fmt"

	"github.com/roach88/orbitkit/internal/celerite"
	"github.com/roach88/orbitkit/internal/exposure"
	"github.com/roach88/orbitkit/internal/orbit"
)

// ErrInvalidModel is returned for documents that pass the schema but fail a
// cross-field check the schema cannot express.
var ErrInvalidModel = errors.New("config: invalid model")

// Model is one decoded model document.
type Model struct {
	Elements     ElementsConfig      `yaml:"elements"`
	Kernel       []TermConfig        `yaml:"kernel,omitempty"`
	Exposure     *ExposureConfig     `yaml:"exposure,omitempty"`
	Observations *ObservationsConfig `yaml:"observations,omitempty"`
}

// ElementsConfig mirrors orbit.Elements in document form.
type ElementsConfig struct {
	SemiMajor   float64 `yaml:"semi_major"`
	Ecc         float64 `yaml:"ecc"`
	Inclination float64 `yaml:"inclination"`
	OmegaPeri   float64 `yaml:"omega_peri"`
	OmegaNode   float64 `yaml:"omega_node"`
	Period      float64 `yaml:"period"`
	TPeri       float64 `yaml:"t_peri"`
	Parallax    float64 `yaml:"parallax"`
}

// TermConfig is one kernel term, discriminated by Type. Only the fields of
// the selected type are meaningful; the schema enforces the pairing.
type TermConfig struct {
	Type string `yaml:"type"` // "real" | "complex" | "sho" | "rotation"

	A float64 `yaml:"a,omitempty"`
	B float64 `yaml:"b,omitempty"`
	C float64 `yaml:"c,omitempty"`
	D float64 `yaml:"d,omitempty"`

	S0 float64 `yaml:"s0,omitempty"`
	W0 float64 `yaml:"w0,omitempty"`
	Q  float64 `yaml:"q,omitempty"`

	Amp    float64 `yaml:"amp,omitempty"`
	Period float64 `yaml:"period,omitempty"`
	Q0     float64 `yaml:"q0,omitempty"`
	DeltaQ float64 `yaml:"delta_q,omitempty"`
	Mix    float64 `yaml:"mix,omitempty"`
}

// ExposureConfig describes finite-exposure integration settings.
type ExposureConfig struct {
	Duration float64 `yaml:"duration"`
	Tol      float64 `yaml:"tol,omitempty"`
	MaxDepth int     `yaml:"max_depth,omitempty"`
}

// ObservationsConfig is the observed series for likelihood evaluation.
type ObservationsConfig struct {
	Times     []float64 `yaml:"times"`
	Values    []float64 `yaml:"values"`
	Variances []float64 `yaml:"variances"`
}

// OrbitElements converts the document elements to the numeric type,
// validating domain constraints.
func (m *Model) OrbitElements() (orbit.Elements, error) {
	el := orbit.Elements{
		SemiMajor:   m.Elements.SemiMajor,
		Ecc:         m.Elements.Ecc,
		Inclination: m.Elements.Inclination,
		OmegaPeri:   m.Elements.OmegaPeri,
		OmegaNode:   m.Elements.OmegaNode,
		Period:      m.Elements.Period,
		TPeri:       m.Elements.TPeri,
		Parallax:    m.Elements.Parallax,
	}
	if err := el.Validate(); err != nil {
		return orbit.Elements{}, err
	}
	return el, nil
}

// CeleriteKernel converts the kernel term list. Returns ErrInvalidModel when
// the document has no kernel section.
func (m *Model) CeleriteKernel() (celerite.Kernel, error) {
	if len(m.Kernel) == 0 {
		return nil, fmt.Errorf("%w: no kernel terms", ErrInvalidModel)
	}
	k := make(celerite.Kernel, 0, len(m.Kernel))
	for i, tc := range m.Kernel {
		var term celerite.Term
		switch tc.Type {
		case "real":
			term = celerite.RealTerm{A: tc.A, C: tc.C}
		case "complex":
			term = celerite.ComplexTerm{A: tc.A, B: tc.B, C: tc.C, D: tc.D}
		case "sho":
			term = celerite.SHOTerm{S0: tc.S0, W0: tc.W0, Q: tc.Q}
		case "rotation":
			term = celerite.RotationTerm{
				Amp: tc.Amp, Period: tc.Period,
				Q0: tc.Q0, DeltaQ: tc.DeltaQ, Mix: tc.Mix,
			}
		default:
			return nil, fmt.Errorf("%w: kernel[%d] has unknown type %q", ErrInvalidModel, i, tc.Type)
		}
		if err := term.Validate(); err != nil {
			return nil, fmt.Errorf("kernel[%d]: %w", i, err)
		}
		k = append(k, term)
	}
	return k, nil
}

// ExposureWindow returns the window for one epoch, applying the document's
// exposure settings (zero duration when the document has none).
func (m *Model) ExposureWindow(t float64) exposure.Window {
	w := exposure.Window{T: t, Tol: 1e-9}
	if m.Exposure == nil {
		return w
	}
	w.D = m.Exposure.Duration
	if m.Exposure.Tol > 0 {
		w.Tol = m.Exposure.Tol
	}
	w.MaxDepth = m.Exposure.MaxDepth
	return w
}

// ObservationSeries returns the observed series, verifying the cross-field
// length agreement the schema cannot check.
func (m *Model) ObservationSeries() (times, values, variances []float64, err error) {
	o := m.Observations
	if o == nil || len(o.Times) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no observations", ErrInvalidModel)
	}
	if len(o.Values) != len(o.Times) {
		return nil, nil, nil, fmt.Errorf("%w: %d times but %d values",
			ErrInvalidModel, len(o.Times), len(o.Values))
	}
	if len(o.Variances) != len(o.Times) {
		return nil, nil, nil, fmt.Errorf("%w: %d times but %d variances",
			ErrInvalidModel, len(o.Times), len(o.Variances))
	}
	return o.Times, o.Values, o.Variances, nil
}
