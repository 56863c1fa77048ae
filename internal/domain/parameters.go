package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Strategy name constants.
const (
	StrategySMACross        = "SMA_CROSS"
	StrategyRSIReversal     = "RSI_REVERSAL"
	StrategyChannelBreakout = "CHANNEL_BREAKOUT"
)

// ParamRange describes one swept parameter: an inclusive [Min, Max] range
// walked in Step increments.
type ParamRange struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step" json:"step"`
}

// ParameterSet is a strategy catalogue entry: which parameters are swept
// during optimization, which of them are strategy-specific (as opposed to
// shared across all strategies, like the lookback window), and which
// auxiliary data enhancers the strategy requires.
type ParameterSet struct {
	Strategy  string                `yaml:"strategy"`
	Swept     map[string]ParamRange `yaml:"swept"`
	Specific  []string              `yaml:"specific"`
	Enhancers []string              `yaml:"enhancers"`
}

// StrategyParams is the typed parameter record passed to a strategy
// factory, discriminated by Strategy. Fields not used by the named
// strategy stay nil; factories validate required fields and reject the
// rest of the configuration as a catalogue defect.
type StrategyParams struct {
	Strategy string `json:"strategy"`
	Window   int    `json:"window"` // shared lookback, bars

	// SMA_CROSS
	FastSpan *float64 `json:"fast_span,omitempty"`
	SlowSpan *float64 `json:"slow_span,omitempty"`

	// RSI_REVERSAL
	BuyLevel  *float64 `json:"buy_level,omitempty"`
	SellLevel *float64 `json:"sell_level,omitempty"`

	// CHANNEL_BREAKOUT
	ChannelSpan *float64 `json:"channel_span,omitempty"`
	BandPct     *float64 `json:"band_pct,omitempty"`
}

// EncodeParams serializes a parameter record. This is the single codec
// parameters round-trip through; persisted rows store exactly this form.
func EncodeParams(p StrategyParams) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode strategy params: %w", err)
	}
	return data, nil
}

// DecodeParams deserializes a parameter record produced by EncodeParams.
func DecodeParams(data []byte) (StrategyParams, error) {
	var p StrategyParams
	if err := json.Unmarshal(data, &p); err != nil {
		return StrategyParams{}, fmt.Errorf("decode strategy params: %w", err)
	}
	return p, nil
}

// ParamsFromValues builds a typed parameter record from one grid
// combination. Value keys must match the record's JSON field names; an
// unknown key is a catalogue defect, not a data problem.
func ParamsFromValues(strategy string, window int, values map[string]float64) (StrategyParams, error) {
	raw := make(map[string]interface{}, len(values)+2)
	raw["strategy"] = strategy
	raw["window"] = window
	for k, v := range values {
		raw[k] = v
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return StrategyParams{}, fmt.Errorf("encode param values: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var p StrategyParams
	if err := dec.Decode(&p); err != nil {
		return StrategyParams{}, fmt.Errorf("param values for %s: %w", strategy, err)
	}
	return p, nil
}
