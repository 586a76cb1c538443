package totals

import (
	"fmt"
	"strings"
)

// Rounding selects the precision applied to document level amounts.
// Line amounts are always rounded to paise.
type Rounding int

const (
	// RoundPaise rounds to two decimal places.
	RoundPaise Rounding = iota
	// RoundWholeRupee rounds to whole rupees. Service and invoice documents
	// stored before paise rounding was introduced use this mode.
	RoundWholeRupee
)

// Places returns the number of decimal places kept by the policy.
func (r Rounding) Places() int32 {
	if r == RoundWholeRupee {
		return 0
	}
	return 2
}

func (r Rounding) String() string {
	if r == RoundWholeRupee {
		return "rupee"
	}
	return "paise"
}

// ParseRounding maps a configuration value to a Rounding policy.
func ParseRounding(value string) (Rounding, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "paise", "2":
		return RoundPaise, nil
	case "rupee", "whole", "0":
		return RoundWholeRupee, nil
	default:
		return RoundPaise, fmt.Errorf("totals: unknown rounding %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Rounding) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rounding) UnmarshalText(text []byte) error {
	parsed, err := ParseRounding(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
