// Package sale defines the configuration rules and identity parameters for a
// Talentify fundraising campaign deployment.
//
// This package provides:
//   - The Stage enumeration (PrivatePreICO, PreICO, ICO)
//   - Cap configuration: per-stage credit ceilings, the private-stage soft
//     cap, and the campaign-wide hard cap
//   - Per-stage conversion rates (credits per value unit)
//   - Settlement window dates and the refund batch budget
//   - Reserve amounts delivered once at construction
//
// The Rules type is the central configuration structure for a campaign
// deployment, mirrored after a network rules preset: fixed at construction
// and read-only thereafter.
package sale

import (
	"errors"
	"fmt"
)

// Stage identifies one of the three sequential fundraising phases.
// Exactly one stage is active at any time and progression is monotonic:
// PrivatePreICO, then PreICO, then ICO. There is no regression.
type Stage uint8

const (
	// PrivatePreICO is the initial stage. Contributions made during it are
	// recorded individually so they can be refunded if the stage fails its
	// soft cap.
	PrivatePreICO Stage = iota

	// PreICO is entered only through settlement of the private stage.
	PreICO

	// ICO is the final stage. Entry is always an explicit owner action,
	// never a timer.
	ICO
)

// ErrUnknownStage is returned when parsing an unrecognized stage name.
var ErrUnknownStage = errors.New("unknown sale stage")

// Valid reports whether s is one of the three defined stages.
func (s Stage) Valid() bool {
	return s <= ICO
}

// String returns the canonical stage name.
func (s Stage) String() string {
	switch s {
	case PrivatePreICO:
		return "private-pre-ico"
	case PreICO:
		return "pre-ico"
	case ICO:
		return "ico"
	default:
		return fmt.Sprintf("stage-%d", uint8(s))
	}
}

// ParseStage maps a canonical stage name back to its Stage value.
func ParseStage(name string) (Stage, error) {
	switch name {
	case "private-pre-ico":
		return PrivatePreICO, nil
	case "pre-ico":
		return PreICO, nil
	case "ico":
		return ICO, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
}

// MarshalText implements encoding.TextMarshaler, so stages render as their
// names in JSON and YAML.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
