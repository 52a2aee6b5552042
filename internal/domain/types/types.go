// Package types contains common enumerations used across the application.
package types

import (
	"fmt"
	"strings"
)

// Role is the lane assignment of a player in a match.
type Role string

// Riot team positions.
const (
	RoleUnknown Role = "UNKNOWN"
	RoleTop     Role = "TOP"
	RoleJungle  Role = "JUNGLE"
	RoleMiddle  Role = "MIDDLE"
	RoleBottom  Role = "BOTTOM"
	RoleUtility Role = "UTILITY"
)

// Roles lists the playable roles in draft order.
var Roles = []Role{RoleTop, RoleJungle, RoleMiddle, RoleBottom, RoleUtility} //nolint:gochecknoglobals // read-only enumeration

var roleAliases = map[string]Role{ //nolint:gochecknoglobals // read-only lookup table
	"top":     RoleTop,
	"jungle":  RoleJungle,
	"jungler": RoleJungle,
	"jg":      RoleJungle,
	"jng":     RoleJungle,
	"middle":  RoleMiddle,
	"mid":     RoleMiddle,
	"bottom":  RoleBottom,
	"bot":     RoleBottom,
	"adc":     RoleBottom,
	"carry":   RoleBottom,
	"utility": RoleUtility,
	"support": RoleUtility,
	"sup":     RoleUtility,
	"supp":    RoleUtility,
}

// ParseRole maps riot position names and common aliases to a Role.
func ParseRole(s string) (Role, error) {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return RoleUnknown, fmt.Errorf("%w: role %q", ErrUnknownValue, s)
}

// Laner reports whether the role farms a lane wave.
func (r Role) Laner() bool {
	return r == RoleTop || r == RoleMiddle || r == RoleBottom
}

// EloBand is a coarse skill bucket used to tailor advice.
type EloBand string

// Elo bands.
const (
	BandUnknown EloBand = ""
	BandLow     EloBand = "low"
	BandMid     EloBand = "mid"
	BandHigh    EloBand = "high"
)

var tierBands = map[string]EloBand{ //nolint:gochecknoglobals // read-only lookup table
	"iron":        BandLow,
	"bronze":      BandLow,
	"silver":      BandLow,
	"gold":        BandMid,
	"platinum":    BandMid,
	"emerald":     BandMid,
	"diamond":     BandHigh,
	"master":      BandHigh,
	"grandmaster": BandHigh,
	"challenger":  BandHigh,
}

// ParseEloBand accepts a band name (low, mid, high) or a ranked tier name.
func ParseEloBand(s string) (EloBand, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch EloBand(v) {
	case BandLow, BandMid, BandHigh:
		return EloBand(v), nil
	}
	if b, ok := tierBands[v]; ok {
		return b, nil
	}
	return BandUnknown, fmt.Errorf("%w: elo band %q", ErrUnknownValue, s)
}

// Category classifies a finding.
type Category string

// Finding categories. The default ordering between categories is lexicographic.
const (
	CategoryDeath       Category = "death-analysis"
	CategoryObjective   Category = "objective-timing"
	CategoryPositioning Category = "positioning"
	CategoryTrading     Category = "trading"
	CategoryVision      Category = "vision"
	CategoryWave        Category = "wave-management"
)

// Categories lists every category in default order.
var Categories = []Category{ //nolint:gochecknoglobals // read-only enumeration
	CategoryDeath, CategoryObjective, CategoryPositioning,
	CategoryTrading, CategoryVision, CategoryWave,
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: category %q", ErrUnknownValue, s)
}

// Severity is an ordered scale; higher is worse.
type Severity int

// Severity levels.
const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity maps a name to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	}
	return 0, fmt.Errorf("%w: severity %q", ErrUnknownValue, s)
}

// Polarity separates mistakes from strengths.
type Polarity string

// Finding polarities.
const (
	Mistake  Polarity = "mistake"
	Strength Polarity = "strength"
)

// SeverityWeights maps severities to the weight they contribute to scores.
type SeverityWeights map[Severity]float64

// DefaultSeverityWeights returns low 1, medium 2, high 3, critical 5.
func DefaultSeverityWeights() SeverityWeights {
	return SeverityWeights{SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3, SeverityCritical: 5}
}

// Weight returns the weight for s, falling back to the default table.
func (w SeverityWeights) Weight(s Severity) float64 {
	if v, ok := w[s]; ok {
		return v
	}
	return DefaultSeverityWeights()[s]
}

// Max returns the largest weight.
func (w SeverityWeights) Max() float64 {
	m := 0.0
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		if v := w.Weight(s); v > m {
			m = v
		}
	}
	return m
}

// ParseSeverityWeights reads a name to weight table such as the one found in
// configuration files.
func ParseSeverityWeights(in map[string]float64) (SeverityWeights, error) {
	out := DefaultSeverityWeights()
	for name, v := range in {
		s, err := ParseSeverity(name)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: negative weight for %s", ErrUnknownValue, name)
		}
		out[s] = v
	}
	return out, nil
}
