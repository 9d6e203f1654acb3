package domain

import (
	"fmt"
	"strings"
)

// Identity is an opaque, address-like participant identifier.
type Identity string

// NoIdentity is the author of a slot that has not been written yet.
const NoIdentity Identity = ""

func (id Identity) String() string {
	return string(id)
}

// Period is the phase gating which operations are legal.
type Period int

const (
	PeriodInitializing Period = iota
	PeriodWriting
	PeriodVoting
)

func (p Period) String() string {
	switch p {
	case PeriodInitializing:
		return "INITIALIZING"
	case PeriodWriting:
		return "WRITING"
	case PeriodVoting:
		return "VOTING"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	return p >= PeriodInitializing && p <= PeriodVoting
}

// ParsePeriod converts a period name (case-insensitive) to a Period.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INITIALIZING":
		return PeriodInitializing, nil
	case "WRITING":
		return PeriodWriting, nil
	case "VOTING":
		return PeriodVoting, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

func (p Period) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPeriod, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
