package models

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one of the eight named stages of the synodic cycle.
// The numeric value is the ordinal used for correlation.
type Phase int

const (
	NewMoon Phase = iota
	WaxingCrescent
	FirstQuarter
	WaxingGibbous
	FullMoon
	WaningGibbous
	LastQuarter
	WaningCrescent
)

// PhaseCount is the number of enumerated phases.
const PhaseCount = 8

var phaseNames = [PhaseCount]string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

// AllPhases returns the phases in ordinal order.
func AllPhases() []Phase {
	out := make([]Phase, PhaseCount)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

// Valid reports whether p is one of the enumerated phases.
func (p Phase) Valid() bool { return p >= NewMoon && p <= WaningCrescent }

// Ordinal returns the ordinal encoding (New Moon=0 ... Waning Crescent=7).
func (p Phase) Ordinal() int { return int(p) }

func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Next returns the phase that follows p in the cycle.
func (p Phase) Next() Phase { return Phase((int(p) + 1) % PhaseCount) }

// Prev returns the phase that precedes p in the cycle.
func (p Phase) Prev() Phase { return Phase((int(p) + PhaseCount - 1) % PhaseCount) }

// Principal reports whether p is one of the four event phases
// (New Moon, First Quarter, Full Moon, Last Quarter).
func (p Phase) Principal() bool { return p.Valid() && int(p)%2 == 0 }

// ParsePhase maps a phase name to its Phase, ignoring case and surrounding space.
func ParsePhase(s string) (Phase, error) {
	norm := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	for i, name := range phaseNames {
		if strings.ToLower(name) == norm {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown lunar phase %q", s)
}

func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Phase sources recorded on calendar rows.
const (
	SourceUSNO  = "usno"
	SourceLocal = "local"
	// SourceMixed marks remote years with failed years computed locally.
	SourceMixed = "mixed"
)

// LunarPhaseRecord labels one calendar date with its phase.
type LunarPhaseRecord struct {
	Date   time.Time `json:"date"`
	Phase  Phase     `json:"phase"`
	Source string    `json:"source"`
}

// PhaseEvent is a remote phase-event: the date a principal phase begins.
type PhaseEvent struct {
	Date  time.Time
	Phase Phase
}
