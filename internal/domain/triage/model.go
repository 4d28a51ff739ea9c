package triage

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Level is the clinical urgency class of a patient, 0 being the most critical.
type Level int

const (
	LevelRed Level = iota
	LevelYellow
	LevelGreen
	LevelBlue
	LevelWhite
)

// ElderlyAgeYears is the age from which a patient holds legal priority.
const ElderlyAgeYears = 60

// InfantMaxMonths is the oldest total age, in months, of an infant in arms.
const InfantMaxMonths = 36

var levelLabels = [...]string{
	"Vermelho (crítico)",
	"Amarelo (urgente)",
	"Verde (pouco urgente)",
	"Azul (não urgente)",
	"Branco (administrativo)",
}

var levelColors = [...]string{
	"#d32f2f",
	"#f9a825",
	"#388e3c",
	"#1976d2",
	"#757575",
}

// Valid reports whether l is one of the five triage levels.
func (l Level) Valid() bool {
	return l >= LevelRed && l <= LevelWhite
}

func (l Level) Label() string {
	if !l.Valid() {
		return ""
	}
	return levelLabels[l]
}

// Color is the hex display color of the level.
func (l Level) Color() string {
	if !l.Valid() {
		return ""
	}
	return levelColors[l]
}

// LevelInfo describes a triage level for presentation layers.
type LevelInfo struct {
	Level int    `json:"level"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Levels lists every triage level from most to least critical.
func Levels() []LevelInfo {
	out := make([]LevelInfo, 0, len(levelLabels))
	for l := LevelRed; l <= LevelWhite; l++ {
		out = append(out, LevelInfo{Level: int(l), Label: l.Label(), Color: l.Color()})
	}
	return out
}

// Flag is one legal-priority attribute.
type Flag uint8

const (
	FlagDisability Flag = 1 << iota
	FlagPregnant
	FlagLactating
	FlagInfantInArms
	FlagObesity
)

// AllFlags is the display order of the legal-priority flags.
var AllFlags = []Flag{FlagDisability, FlagPregnant, FlagLactating, FlagInfantInArms, FlagObesity}

var flagNames = map[Flag]string{
	FlagDisability:   "disability",
	FlagPregnant:     "pregnant",
	FlagLactating:    "lactating",
	FlagInfantInArms: "infant_in_arms",
	FlagObesity:      "obesity",
}

func (f Flag) String() string {
	return flagNames[f]
}

// ParseFlag resolves a wire name such as "infant_in_arms" to its Flag.
func ParseFlag(name string) (Flag, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range flagNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

// Flags is a set of legal-priority flags.
type Flags uint8

// NewFlags builds a set from individual flags.
func NewFlags(fs ...Flag) Flags {
	var s Flags
	for _, f := range fs {
		s = s.With(f)
	}
	return s
}

// ParseFlags builds a set from wire names. Unknown names are returned
// separately so callers can decide whether to reject them.
func ParseFlags(names []string) (Flags, []string) {
	var s Flags
	var unknown []string
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		f, ok := ParseFlag(n)
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		s = s.With(f)
	}
	return s, unknown
}

func (s Flags) Has(f Flag) bool {
	return s&Flags(f) != 0
}

func (s Flags) With(f Flag) Flags {
	return s | Flags(f)
}

func (s Flags) Without(f Flag) Flags {
	return s &^ Flags(f)
}

func (s Flags) Empty() bool {
	return s == 0
}

// Names returns the wire names of the set in display order.
func (s Flags) Names() []string {
	names := make([]string, 0, len(AllFlags))
	for _, f := range AllFlags {
		if s.Has(f) {
			names = append(names, f.String())
		}
	}
	return names
}

func (s Flags) String() string {
	return strings.Join(s.Names(), ",")
}

// Patient is an admitted queue entry. Values are never mutated once stored;
// WithFlags returns a copy.
type Patient struct {
	id         uuid.UUID
	name       string
	arrivalSeq int
	ageYears   int
	ageMonths  int
	level      Level
	flags      Flags
}

func (p Patient) ID() uuid.UUID      { return p.id }
func (p Patient) Name() string       { return p.name }
func (p Patient) ArrivalSeq() int    { return p.arrivalSeq }
func (p Patient) AgeYears() int      { return p.ageYears }
func (p Patient) AgeMonths() int     { return p.ageMonths }
func (p Patient) TriageLevel() Level { return p.level }
func (p Patient) Flags() Flags       { return p.flags }

// TotalAgeMonths is ageYears*12 + ageMonths.
func (p Patient) TotalAgeMonths() int {
	return p.ageYears*12 + p.ageMonths
}

func (p Patient) IsElderly() bool {
	return p.ageYears >= ElderlyAgeYears
}

// HasLegalPriority reports whether any statutory category applies.
func (p Patient) HasLegalPriority() bool {
	return !p.flags.Empty() || p.IsElderly()
}

// WithFlags returns a copy of p with the flags replaced and normalized. Identity
// and arrival order are preserved.
func (p Patient) WithFlags(requested Flags) Patient {
	cp := p
	cp.flags = Normalize(p.ageYears, p.ageMonths, requested)
	return cp
}

type patientJSON struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ArrivalSeq    int       `json:"arrival_seq"`
	AgeYears      int       `json:"age_years"`
	AgeMonths     int       `json:"age_months"`
	TriageLevel   int       `json:"triage_level"`
	TriageLabel   string    `json:"triage_label"`
	Flags         []string  `json:"flags"`
	Elderly       bool      `json:"elderly"`
	LegalPriority bool      `json:"legal_priority"`
}

func (p Patient) MarshalJSON() ([]byte, error) {
	return json.Marshal(patientJSON{
		ID:            p.id,
		Name:          p.name,
		ArrivalSeq:    p.arrivalSeq,
		AgeYears:      p.ageYears,
		AgeMonths:     p.ageMonths,
		TriageLevel:   int(p.level),
		TriageLabel:   p.level.Label(),
		Flags:         p.flags.Names(),
		Elderly:       p.IsElderly(),
		LegalPriority: p.HasLegalPriority(),
	})
}
