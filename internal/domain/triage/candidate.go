package triage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Candidate holds the raw attributes of a patient before validation. Age in
// months is optional; age in years and the triage level must be present when
// a candidate is decoded from JSON or YAML.
type Candidate struct {
	Name        string   `json:"name" yaml:"name"`
	AgeYears    int      `json:"age_years" yaml:"age_years"`
	AgeMonths   int      `json:"age_months" yaml:"age_months"`
	TriageLevel int      `json:"triage_level" yaml:"triage"`
	Flags       []string `json:"flags,omitempty" yaml:"flags,omitempty"`

	// set by the decoders only, checked on admission
	faults inputFault
}

type inputFault uint8

const (
	faultYearsMissing inputFault = 1 << iota
	faultYearsNotWhole
	faultMonthsNotWhole
	faultTriageMissing
	faultTriageNotWhole
)

func (f inputFault) has(x inputFault) bool { return f&x != 0 }

// wholeNumber parses s as an integer, accepting integral floats such as "3.0".
func wholeNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// setNumber stores a decoded numeric field. present reports whether the field
// was given at all.
func setNumber(dst *int, raw string, present bool, missing, notWhole inputFault) inputFault {
	if !present {
		return missing
	}
	n, ok := wholeNumber(raw)
	if !ok {
		return notWhole
	}
	*dst = n
	return 0
}

type candidateJSON struct {
	Name        string          `json:"name"`
	AgeYears    json.RawMessage `json:"age_years"`
	AgeMonths   json.RawMessage `json:"age_months"`
	TriageLevel json.RawMessage `json:"triage_level"`
	Flags       []string        `json:"flags"`
}

// jsonNumber returns the literal of a raw JSON number. Absent and null values
// are not present; any other non-number yields an unparseable literal.
func jsonNumber(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return string(raw), true
	}
	return n.String(), true
}

// UnmarshalJSON records absent or non-integer ages and triage levels so that
// admission reports them as validation errors instead of using zero values.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var w candidateJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Candidate{Name: w.Name, Flags: w.Flags}

	years, ok := jsonNumber(w.AgeYears)
	c.faults |= setNumber(&c.AgeYears, years, ok, faultYearsMissing, faultYearsNotWhole)
	if months, ok := jsonNumber(w.AgeMonths); ok {
		c.faults |= setNumber(&c.AgeMonths, months, true, 0, faultMonthsNotWhole)
	}
	level, ok := jsonNumber(w.TriageLevel)
	c.faults |= setNumber(&c.TriageLevel, level, ok, faultTriageMissing, faultTriageNotWhole)
	return nil
}

type candidateYAML struct {
	Name      string   `yaml:"name"`
	AgeYears  *string  `yaml:"age_years"`
	AgeMonths *string  `yaml:"age_months"`
	Triage    *string  `yaml:"triage"`
	Flags     []string `yaml:"flags"`
}

var candidateYAMLFields = map[string]bool{
	"name": true, "age_years": true, "age_months": true, "triage": true, "flags": true,
}

// UnmarshalYAML mirrors UnmarshalJSON. Unknown keys are rejected here because
// a custom unmarshaler does not inherit the decoder's KnownFields setting.
func (c *Candidate) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: patient must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i]
		if !candidateYAMLFields[key.Value] {
			return fmt.Errorf("line %d: field %s not found in patient", key.Line, key.Value)
		}
	}

	var w candidateYAML
	if err := value.Decode(&w); err != nil {
		return err
	}
	*c = Candidate{Name: w.Name, Flags: w.Flags}

	c.faults |= setNumber(&c.AgeYears, deref(w.AgeYears), w.AgeYears != nil, faultYearsMissing, faultYearsNotWhole)
	if w.AgeMonths != nil {
		c.faults |= setNumber(&c.AgeMonths, *w.AgeMonths, true, 0, faultMonthsNotWhole)
	}
	c.faults |= setNumber(&c.TriageLevel, deref(w.Triage), w.Triage != nil, faultTriageMissing, faultTriageNotWhole)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
