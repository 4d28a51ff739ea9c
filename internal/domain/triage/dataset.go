package triage

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed example.yaml
var exampleYAML []byte

// Dataset is a list of candidate patients in arrival order, as stored in
// YAML queue files.
type Dataset struct {
	Patients []Candidate `yaml:"patients"`
}

// DecodeDataset parses a YAML dataset. Unknown fields are rejected so typos
// such as "triage_lvl" do not silently default to level 0.
func DecodeDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		if errors.Is(err, io.EOF) {
			return &Dataset{}, nil
		}
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return &ds, nil
}

// LoadDatasetFile reads a YAML dataset from disk.
func LoadDatasetFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return DecodeDataset(bytes.NewReader(data))
}

// ExampleDataset returns the built-in demonstration queue.
func ExampleDataset() *Dataset {
	ds, err := DecodeDataset(bytes.NewReader(exampleYAML))
	if err != nil {
		panic(fmt.Sprintf("triage: embedded example dataset: %v", err))
	}
	return ds
}

// EncodeDataset writes patients back out in the dataset format.
func EncodeDataset(w io.Writer, patients []Patient) error {
	ds := Dataset{Patients: make([]Candidate, 0, len(patients))}
	for _, p := range patients {
		ds.Patients = append(ds.Patients, Candidate{
			Name:        p.name,
			AgeYears:    p.ageYears,
			AgeMonths:   p.ageMonths,
			TriageLevel: int(p.level),
			Flags:       p.flags.Names(),
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return enc.Close()
}
