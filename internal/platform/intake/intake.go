// Package intake collects patients interactively from a terminal.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/ordenaclinic/ordenaclinic/internal/domain/triage"
)

// Menu actions.
const (
	ActionAdd     = "add"
	ActionList    = "list"
	ActionSort    = "sort"
	ActionExample = "example"
	ActionClear   = "clear"
	ActionQuit    = "quit"
)

// Options configures where forms read and write.
type Options struct {
	In         io.Reader
	Out        io.Writer
	Accessible bool
}

func (o Options) apply(f *huh.Form) *huh.Form {
	if o.In != nil {
		f = f.WithInput(o.In)
	}
	if o.Out != nil {
		f = f.WithOutput(o.Out)
	}
	return f.WithAccessible(o.Accessible).WithShowHelp(!o.Accessible)
}

// Fields holds the raw form values of one patient.
type Fields struct {
	Name   string
	Years  string
	Months string
	Level  int
	Flags  []string
}

func ValidateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func ValidateYears(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("enter a whole number of years, 0 or more")
	}
	return nil
}

// ValidateMonths accepts an empty value as zero.
func ValidateMonths(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 11 {
		return fmt.Errorf("months must be between 0 and 11")
	}
	return nil
}

func (f *Fields) ages() (int, int) {
	years, _ := strconv.Atoi(strings.TrimSpace(f.Years))
	months, _ := strconv.Atoi(strings.TrimSpace(f.Months))
	return years, months
}

// ValidateFlags rejects selections the patient's age or the other selected
// flags rule out, naming the first offending flag.
func (f *Fields) ValidateFlags(names []string) error {
	current, unknown := triage.ParseFlags(names)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown flag %q", unknown[0])
	}
	years, months := f.ages()
	disabled := triage.DisabledFlags(years, months, current)
	for _, fl := range triage.AllFlags {
		if current.Has(fl) && disabled.Has(fl) {
			return fmt.Errorf("%s does not apply to this patient", fl)
		}
	}
	return nil
}

// Candidate converts the form values. Validation of the result is left to
// the queue service.
func (f *Fields) Candidate() (triage.Candidate, error) {
	if err := ValidateYears(f.Years); err != nil {
		return triage.Candidate{}, err
	}
	if err := ValidateMonths(f.Months); err != nil {
		return triage.Candidate{}, err
	}
	years, months := f.ages()
	return triage.Candidate{
		Name:        strings.TrimSpace(f.Name),
		AgeYears:    years,
		AgeMonths:   months,
		TriageLevel: f.Level,
		Flags:       append([]string(nil), f.Flags...),
	}, nil
}

// NewPatientForm builds the patient intake form bound to f.
func NewPatientForm(f *Fields) *huh.Form {
	levels := make([]huh.Option[int], 0, len(triage.Levels()))
	for _, info := range triage.Levels() {
		levels = append(levels, huh.NewOption(fmt.Sprintf("%d - %s", info.Level, info.Label), info.Level))
	}
	flags := make([]huh.Option[string], 0, len(triage.AllFlags))
	for _, fl := range triage.AllFlags {
		flags = append(flags, huh.NewOption(fl.String(), fl.String()))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Patient name").
				Value(&f.Name).
				Validate(ValidateName),

			huh.NewInput().
				Key("age_years").
				Title("Age (years)").
				Value(&f.Years).
				Validate(ValidateYears),

			huh.NewInput().
				Key("age_months").
				Title("Age (extra months)").
				Description("0-11, blank for none").
				Value(&f.Months).
				Validate(ValidateMonths),

			huh.NewSelect[int]().
				Key("triage").
				Title("Triage level").
				Options(levels...).
				Value(&f.Level),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Key("flags").
				Title("Legal priority").
				Description("Elderly priority (60+) is applied automatically").
				Options(flags...).
				Value(&f.Flags).
				Validate(f.ValidateFlags),
		),
	)
}

// PromptPatient runs the intake form and returns the collected candidate.
func PromptPatient(ctx context.Context, opts Options) (triage.Candidate, error) {
	var f Fields
	if err := opts.apply(NewPatientForm(&f)).RunWithContext(ctx); err != nil {
		return triage.Candidate{}, err
	}
	return f.Candidate()
}

// NewMenuForm builds the main menu bound to action.
func NewMenuForm(action *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("action").
				Title("What next?").
				Options(
					huh.NewOption("Add patient", ActionAdd),
					huh.NewOption("Show queue", ActionList),
					huh.NewOption("Sort queue", ActionSort),
					huh.NewOption("Load example queue", ActionExample),
					huh.NewOption("Clear queue", ActionClear),
					huh.NewOption("Quit", ActionQuit),
				).
				Value(action),
		),
	)
}

// PromptAction runs the main menu. An aborted menu reads as ActionQuit.
func PromptAction(ctx context.Context, opts Options) (string, error) {
	action := ActionAdd
	err := opts.apply(NewMenuForm(&action)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return ActionQuit, nil
	}
	if err != nil {
		return "", err
	}
	return action, nil
}
