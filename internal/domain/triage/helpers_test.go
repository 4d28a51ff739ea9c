package triage

import (
	"github.com/google/uuid"
)

// mkPatient builds a stored-looking patient directly, bypassing the service.
func mkPatient(name string, arrival, years, months int, level Level, flags ...Flag) Patient {
	return Patient{
		id:         uuid.New(),
		name:       name,
		arrivalSeq: arrival,
		ageYears:   years,
		ageMonths:  months,
		level:      level,
		flags:      NewFlags(flags...),
	}
}

func names(ps []Patient) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}
