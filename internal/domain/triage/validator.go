package triage

// Normalize drops legal-priority flags that can not coexist with the given age
// or with each other. Rules run in a fixed order:
//
//  1. elderly patients can not be pregnant or lactating
//  2. an infant in arms can not be pregnant or lactating
//  3. infant in arms requires a total age of at most 36 months
//
// Conflicting flags are dropped silently, never rejected. Normalize is
// idempotent.
func Normalize(ageYears, ageMonths int, requested Flags) Flags {
	out := requested
	if ageYears >= ElderlyAgeYears {
		out = out.Without(FlagPregnant).Without(FlagLactating)
	}
	if out.Has(FlagInfantInArms) {
		out = out.Without(FlagPregnant).Without(FlagLactating)
	}
	if totalMonths(ageYears, ageMonths) > InfantMaxMonths {
		out = out.Without(FlagInfantInArms)
	}
	return out
}

// DisabledFlags reports which flags an intake form should disable for the
// age typed so far and the flags currently selected.
func DisabledFlags(ageYears, ageMonths int, current Flags) Flags {
	var disabled Flags
	if ageYears >= ElderlyAgeYears || current.Has(FlagInfantInArms) {
		disabled = disabled.With(FlagPregnant).With(FlagLactating)
	}
	if totalMonths(ageYears, ageMonths) > InfantMaxMonths {
		disabled = disabled.With(FlagInfantInArms)
	}
	return disabled
}

func totalMonths(years, months int) int {
	return years*12 + months
}
