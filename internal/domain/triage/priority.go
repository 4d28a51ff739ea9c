package triage

// Key is the composite ordering key of a patient:
// (triage level, legal-priority rank, arrival sequence, -total age in months).
// Keys order lexicographically, ascending.
type Key struct {
	Triage       int
	LegalRank    int
	Arrival      int
	NegAgeMonths int
}

// KeyFunc derives an ordering key from a patient.
type KeyFunc func(Patient) Key

// PriorityKey is the default KeyFunc. Triage always dominates; legal priority
// only breaks ties inside a level, then arrival, then the older patient first.
func PriorityKey(p Patient) Key {
	return Key{
		Triage:       int(p.level),
		LegalRank:    LegalPriorityRank(p),
		Arrival:      p.arrivalSeq,
		NegAgeMonths: -p.TotalAgeMonths(),
	}
}

// LegalPriorityRank is 0 for patients holding legal priority and 1 otherwise.
func LegalPriorityRank(p Patient) int {
	if p.HasLegalPriority() {
		return 0
	}
	return 1
}

// Compare returns -1, 0 or +1 as k sorts before, equal to or after o.
func (k Key) Compare(o Key) int {
	switch {
	case k.Triage != o.Triage:
		return sign(k.Triage - o.Triage)
	case k.LegalRank != o.LegalRank:
		return sign(k.LegalRank - o.LegalRank)
	case k.Arrival != o.Arrival:
		return sign(k.Arrival - o.Arrival)
	default:
		return sign(k.NegAgeMonths - o.NegAgeMonths)
	}
}

func (k Key) LessOrEqual(o Key) bool {
	return k.Compare(o) <= 0
}

func sign(d int) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	}
	return 0
}
