package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordenaclinic/ordenaclinic/internal/domain/triage"
)

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Ana"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("   "))
}

func TestValidateYears(t *testing.T) {
	assert.NoError(t, ValidateYears("0"))
	assert.NoError(t, ValidateYears(" 70 "))
	assert.Error(t, ValidateYears(""))
	assert.Error(t, ValidateYears("-1"))
	assert.Error(t, ValidateYears("seventy"))
}

func TestValidateMonths(t *testing.T) {
	assert.NoError(t, ValidateMonths(""))
	assert.NoError(t, ValidateMonths("0"))
	assert.NoError(t, ValidateMonths("11"))
	assert.Error(t, ValidateMonths("12"))
	assert.Error(t, ValidateMonths("-1"))
	assert.Error(t, ValidateMonths("x"))
}

func TestFields_ValidateFlags(t *testing.T) {
	tests := []struct {
		name   string
		years  string
		months string
		flags  []string
		ok     bool
	}{
		{"none", "30", "", nil, true},
		{"pregnant adult", "30", "", []string{"pregnant"}, true},
		{"pregnant elderly", "61", "", []string{"pregnant"}, false},
		{"lactating elderly", "60", "0", []string{"lactating"}, false},
		{"infant at 36 months", "3", "0", []string{"infant_in_arms"}, true},
		{"infant at 37 months", "3", "1", []string{"infant_in_arms"}, false},
		{"infant with lactating", "1", "0", []string{"infant_in_arms", "lactating"}, false},
		{"disability and obesity", "45", "", []string{"disability", "obesity"}, true},
		{"unknown flag", "30", "", []string{"vip"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Fields{Years: tt.years, Months: tt.months}
			err := f.ValidateFlags(tt.flags)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFields_Candidate(t *testing.T) {
	f := &Fields{Name: "  Heitor ", Years: "2", Months: "3", Level: 2, Flags: []string{"infant_in_arms"}}

	c, err := f.Candidate()
	require.NoError(t, err)
	assert.Equal(t, triage.Candidate{
		Name:        "Heitor",
		AgeYears:    2,
		AgeMonths:   3,
		TriageLevel: 2,
		Flags:       []string{"infant_in_arms"},
	}, c)

	f.Flags[0] = "obesity"
	assert.Equal(t, "infant_in_arms", c.Flags[0], "candidate must not alias the form state")
}

func TestFields_CandidateRejectsBadAge(t *testing.T) {
	_, err := (&Fields{Name: "Ana", Years: "x"}).Candidate()
	assert.Error(t, err)

	_, err = (&Fields{Name: "Ana", Years: "1", Months: "14"}).Candidate()
	assert.Error(t, err)
}

func TestNewForms(t *testing.T) {
	var f Fields
	assert.NotNil(t, NewPatientForm(&f))

	action := ActionAdd
	assert.NotNil(t, NewMenuForm(&action))
}
