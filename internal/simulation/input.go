package simulation

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	MinAge = 16
	MaxAge = 99

	DefaultAge           = 25
	DefaultRiskTolerance = RiskMedium
)

// Validate enforces the form constraints: a non-empty decision, an age in range and
// a known risk tolerance. Status and goals may be empty.
func (in UserInput) Validate() error {
	if strings.TrimSpace(in.Decision) == "" {
		return fmt.Errorf("%w: decision is required", ErrInvalidInput)
	}
	if in.CurrentAge < MinAge || in.CurrentAge > MaxAge {
		return fmt.Errorf("%w: age must be between %d and %d", ErrInvalidInput, MinAge, MaxAge)
	}
	if !in.RiskTolerance.Valid() {
		return fmt.Errorf("%w: unknown risk tolerance %q", ErrInvalidInput, in.RiskTolerance)
	}
	return nil
}

// ParseForm builds a validated UserInput from submitted form values.
// Missing risk tolerance defaults to Medium.
func ParseForm(v url.Values) (UserInput, error) {
	ageRaw := strings.TrimSpace(v.Get("currentAge"))
	age, err := strconv.Atoi(ageRaw)
	if err != nil {
		return UserInput{}, fmt.Errorf("%w: age %q is not a number", ErrInvalidInput, ageRaw)
	}
	risk := RiskTolerance(strings.TrimSpace(v.Get("riskTolerance")))
	if risk == "" {
		risk = DefaultRiskTolerance
	}
	in := UserInput{
		Decision:      v.Get("decision"),
		CurrentAge:    age,
		CurrentStatus: v.Get("currentStatus"),
		RiskTolerance: risk,
		Goals:         v.Get("goals"),
	}
	if err := in.Validate(); err != nil {
		return UserInput{}, err
	}
	return in, nil
}
