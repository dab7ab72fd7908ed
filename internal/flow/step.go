package flow

import (
	"strings"

	"onboarding-service/internal/util"
)

// Fields is the accumulated field map of a flow session.
type Fields map[string]string

// FieldErrors maps field name to a human-readable validation message.
type FieldErrors map[string]string

// StepKind tags the shape of a step.
type StepKind int

const (
	// StepInput collects free-form field values.
	StepInput StepKind = iota
	// StepChoice selects one of a fixed set of options.
	StepChoice
	// StepConfirmation reviews accumulated fields before the terminal action.
	StepConfirmation
)

// Validator checks the accumulated fields for one step. An empty result
// means the step may advance.
type Validator func(fields Fields) FieldErrors

// StepDefinition declares one step of a flow. Flows are declarative lists of
// these, consumed by a single generic Controller.
type StepDefinition struct {
	Kind     StepKind
	Name     string
	Fields   []string
	Optional bool
	Validate Validator
}

// populated reports whether every field the step owns has a value.
func (s StepDefinition) populated(fields Fields) bool {
	if len(s.Fields) == 0 {
		return false
	}
	for _, name := range s.Fields {
		if strings.TrimSpace(fields[name]) == "" {
			return false
		}
	}
	return true
}

// Validator combinators. Each flow composes these per step.

// All runs validators in order and merges their errors.
func All(validators ...Validator) Validator {
	return func(fields Fields) FieldErrors {
		errs := FieldErrors{}
		for _, v := range validators {
			for name, msg := range v(fields) {
				if _, taken := errs[name]; !taken {
					errs[name] = msg
				}
			}
		}
		if len(errs) == 0 {
			return nil
		}
		return errs
	}
}

// NonEmpty requires a field to have content after trimming.
func NonEmpty(field, message string) Validator {
	return func(fields Fields) FieldErrors {
		if strings.TrimSpace(fields[field]) == "" {
			return FieldErrors{field: message}
		}
		return nil
	}
}

// Email requires a field to be a well-formed address.
func Email(field string) Validator {
	return func(fields Fields) FieldErrors {
		if !util.IsValidEmail(fields[field]) {
			return FieldErrors{field: "enter a valid email address"}
		}
		return nil
	}
}

// StoreURL requires a field to look like a store domain and normalizes it in
// place so all downstream persistence and comparison sees the canonical form.
func StoreURL(field string) Validator {
	return func(fields Fields) FieldErrors {
		if !util.IsValidStoreURL(fields[field]) {
			return FieldErrors{field: "enter a valid store URL"}
		}
		fields[field] = util.NormalizeStoreURL(fields[field])
		return nil
	}
}

// Optional always passes; absence is valid.
func Optional() Validator {
	return func(Fields) FieldErrors { return nil }
}
