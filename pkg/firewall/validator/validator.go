// Package validator implements the policy validator: it parses raw
// policy JSON and either returns a fully-populated model.Policy or a
// collected list of every violation found. The Validate method never
// stops at the first error, and it runs structural checks before
// semantic checks so that, e.g., a malformed rule doesn't also produce
// a cascade of spurious regex-mismatch errors.
package validator

import (
	"bytes"
	"encoding/json"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

// Validator runs every pass of policy validation.
type Validator struct{}

// New creates a policy validator. It holds no state: validation is a pure
// function of the input bytes.
func New() *Validator {
	return &Validator{}
}

// Validate parses raw and validates it. On success it returns the
// fully-populated Policy and a nil error list. On failure it returns a
// zero Policy and a non-empty *ErrorList.
func (v *Validator) Validate(raw []byte) (model.Policy, *ErrorList) {
	errs := &ErrorList{}

	if len(bytes.TrimSpace(raw)) == 0 {
		errs.add("", "input must not be empty")
		return model.Policy{}, errs
	}

	if len(raw) > model.MaxPolicyBytes {
		errs.add("", "policy size %d bytes exceeds maximum %d bytes", len(raw), model.MaxPolicyBytes)
		return model.Policy{}, errs
	}

	if !looksLikeObject(raw) {
		errs.add("", "root must be a JSON object")
		return model.Policy{}, errs
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	var w wirePolicy
	if err := dec.Decode(&w); err != nil {
		errs.add("", "invalid JSON: %v", err)
		return model.Policy{}, errs
	}
	// Strict JSON: reject any trailing content after the single top-level
	// value (a second object, stray bytes, etc).
	if dec.More() {
		errs.add("", "unexpected trailing content after JSON value")
		return model.Policy{}, errs
	}

	policy, ok := validateStructural(&w, errs)
	if !ok {
		return model.Policy{}, errs
	}

	validateSemantic(&w, &policy, errs)
	if !errs.Empty() {
		return model.Policy{}, errs
	}

	return policy, nil
}

// looksLikeObject reports whether the first non-whitespace byte of raw is
// '{'. json.Decoder would happily decode a top-level array or scalar into
// our wirePolicy struct as a zero value, silently accepting malformed
// input, so this check runs first.
func looksLikeObject(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}
