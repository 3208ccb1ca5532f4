package validator

import "fmt"

// FieldError is a single validation failure at a JSON path.
// Root-level errors use paths like "version"; per-rule errors use
// "rules[3].id".
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ErrorList collects every validation failure found across a single pass.
// Validation is collecting, not fail-fast: every violation is
// reported, ordered root-first then rules[i] ascending.
type ErrorList struct {
	Errors []FieldError
}

func (l *ErrorList) add(path, format string, args ...any) {
	l.Errors = append(l.Errors, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (l *ErrorList) Empty() bool { return len(l.Errors) == 0 }

func (l *ErrorList) Error() string {
	if l.Empty() {
		return "no validation errors"
	}
	s := fmt.Sprintf("%d validation error(s):", len(l.Errors))
	for _, e := range l.Errors {
		s += "\n  " + e.String()
	}
	return s
}
