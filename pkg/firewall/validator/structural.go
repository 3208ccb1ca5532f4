package validator

import (
	"fmt"
	"regexp"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

var ruleIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// validateStructural checks required-field presence and shape. It
// populates as much of the Policy as it safely can
// so that validateSemantic has concrete values to check, but returns
// ok=false if anything is missing outright (so semantic checks don't
// cascade on top of absent data).
func validateStructural(w *wirePolicy, errs *ErrorList) (model.Policy, bool) {
	ok := true
	var p model.Policy

	if w.Version == nil {
		errs.add("version", "required field missing")
		ok = false
	} else {
		p.Version = *w.Version
	}

	if w.DefaultAction == nil {
		p.DefaultAction = model.ActionAllow
	} else {
		p.DefaultAction = model.Action(*w.DefaultAction)
	}

	if w.UpdatedAt == nil {
		errs.add("updatedAt", "required field missing")
		ok = false
	}

	if len(w.Rules) > model.MaxRuleCount {
		errs.add("rules", "rule count %d exceeds maximum %d", len(w.Rules), model.MaxRuleCount)
		ok = false
	}

	rules := make([]model.Rule, 0, len(w.Rules))
	seenIDs := make(map[string]int) // lowercased id -> index of first occurrence

	for i, wr := range w.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		r, ruleOK := validateRuleStructural(wr, path, errs)
		if !ruleOK {
			ok = false
			continue
		}

		lower := toLowerASCII(r.ID)
		if first, dup := seenIDs[lower]; dup {
			errs.add(path+".id", "duplicate id %q (case-insensitive match of rules[%d])", r.ID, first)
			ok = false
		} else {
			seenIDs[lower] = i
		}

		rules = append(rules, r)
	}

	p.Rules = rules
	return p, ok
}

func validateRuleStructural(wr wireRule, path string, errs *ErrorList) (model.Rule, bool) {
	ok := true
	var r model.Rule

	if wr.ID == nil {
		errs.add(path+".id", "required field missing")
		ok = false
	} else if !ruleIDPattern.MatchString(*wr.ID) {
		errs.add(path+".id", "must match %s", ruleIDPattern.String())
		ok = false
	} else {
		r.ID = *wr.ID
	}

	if wr.Action == nil {
		errs.add(path+".action", "required field missing")
		ok = false
	} else {
		r.Action = model.Action(toLowerASCII(*wr.Action))
	}

	if wr.Direction == nil {
		errs.add(path+".direction", "required field missing")
		ok = false
	} else {
		r.Direction = model.Direction(toLowerASCII(*wr.Direction))
	}

	if wr.Protocol == nil {
		errs.add(path+".protocol", "required field missing")
		ok = false
	} else {
		r.Protocol = model.Protocol(toLowerASCII(*wr.Protocol))
	}

	if wr.Priority == nil {
		errs.add(path+".priority", "required field missing")
		ok = false
	} else {
		r.Priority = *wr.Priority
	}

	// enabled is optional and defaults to false: a rule absent an
	// explicit enabled:true never installs filters.
	if wr.Enabled != nil {
		r.Enabled = *wr.Enabled
	}

	if wr.Process != nil {
		r.Process = *wr.Process
	}

	if wr.Local != nil {
		ep, epOK := validateEndpointStructural(*wr.Local, path+".local", errs)
		if !epOK {
			ok = false
		}
		r.Local = &ep
	}

	if wr.Remote != nil {
		ep, epOK := validateEndpointStructural(*wr.Remote, path+".remote", errs)
		if !epOK {
			ok = false
		}
		r.Remote = &ep
	}

	return r, ok
}

func validateEndpointStructural(we wireEndpoint, path string, errs *ErrorList) (model.Endpoint, bool) {
	var e model.Endpoint
	if we.IP != nil {
		e.IP = *we.IP
	}
	if we.Ports != nil {
		e.Ports = *we.Ports
	}
	if e.Empty() {
		errs.add(path, "must have at least one of {ip, ports}")
		return e, false
	}
	return e, true
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
