// Package compiler implements the rule compiler: the semantic
// gate that turns a validated Policy into the flat list of CompiledFilter
// descriptors the reconciliation engine installs into the kernel. Unlike
// the validator, the compiler rejects constructs the kernel cannot express
// as a single filter — it is authoritative for v1's restrictions even
// where the validator itself accepted the input.
package compiler

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

// CompilationResult is the output of compiling a Policy.
type CompilationResult struct {
	Filters      []model.CompiledFilter
	Errors       []string
	Warnings     []string
	SkippedRules []string
}

// Successful reports whether the compilation produced no errors.
// Filters may still be non-empty even when Successful is false; callers
// decide whether to proceed with a partial result.
func (r CompilationResult) Successful() bool { return len(r.Errors) == 0 }

// Compile converts a validated Policy into CompiledFilters.
func Compile(p model.Policy) CompilationResult {
	var res CompilationResult

	for _, rule := range p.Rules {
		if !rule.Enabled {
			res.Warnings = append(res.Warnings, fmt.Sprintf("rule %q: disabled, skipped", rule.ID))
			res.SkippedRules = append(res.SkippedRules, rule.ID)
			continue
		}

		if err := rejectUnsupported(rule); err != "" {
			res.Errors = append(res.Errors, fmt.Sprintf("rule %q: %s", rule.ID, err))
			continue
		}

		filters, err := compileRule(rule)
		if err != "" {
			res.Errors = append(res.Errors, fmt.Sprintf("rule %q: %s", rule.ID, err))
			continue
		}

		res.Filters = append(res.Filters, filters...)
	}

	return res
}

// rejectUnsupported implements the compiler's semantic gate:
// "both" direction, inbound UDP, inbound "any" and any local.* are
// rejected here even though the validator accepted them. IPv6 literals
// are rejected in compileRule, once the remote IP has been parsed.
func rejectUnsupported(rule model.Rule) string {
	if rule.Direction == model.DirectionBoth {
		return `direction "both" is not supported by the compiler`
	}
	if rule.Direction == model.DirectionInbound && rule.Protocol == model.ProtocolUDP {
		return "inbound UDP is not supported by the compiler"
	}
	if rule.Direction == model.DirectionInbound && rule.Protocol == model.ProtocolAny {
		return `inbound protocol "any" is not supported by the compiler`
	}
	if rule.Local != nil {
		return "local endpoint filters are not supported by the compiler (v1)"
	}
	return ""
}

func compileRule(rule model.Rule) ([]model.CompiledFilter, string) {
	var ip parsedEndpointIP
	var ports string
	if rule.Remote != nil {
		parsed, err := parseEndpointIP(rule.Remote.IP)
		if err != nil {
			return nil, err.Error()
		}
		ip = parsed
		ports = rule.Remote.Ports
	}

	if ip.isIPv6 {
		return nil, "IPv6 literals are not supported by the compiler (v1)"
	}

	protocols := protocolsFor(rule.Protocol)

	var selectors []portSelector
	if ports == "" {
		selectors = []portSelector{{none: true}}
	} else {
		ranges, err := model.ParsePortSpec(ports)
		if err != nil {
			return nil, err.Error()
		}
		for _, r := range ranges {
			if r.Singleton() {
				selectors = append(selectors, portSelector{lo: r.Lo})
			} else {
				selectors = append(selectors, portSelector{isRange: true, lo: r.Lo, hi: r.Hi})
			}
		}
	}

	filters := make([]model.CompiledFilter, 0, len(protocols)*len(selectors))
	for _, proto := range protocols {
		for _, sel := range selectors {
			filters = append(filters, buildFilter(rule, proto, ip, sel))
		}
	}
	return filters, ""
}

func protocolsFor(p model.Protocol) []model.Protocol {
	if p == model.ProtocolAny {
		return []model.Protocol{model.ProtocolTCP, model.ProtocolUDP}
	}
	return []model.Protocol{p}
}

func numericProtocol(p model.Protocol) uint8 {
	if p == model.ProtocolUDP {
		return model.IPProtoUDP
	}
	return model.IPProtoTCP
}

func buildFilter(rule model.Rule, proto model.Protocol, ip parsedEndpointIP, sel portSelector) model.CompiledFilter {
	bytes := canonicalBytes(rule.ID, rule.Action, rule.Direction, proto, ip, sel)
	key := uuid.NewSHA1(model.FilterKeyNamespace, bytes)

	f := model.CompiledFilter{
		RuleID:      rule.ID,
		Direction:   rule.Direction,
		Protocol:    numericProtocol(proto),
		Action:      rule.Action,
		ProcessPath: rule.Process,
		Weight:      weightFor(rule.Priority, rule.ID),
		DisplayName: fmt.Sprintf("%s/%s/%s", rule.ID, rule.Direction, proto),
		Description: fmt.Sprintf("compiled from rule %q", rule.ID),
	}
	f.FilterKey = key
	f.FilterKeyString = key.String()

	if ip.present {
		f.HasRemoteIP = true
		f.RemoteIP = ip.ipHost
		f.RemoteMask = ip.maskHost
	}

	switch {
	case sel.none:
		// no port predicate
	case sel.isRange:
		f.HasPortRange = true
		f.RemotePortLo = sel.lo
		f.RemotePortHi = sel.hi
	default:
		f.HasPort = true
		f.RemotePort = sel.lo
	}

	return f
}
