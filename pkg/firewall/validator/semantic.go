package validator

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[A-Za-z0-9.]+)?(\+[A-Za-z0-9.]+)?$`)

var (
	validActions    = map[model.Action]bool{model.ActionAllow: true, model.ActionBlock: true}
	validDirections = map[model.Direction]bool{model.DirectionInbound: true, model.DirectionOutbound: true, model.DirectionBoth: true}
	validProtocols  = map[model.Protocol]bool{model.ProtocolTCP: true, model.ProtocolUDP: true, model.ProtocolAny: true}
)

// validateSemantic checks value-level constraints once structure is known
// to be sound: version/timestamp format, enum membership, endpoint
// parseability and process-path safety.
func validateSemantic(w *wirePolicy, p *model.Policy, errs *ErrorList) {
	if w.Version != nil && !versionPattern.MatchString(*w.Version) {
		errs.add("version", "must match semver pattern %s", versionPattern.String())
	}

	if !validActions[p.DefaultAction] {
		errs.add("defaultAction", "must be one of allow, block")
	}

	if w.UpdatedAt != nil {
		ts, err := time.Parse(time.RFC3339, *w.UpdatedAt)
		if err != nil {
			errs.add("updatedAt", "must be RFC-3339: %v", err)
		} else {
			p.UpdatedAt = ts.UTC()
			if p.UpdatedAt.After(time.Now().UTC()) {
				errs.add("updatedAt", "must not be in the future")
			}
		}
	}

	for i, r := range p.Rules {
		path := fmt.Sprintf("rules[%d]", i)

		if !validActions[r.Action] {
			errs.add(path+".action", "must be one of allow, block")
		}
		if !validDirections[r.Direction] {
			errs.add(path+".direction", "must be one of inbound, outbound, both")
		}
		if !validProtocols[r.Protocol] {
			errs.add(path+".protocol", "must be one of tcp, udp, any")
		}

		if r.Process != "" && hasDotDotSegment(r.Process) {
			errs.add(path+".process", "must not contain \"..\" segments")
		}

		if r.Local != nil {
			validateEndpointSemantic(*r.Local, path+".local", errs)
		}
		if r.Remote != nil {
			validateEndpointSemantic(*r.Remote, path+".remote", errs)
		}
	}
}

func validateEndpointSemantic(e model.Endpoint, path string, errs *ErrorList) {
	if e.IP != "" {
		if !validIPOrCIDR(e.IP) {
			errs.add(path+".ip", "must be a literal IP address or CIDR")
		}
	}
	if e.Ports != "" {
		if _, err := model.ParsePortSpec(e.Ports); err != nil {
			errs.add(path+".ports", "%v", err)
		}
	}
}

// validIPOrCIDR accepts "a.b.c.d[/0-32]" or "ipv6[/0-128]". The
// compiler, not the validator, is the gate that
// rejects IPv6 and local endpoints outright.
func validIPOrCIDR(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}

func hasDotDotSegment(path string) bool {
	path = strings.ReplaceAll(path, "\\", "/")
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
