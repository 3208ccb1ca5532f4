package compiler

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"net"
	"strconv"
	"strings"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

// ipv4ToHostOrder encodes a 4-byte IPv4 address as a single uint32 in the
// filtering platform's "host byte order" contract: 1.2.3.4
// becomes 0x01020304, i.e. the big-endian interpretation of the octets
// regardless of the compiling machine's actual endianness.
func ipv4ToHostOrder(ip net.IP) uint32 {
	v4 := ip.To4()
	return binary.BigEndian.Uint32(v4)
}

// cidrMaskHostOrder computes the /n network mask in the same host-order
// convention: ~0u32 << (32-n).
func cidrMaskHostOrder(prefixLen int) uint32 {
	if prefixLen >= 32 {
		return 0xFFFFFFFF
	}
	if prefixLen <= 0 {
		return 0
	}
	return ^uint32(0) << uint(32-prefixLen)
}

// parsedEndpointIP is the result of parsing an Endpoint.IP field.
type parsedEndpointIP struct {
	present bool
	isIPv6  bool
	ipHost  uint32
	maskHost uint32
}

func parseEndpointIP(s string) (parsedEndpointIP, error) {
	if s == "" {
		return parsedEndpointIP{}, nil
	}

	if strings.Contains(s, "/") {
		ip, network, err := net.ParseCIDR(s)
		if err != nil {
			return parsedEndpointIP{}, fmt.Errorf("invalid CIDR %q: %w", s, err)
		}
		if ip.To4() == nil {
			return parsedEndpointIP{isIPv6: true, present: true}, nil
		}
		ones, _ := network.Mask.Size()
		return parsedEndpointIP{
			present:  true,
			ipHost:   ipv4ToHostOrder(ip),
			maskHost: cidrMaskHostOrder(ones),
		}, nil
	}

	ip := net.ParseIP(s)
	if ip == nil {
		return parsedEndpointIP{}, fmt.Errorf("invalid IP %q", s)
	}
	if ip.To4() == nil {
		return parsedEndpointIP{isIPv6: true, present: true}, nil
	}
	return parsedEndpointIP{
		present:  true,
		ipHost:   ipv4ToHostOrder(ip),
		maskHost: cidrMaskHostOrder(32),
	}, nil
}

// portSelector describes the port predicate (or lack of one) for a single
// expanded filter.
type portSelector struct {
	none    bool
	isRange bool
	lo, hi  uint16
}

func (s portSelector) canonical() string {
	switch {
	case s.none:
		return "none"
	case s.isRange:
		return fmt.Sprintf("range:%d-%d", s.lo, s.hi)
	default:
		return fmt.Sprintf("port:%d", s.lo)
	}
}

// canonicalBytes builds the deterministic byte string that filterKey is a
// UUIDv5 hash of: a pure function of rule content, with no
// time-varying field, so identical inputs always produce identical keys
// across processes and machines.
func canonicalBytes(ruleID string, action model.Action, direction model.Direction, protocol model.Protocol, ip parsedEndpointIP, port portSelector) []byte {
	s := strings.Join([]string{
		ruleID,
		string(action),
		string(direction),
		string(protocol),
		strconv.FormatUint(uint64(ip.ipHost), 16),
		strconv.FormatUint(uint64(ip.maskHost), 16),
		port.canonical(),
	}, "|")
	return []byte(s)
}

// stableHash32 is the deterministic 32-bit hash used to break weight ties
// between rules sharing the same priority. FNV-1a is stable,
// dependency-free and order-sensitive; a heavier hash buys nothing for
// a tie-break this small.
func stableHash32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// weightFor computes the monotone-in-priority weight with deterministic
// tie-break.
func weightFor(priority uint16, ruleID string) uint64 {
	return uint64(priority)<<32 | uint64(stableHash32(ruleID))
}
