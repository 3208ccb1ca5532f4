// Package model holds the data types shared by the validator, compiler,
// reconciliation engine and LKG store: Policy, Rule, PortSpec,
// CompiledFilter, ExistingFilter, LkgRecord and AuditEntry.
package model

import "time"

// Action is the disposition a Rule or CompiledFilter applies to matching
// traffic.
type Action string

const (
	ActionAllow Action = "allow"
	ActionBlock Action = "block"
)

// Direction is the traffic direction a Rule applies to.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionBoth     Direction = "both"
)

// Protocol is the transport protocol a Rule matches.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
	ProtocolAny Protocol = "any"
)

// Policy is a versioned traffic-policy document.
type Policy struct {
	Version       string    `json:"version"`
	DefaultAction Action    `json:"defaultAction"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Rules         []Rule    `json:"rules"`
}

// MaxRuleCount and MaxPolicyBytes are the hard policy limits.
const (
	MaxRuleCount   = 10_000
	MaxPolicyBytes = 1 << 20 // 1 MiB
)

// Endpoint is a local or remote endpoint filter: a non-empty subset of
// {ip, ports}.
type Endpoint struct {
	IP    string `json:"ip,omitempty"`
	Ports string `json:"ports,omitempty"`
}

// Empty reports whether neither IP nor Ports was set, which is invalid.
func (e Endpoint) Empty() bool { return e.IP == "" && e.Ports == "" }

// Rule is a single policy rule.
type Rule struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Direction Direction `json:"direction"`
	Protocol  Protocol  `json:"protocol"`
	Process   string    `json:"process,omitempty"`
	Local     *Endpoint `json:"local,omitempty"`
	Remote    *Endpoint `json:"remote,omitempty"`
	Priority  uint16    `json:"priority"`
	Enabled   bool      `json:"enabled"`
}

// CompiledFilter is a kernel-level filter descriptor.
type CompiledFilter struct {
	FilterKey       [16]byte `json:"-"`
	FilterKeyString string   `json:"filterKey"`
	RuleID          string   `json:"ruleId"`
	Direction       Direction
	Protocol        uint8 // numeric: 6=tcp, 17=udp
	RemoteIP        uint32
	RemoteMask      uint32
	HasRemoteIP     bool
	RemotePort      uint16
	RemotePortLo    uint16
	RemotePortHi    uint16
	HasPort         bool
	HasPortRange    bool
	ProcessPath     string
	Action          Action
	Weight          uint64
	DisplayName     string
	Description     string
}

// Numeric protocol values used by the filtering platform's contract.
const (
	IPProtoTCP = 6
	IPProtoUDP = 17
)

// ExistingFilter is a filter as observed from the kernel.
type ExistingFilter struct {
	FilterKey   [16]byte
	FilterID    uint64
	DisplayName string
}

// LkgRecord is the on-disk wrapper persisted by the LKG store.
type LkgRecord struct {
	Checksum   string    `json:"checksum"`
	PolicyJSON string    `json:"policyJson"`
	SavedAt    time.Time `json:"savedAt"`
	SourcePath string    `json:"sourcePath,omitempty"`
}

// AuditEntry is one immutable, append-only audit log record.
type AuditEntry struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"ts"`
	Event        string         `json:"event"`
	Source       string         `json:"source"`
	Status       string         `json:"status,omitempty"`
	ErrorCode    string         `json:"errorCode,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)
