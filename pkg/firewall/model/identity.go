package model

import "github.com/google/uuid"

// FilterKeyNamespace anchors the content-addressed UUIDv5 scheme used for
// CompiledFilter.FilterKey. It must never change after initial
// release: changing it would mint different keys for identical rules and
// break idempotence across versions.
var FilterKeyNamespace = uuid.MustParse("6f6d7061-6e79-5f73-656e-747279667721")

// ProviderKey and SublayerKey are the fixed identities of this system's
// single provider + sublayer registration in the filtering platform.
// Like FilterKeyNamespace, they are fixed at first release; changing
// them orphans live kernel objects.
var (
	ProviderKey = uuid.MustParse("8f14e45f-ceea-467e-9de1-000000000001")
	SublayerKey = uuid.MustParse("8f14e45f-ceea-467e-9de1-000000000002")
)
