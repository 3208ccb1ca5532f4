// Package lkg persists the last-known-good policy to disk: a
// single JSON wrapper {checksum, policyJson, savedAt, sourcePath?} written
// atomically (tempfile, fsync, rename) and integrity-checked on load via
// SHA-256. Writers serialize through their Store's mutex; Stores created
// separately for the same path do not serialize with each other. Readers
// see either the old or the new file, never a truncated one.
package lkg

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
	"github.com/hearthguard/sentryfw/pkg/firewall/validator"
	"github.com/hearthguard/sentryfw/pkg/result"
)

// fileMode is the permission the LKG file and its tempfiles are created
// with: readable only by the owner, since policyJson is operational data
// for a privileged service.
const fileMode = 0o600

// wireRecord is the on-disk shape.
type wireRecord struct {
	Checksum   string    `json:"checksum"`
	PolicyJSON string    `json:"policyJson"`
	SavedAt    time.Time `json:"savedAt"`
	SourcePath string    `json:"sourcePath,omitempty"`
}

// Loaded is the successful result of Load: the parsed policy plus the raw
// bytes and metadata that produced it.
type Loaded struct {
	Policy     model.Policy
	RawJSON    string
	SavedAt    time.Time
	SourcePath string
}

// Metadata is the result of Query: a summary of the stored record
// without the policy body.
type Metadata struct {
	Exists         bool
	IsCorrupt      bool
	PolicyVersion  string
	RuleCount      int
	SavedAt        time.Time
	SourcePath     string
	Error          string
}

// Store is a last-known-good policy store rooted at one file path. All
// writers serialize through mu; readers do not need the lock since the
// atomic-rename guarantee means a concurrent read observes either the old
// or the new file content, never a torn write.
type Store struct {
	mu   sync.Mutex
	path string
	val  *validator.Validator
}

// New creates a Store persisting to path. The containing directory must
// exist; tempfiles for atomic rename are created alongside path.
func New(path string) *Store {
	return &Store{path: path, val: validator.New()}
}

// Save writes policyJSON as the new last-known-good record. sourcePath
// is preserved best-effort and never affects the checksum. Rejects
// empty/whitespace-only input.
func (s *Store) Save(policyJSON string, sourcePath string) result.Result[struct{}] {
	if strings.TrimSpace(policyJSON) == "" {
		return result.Fail[struct{}](result.New(result.CodeInvalidArgument, "policyJson must not be empty"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sum := sha256.Sum256([]byte(policyJSON))
	rec := wireRecord{
		Checksum:   hex.EncodeToString(sum[:]),
		PolicyJSON: policyJSON,
		SavedAt:    time.Now().UTC(),
		SourcePath: sourcePath,
	}

	buf, err := json.Marshal(rec)
	if err != nil {
		return result.Fail[struct{}](result.Wrap(result.CodeInvalidState, "failed to marshal lkg record", err))
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".lkg-*.tmp")
	if err != nil {
		return result.Fail[struct{}](result.Wrap(result.CodeUnknown, "failed to create lkg tempfile", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed away

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return result.Fail[struct{}](result.Wrap(result.CodeUnknown, "failed to write lkg tempfile", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return result.Fail[struct{}](result.Wrap(result.CodeUnknown, "failed to fsync lkg tempfile", err))
	}
	if err := tmp.Close(); err != nil {
		return result.Fail[struct{}](result.Wrap(result.CodeUnknown, "failed to close lkg tempfile", err))
	}
	if err := os.Chmod(tmpPath, fileMode); err != nil {
		return result.Fail[struct{}](result.Wrap(result.CodeUnknown, "failed to set lkg file mode", err))
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return result.Fail[struct{}](result.Wrap(result.CodeUnknown, "failed to rename lkg tempfile into place", err))
	}

	return result.Ok(struct{}{})
}

// Load reads the stored record, verifies its checksum, and re-validates
// policyJson before returning it. A missing file is reported as
// CodeNotFound, not treated as corruption.
func (s *Store) Load() result.Result[Loaded] {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return result.Fail[Loaded](result.New(result.CodeNotFound, "lkg record does not exist"))
	}
	if err != nil {
		return result.Fail[Loaded](result.Wrap(result.CodeUnknown, "unreadable lkg file", err))
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return result.Fail[Loaded](result.New(result.CodeInvalidState, "lkg file is empty"))
	}

	var rec wireRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return result.Fail[Loaded](result.Wrap(result.CodeInvalidState, "invalid lkg JSON", err))
	}
	if rec.Checksum == "" || rec.PolicyJSON == "" {
		return result.Fail[Loaded](result.New(result.CodeInvalidState, "lkg record missing required fields"))
	}

	sum := sha256.Sum256([]byte(rec.PolicyJSON))
	if hex.EncodeToString(sum[:]) != strings.ToLower(rec.Checksum) {
		return result.Fail[Loaded](result.New(result.CodeInvalidState, "lkg checksum mismatch"))
	}

	policy, errs := s.val.Validate([]byte(rec.PolicyJSON))
	if errs != nil {
		return result.Fail[Loaded](result.Wrap(result.CodeInvalidState, "lkg policy failed validation", errs))
	}

	return result.Ok(Loaded{
		Policy:     policy,
		RawJSON:    rec.PolicyJSON,
		SavedAt:    rec.SavedAt,
		SourcePath: rec.SourcePath,
	})
}

// Query returns a metadata-only summary of the stored record without
// the policy body. It never fails: absence and corruption are reported
// as fields, not as a Result failure, since the caller (an rpc handler)
// always wants a reply.
func (s *Store) Query() Metadata {
	loaded := s.Load()
	if loaded.IsOk() {
		v := loaded.Value()
		return Metadata{
			Exists:        true,
			PolicyVersion: v.Policy.Version,
			RuleCount:     len(v.Policy.Rules),
			SavedAt:       v.SavedAt,
			SourcePath:    v.SourcePath,
		}
	}

	err := loaded.Err()
	if err.Code == result.CodeNotFound {
		return Metadata{Exists: false}
	}
	return Metadata{Exists: true, IsCorrupt: true, Error: err.Error()}
}
