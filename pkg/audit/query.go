package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"time"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

// Tail reads the audit log file at path and returns up to n most recent
// entries (n <= 0 returns nothing), optionally filtered to entries no
// older than sinceMinutes (<=0 means no filter). Used directly by the
// audit-logs handler for small logs; pkg/audit/index provides an
// indexed alternative for larger deployments.
func Tail(path string, n int, sinceMinutes int) ([]model.AuditEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cutoff time.Time
	if sinceMinutes > 0 {
		cutoff = time.Now().UTC().Add(-time.Duration(sinceMinutes) * time.Minute)
	}

	var entries []model.AuditEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e model.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // malformed lines are skipped, not fatal to the query
		}
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
