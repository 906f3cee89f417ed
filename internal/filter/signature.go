package filter

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Signature returns a deterministic, order-independent encoding of the
// evaluated filter, for use as a cache key component. Two queries that
// resolve to the same constraints produce the same signature regardless of
// the order their parameters arrived in: pairs are sorted before hashing.
// Pagination is excluded; it does not affect aggregation results.
func (s Spec) Signature() string {
	pairs := make([]string, 0, 5)
	if s.Period != PeriodAllTime {
		pairs = append(pairs, "period="+s.Period)
	}
	if s.CategoryID != 0 {
		pairs = append(pairs, "category="+strconv.FormatInt(s.CategoryID, 10))
	}
	if len(s.Tags) > 0 {
		tags := make([]string, len(s.Tags))
		copy(tags, s.Tags)
		sort.Strings(tags)
		pairs = append(pairs, "tags="+strings.Join(tags, ","))
	}
	if !s.From.IsZero() {
		pairs = append(pairs, "from="+s.From.Format("2006-01-02"))
	}
	if !s.To.IsZero() {
		pairs = append(pairs, "to="+s.To.Format("2006-01-02"))
	}
	sort.Strings(pairs)

	sum := sha256.Sum256([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(sum[:16])
}
