package recommend

import (
	"fmt"
	"math"

	"github.com/vietddude/curator/internal/core/domain"
)

// RequiredColumns must be present and non-null on every joined row.
var RequiredColumns = []string{
	domain.ColumnTitle,
	domain.ColumnDistance,
	domain.ColumnLink,
	domain.ColumnMean,
	domain.ColumnNSFW,
}

// Merge left-joins candidates against the metadata table in candidate order,
// validates every row and truncates to limit (limit <= 0 keeps all rows).
func Merge(candidates []domain.Candidate, table domain.MetadataTable, limit int) ([]domain.Recommendation, error) {
	out := make([]domain.Recommendation, 0, len(candidates))

	for i, c := range candidates {
		row, ok := table[c.ID]
		if !ok {
			return nil, fmt.Errorf("%w: candidate %d (id %d) has no metadata row", ErrIncompleteJoin, i, c.ID)
		}
		for _, col := range RequiredColumns {
			if !joinedHas(c, row, col) {
				return nil, fmt.Errorf("%w: candidate %d (id %d) is missing column %q", ErrIncompleteJoin, i, c.ID, col)
			}
		}

		out = append(out, domain.Recommendation{
			Title:    row.Title,
			MatchPct: MatchPercent(*c.Distance),
			Link:     row.Link,
			Mean:     row.Mean,
			NSFW:     row.NSFW,
		})
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func joinedHas(c domain.Candidate, row domain.MetadataRow, column string) bool {
	if column == domain.ColumnDistance {
		return c.Distance != nil && !math.IsNaN(*c.Distance)
	}
	return row.Has(column)
}

// MatchPercent maps a 0-10 distance to a percentage: the distance is rounded
// to two decimals, scaled by ten and rounded half to even.
func MatchPercent(distance float64) int {
	return int(math.RoundToEven(math.Round(distance*100) / 100 * 10))
}
