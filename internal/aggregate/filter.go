package aggregate

import (
	"sort"
	"strings"
	"time"

	"finlens/internal/core"
)

type SortKey string

type SortDir string

const (
	SortByDate   SortKey = "date"
	SortByAmount SortKey = "amount"

	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Filter selects and orders transactions. Zero values mean "no constraint";
// the default ordering is date descending, matching the dashboard's newest-first
// listing.
type Filter struct {
	Category string
	Tag      string
	Search   string
	From     time.Time
	To       time.Time
	SortKey  SortKey
	SortDir  SortDir
}

// Apply returns the rows matching every supplied predicate, sorted per the
// filter. The sort is stable: rows with equal keys keep their input order.
func Apply(txs []core.Transaction, f Filter) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Category != "" && !strings.EqualFold(tx.Category, f.Category) {
			continue
		}
		if f.Tag != "" && !hasTag(tx, f.Tag) {
			continue
		}
		if f.Search != "" && !MatchesTerm(tx, f.Search) {
			continue
		}
		if !f.From.IsZero() && tx.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && tx.Date.After(f.To) {
			continue
		}
		out = append(out, tx)
	}

	key := f.SortKey
	if key == "" {
		key = SortByDate
	}
	dir := f.SortDir
	if dir == "" {
		dir = SortDesc
	}
	sort.SliceStable(out, func(i, j int) bool {
		var less bool
		switch key {
		case SortByAmount:
			less = out[i].Amount < out[j].Amount
		default:
			less = out[i].Date.Before(out[j].Date)
		}
		if dir == SortDesc {
			return !less && !equalKey(out[i], out[j], key)
		}
		return less
	})
	return out
}

func equalKey(a, b core.Transaction, key SortKey) bool {
	if key == SortByAmount {
		return a.Amount == b.Amount
	}
	return a.Date.Equal(b.Date)
}

// MatchesTerm reports whether term occurs case-insensitively in the row's
// category, any tag, or description.
func MatchesTerm(tx core.Transaction, term string) bool {
	needle := strings.ToLower(term)
	if strings.Contains(strings.ToLower(tx.Category), needle) {
		return true
	}
	for _, tag := range tx.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(tx.Description), needle)
}

func hasTag(tx core.Transaction, tag string) bool {
	for _, t := range tx.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Paginate slices rows by offset and limit; limit <= 0 means no limit.
func Paginate(txs []core.Transaction, offset, limit int) []core.Transaction {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(txs) {
		return []core.Transaction{}
	}
	end := len(txs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return txs[offset:end]
}
