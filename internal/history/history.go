// Package history builds the per-user chronological transaction index
// consumed by rules that need recency and frequency context.
//
// The index is built once per run from the full batch: transactions are
// grouped by user and each group is sorted by timestamp. A transaction's
// history is the prefix of its user's group with strictly earlier
// timestamps, so a transaction is never evaluated against itself or
// against future transactions.
package history

import (
	"sort"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// Index is the read-only per-user arena of chronologically sorted
// transactions. Lifetime is one run.
type Index struct {
	byUser map[string][]*domain.Transaction
}

// Build groups the batch by user and sorts each group by timestamp.
// The sort is stable so equal-timestamp transactions keep input order.
func Build(batch []domain.Transaction) *Index {
	byUser := make(map[string][]*domain.Transaction)
	for i := range batch {
		tx := &batch[i]
		byUser[tx.UserID] = append(byUser[tx.UserID], tx)
	}
	for _, group := range byUser {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
	}
	return &Index{byUser: byUser}
}

// Users returns the number of distinct users in the index.
func (ix *Index) Users() int {
	return len(ix.byUser)
}

// Before returns the view of the user's transactions strictly earlier
// than the given transaction's timestamp. Two same-instant transactions
// of one user are not part of each other's history.
func (ix *Index) Before(tx *domain.Transaction) *View {
	group := ix.byUser[tx.UserID]
	// First index with timestamp >= tx.Timestamp bounds the prior window.
	n := sort.Search(len(group), func(i int) bool {
		return !group[i].Timestamp.Before(tx.Timestamp)
	})
	return &View{prior: group[:n]}
}

// View is the ordered, read-only sequence of one user's prior
// transactions, oldest first.
type View struct {
	prior []*domain.Transaction
}

// Len returns the number of prior transactions.
func (v *View) Len() int {
	return len(v.prior)
}

// Transactions returns the prior transactions, oldest first.
func (v *View) Transactions() []*domain.Transaction {
	return v.prior
}

// Last returns the immediately preceding transaction, or nil when the
// user has no prior history.
func (v *View) Last() *domain.Transaction {
	if len(v.prior) == 0 {
		return nil
	}
	return v.prior[len(v.prior)-1]
}

// Since returns the elapsed time from the immediately preceding
// transaction to t. The second return is false when there is no prior
// transaction.
func (v *View) Since(t time.Time) (time.Duration, bool) {
	last := v.Last()
	if last == nil {
		return 0, false
	}
	return t.Sub(last.Timestamp), true
}

// MeanAmount returns the mean of prior amounts. The second return is
// false when the mean is undefined (no prior history).
func (v *View) MeanAmount() (float64, bool) {
	if len(v.prior) == 0 {
		return 0, false
	}
	var sum float64
	for _, tx := range v.prior {
		sum += tx.Amount
	}
	return sum / float64(len(v.prior)), true
}

// FrequentDevice returns the most frequent device among prior
// transactions. Ties resolve to the device first seen earliest. The
// second return is false when there is no prior history.
func (v *View) FrequentDevice() (string, bool) {
	if len(v.prior) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(v.prior))
	firstSeen := make(map[string]int, len(v.prior))
	for i, tx := range v.prior {
		if _, ok := firstSeen[tx.DeviceID]; !ok {
			firstSeen[tx.DeviceID] = i
		}
		counts[tx.DeviceID]++
	}
	best := ""
	for device, count := range counts {
		if best == "" {
			best = device
			continue
		}
		switch {
		case count > counts[best]:
			best = device
		case count == counts[best] && firstSeen[device] < firstSeen[best]:
			best = device
		}
	}
	return best, true
}
