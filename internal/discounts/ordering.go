package discounts

import (
	"sort"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// priorityOrder is the SQL ordering matching less.
const (
	priorityOrder          = "priority DESC, start_date DESC, id ASC"
	qualifiedPriorityOrder = "d.priority DESC, d.start_date DESC, d.id ASC"
)

// Today truncates t to a UTC calendar date, the granularity of discount windows.
func Today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsApplicable reports whether d can be used on the given day.
func IsApplicable(d models.Discount, today time.Time) bool {
	if d.Archived || !d.IsActive {
		return false
	}
	day := Today(today)
	return !Today(d.StartDate).After(day) && !Today(d.EndDate).Before(day)
}

// less orders discounts by priority, then most recent start date. The id
// keeps the order total.
func less(a, b models.Discount) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.After(b.StartDate)
	}
	return a.ID.String() < b.ID.String()
}

// highestPriority returns the winning discount or nil.
func highestPriority(candidates []models.Discount) *models.Discount {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]models.Discount, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return &sorted[0]
}
