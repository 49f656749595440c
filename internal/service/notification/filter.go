package notification

import (
	"strings"

	"github.com/citywatch/report-api/internal/model"
)

// Filter derives a view of records matching the city substring (case
// insensitive) and the exact status. An empty city matches everything, as
// does the "all" status sentinel (or an empty status). The input order is
// preserved and the input slice is never mutated.
func Filter(records []model.Notification, cityQuery string, status model.NotificationStatus) []model.Notification {
	cityQuery = strings.ToLower(cityQuery)

	filtered := make([]model.Notification, 0, len(records))
	for _, r := range records {
		if cityQuery != "" && !strings.Contains(strings.ToLower(r.Location.City), cityQuery) {
			continue
		}
		if status != "" && status != model.NotificationStatusAll && r.Status != status {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
