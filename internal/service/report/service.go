package report

import (
	"context"
	"time"

	"github.com/citywatch/report-api/internal/model"
	"github.com/citywatch/report-api/internal/service/notification"
)

// Row is one notification flattened for the consolidated report.
type Row struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	SubmittedAt  string `json:"submitted_at"`
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Street       string `json:"street,omitempty"`
	Response     string `json:"response,omitempty"`
}

// Report is the consolidated view the prefecture exports. Rendering it to
// PDF happens on the client.
type Report struct {
	Number      string `json:"number"`
	GeneratedAt string `json:"generated_at"`
	City        string `json:"city"`
	Total       int    `json:"total"`
	Rows        []Row  `json:"rows"`
}

type Service struct {
	notifications *notification.Service
	now           func() time.Time
}

func NewService(notifications *notification.Service) *Service {
	return &Service{
		notifications: notifications,
		now:           time.Now,
	}
}

// Generate builds a report over the user's current list, optionally narrowed
// to one city. The report number is derived from the generation timestamp.
func (s *Service) Generate(ctx context.Context, userID, city string) (*Report, error) {
	records, err := s.notifications.List(ctx, userID, &model.NotificationFilter{
		City:   city,
		Status: model.NotificationStatusAll,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{
			ID:           r.ID,
			UserID:       r.UserID,
			Description:  r.Description,
			Status:       string(r.Status),
			SubmittedAt:  r.SubmittedAt,
			City:         r.Location.City,
			Neighborhood: r.Location.Neighborhood,
			Street:       r.Location.Street,
			Response:     r.PrefectureResponse,
		})
	}

	now := s.now()
	reportCity := city
	if reportCity == "" {
		reportCity = "all"
	}

	return &Report{
		Number:      now.Format("20060102-1504"),
		GeneratedAt: now.Format(time.RFC3339),
		City:        reportCity,
		Total:       len(rows),
		Rows:        rows,
	}, nil
}
