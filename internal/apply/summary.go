package apply

import (
	"context"
	"time"

	"go-hrskip-automation/internal/models"
)

// Summary is the per-user overview shown by /status and the stats endpoint.
type Summary struct {
	Total        int                              `json:"total"`
	ByStatus     map[models.ApplicationStatus]int `json:"by_status"`
	Sent         int                              `json:"sent"`
	LastActivity *time.Time                       `json:"last_activity,omitempty"`
}

func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	apps, err := s.store.ListApplications(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Total:        len(apps),
		ByStatus:     make(map[models.ApplicationStatus]int, len(models.AllStatuses)),
		LastActivity: user.Statistics.LastActivity,
	}
	for _, st := range models.AllStatuses {
		sum.ByStatus[st] = 0
	}
	for _, a := range apps {
		sum.ByStatus[a.Status]++
		if a.Details.EmailSent {
			sum.Sent++
		}
	}
	return sum, nil
}

// Applications lists the user's applications, newest first.
func (s *Service) Applications(ctx context.Context, userID string) ([]*models.Application, error) {
	return s.store.ListApplications(ctx, userID)
}

func (s *Service) Application(ctx context.Context, id string) (*models.Application, error) {
	return s.store.GetApplication(ctx, id)
}
