package agents

import (
	"context"
	"log/slog"

	"github.com/BearBump/courierlive/internal/models"
)

type Repository interface {
	ListActiveAgents(ctx context.Context) ([]models.Agent, error)
	UpsertAgents(ctx context.Context, agents []models.Agent) error
}

type Service struct {
	repo     Repository
	defaults []models.Agent
}

func New(repo Repository) *Service {
	return &Service{repo: repo, defaults: models.DefaultAgents()}
}

// WithDefaults replaces the agents seeded into an empty roster.
func (s *Service) WithDefaults(agents []models.Agent) *Service {
	s.defaults = agents
	return s
}

// ListAgents returns the active agents. When there are none the default
// roster is upserted first, so an inactive default agent is reactivated.
func (s *Service) ListAgents(ctx context.Context) ([]models.Agent, error) {
	out, err := s.repo.ListActiveAgents(ctx)
	if err != nil {
		return nil, err
	}
	if len(out) > 0 || len(s.defaults) == 0 {
		return out, nil
	}

	if err := s.repo.UpsertAgents(ctx, s.defaults); err != nil {
		return nil, err
	}
	slog.Info("seeded default agents", "count", len(s.defaults))
	return s.repo.ListActiveAgents(ctx)
}
