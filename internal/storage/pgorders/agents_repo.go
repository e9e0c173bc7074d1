package pgorders

import (
	"context"

	"github.com/BearBump/courierlive/internal/models"
	"github.com/jackc/pgx/v5"
)

func (s *Storage) ListActiveAgents(ctx context.Context) ([]models.Agent, error) {
	rows, err := s.db.Query(ctx, `SELECT agent_id, name, phone, active FROM agents WHERE active ORDER BY agent_id`)
	if err != nil {
		return nil, mapErr(err, "select agents")
	}
	defer rows.Close()

	out := make([]models.Agent, 0)
	for rows.Next() {
		var a models.Agent
		if err := rows.Scan(&a.AgentID, &a.Name, &a.Phone, &a.Active); err != nil {
			return nil, mapErr(err, "scan agent")
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, mapErr(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) UpsertAgents(ctx context.Context, agents []models.Agent) error {
	if len(agents) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range agents {
		batch.Queue(`
INSERT INTO agents (agent_id, name, phone, active)
VALUES ($1,$2,$3,$4)
ON CONFLICT (agent_id)
DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone, active = EXCLUDED.active
`, a.AgentID, a.Name, a.Phone, a.Active)
	}
	return mapErr(s.db.SendBatch(ctx, batch).Close(), "upsert agents")
}
