package httpapi

import (
	"net/http"

	"github.com/BearBump/courierlive/internal/services/agents"
)

type agentsHandler struct {
	svc *agents.Service
}

func (h agentsHandler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListAgents(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
