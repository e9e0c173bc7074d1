package models

type Agent struct {
	AgentID string `json:"agentId"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Active  bool   `json:"active"`
}

// DefaultAgents are the demo agents seeded when no active agent exists.
func DefaultAgents() []Agent {
	return []Agent{
		{AgentID: "agent_1001", Name: "Alice", Phone: "9999990001", Active: true},
		{AgentID: "agent_1002", Name: "Bob", Phone: "9999990002", Active: true},
		{AgentID: "agent_1003", Name: "Charlie", Phone: "9999990003", Active: true},
	}
}
