package messages

// AgentLocation is a position fix pushed by telematics devices to the agent locations topic.
// Timestamp is in milliseconds since the epoch, like the browser geolocation API.
type AgentLocation struct {
	AgentID   string  `json:"agent_id"`
	OrderID   string  `json:"order_id,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Heading   float64 `json:"heading,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
}
