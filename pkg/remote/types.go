package remote

// Handle identifies a node created on the remote server
type Handle uint64

// NodeRequest is the body of a node creation call
type NodeRequest struct {
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// NodeResponse is the server's answer to a node creation call
type NodeResponse struct {
	ID         uint64         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// EdgeRequest is the body of a relationship creation call
type EdgeRequest struct {
	FromNodeID uint64         `json:"from_node_id"`
	ToNodeID   uint64         `json:"to_node_id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Weight     float64        `json:"weight"`
}

// EdgeResponse is the server's answer to a relationship creation call
type EdgeResponse struct {
	ID         uint64  `json:"id"`
	FromNodeID uint64  `json:"from_node_id"`
	ToNodeID   uint64  `json:"to_node_id"`
	Type       string  `json:"type"`
	Weight     float64 `json:"weight"`
}

// ErrorResponse is the error body returned by the server
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
