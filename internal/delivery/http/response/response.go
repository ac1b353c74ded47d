package response

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports service and cache availability.
type HealthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
}
