package types

const (
	StatusSuccess = "success"
	// StatusFail marks client errors (4xx).
	StatusFail = "fail"
	// StatusError marks server errors (5xx).
	StatusError = "error"
)

type SuccessEnvelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
	// Detail is only populated in development.
	Detail any `json:"detail,omitempty"`
}
