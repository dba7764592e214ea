package models

// Error codes returned by the auth service.
const (
	ErrCodeBadRequest        = 40000
	ErrCodeUnauthorized      = 40100
	ErrCodeInvalidToken      = 40101
	ErrCodeExpiredToken      = 40102
	ErrCodeInvalidCredential = 40103
	ErrCodeNotFound          = 40400
	ErrCodeUserExists        = 40900
	ErrCodeEmailExists       = 40901
	ErrCodeInternal          = 50000
)

// ErrorResponse is the JSON error body used by the auth service.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
