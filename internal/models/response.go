package models

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Message: message}
}

// AuthResponse is returned after a completed OAuth login when no client
// redirect is configured.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UploadedPhotos holds the URLs produced by the upload pipeline for an
// experience.
type UploadedPhotos struct {
	FoodPhotoURL   string `json:"foodPhotoUrl,omitempty"`
	PersonPhotoURL string `json:"personPhotoUrl,omitempty"`
}
