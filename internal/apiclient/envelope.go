package apiclient

// Envelope is the {"data": ...} wrapper used by resource endpoints.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// TokenResponse is the body returned by session creation.
type TokenResponse struct {
	Token string `json:"token"`
}
