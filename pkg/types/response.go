package types

// Envelope is the wire shape shared by every API response. Error is false on
// success; Data carries either the payload or field-level error details.
type Envelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}
