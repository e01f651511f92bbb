package models

// Status is the two-valued on/off state of a controllable device.
type Status string

const (
	StatusOn  Status = "ON"
	StatusOff Status = "OFF"
)

// Valid reports whether s is one of the two recognized values.
func (s Status) Valid() bool {
	return s == StatusOn || s == StatusOff
}

// ControlRequest is the JSON body of a device control command.
type ControlRequest struct {
	Device string `json:"device"`
	Status Status `json:"status"`
}

// ControlResponse is the richer control-endpoint response shape. Hardware
// bridges that only acknowledge with an HTTP status leave all fields unset.
type ControlResponse struct {
	Success bool   `json:"success"`
	Device  string `json:"device,omitempty"`
	Status  Status `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Time    string `json:"time,omitempty"`
}
