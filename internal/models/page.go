package models

// Page is the paginated result envelope consumed by the dashboard table
// widgets: content plus enough metadata to render page controls.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// NewPage wraps content with pagination metadata. totalPages is the ceiling
// of totalElements/size; an empty result still reports page zero.
func NewPage[T any](content []T, number, size int, totalElements int64) Page[T] {
	totalPages := 0
	if size > 0 {
		totalPages = int((totalElements + int64(size) - 1) / int64(size))
	}
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		Content:       content,
		TotalPages:    totalPages,
		TotalElements: totalElements,
		Number:        number,
		Size:          size,
	}
}

// SensorReading is one row of the local sensor log.
type SensorReading struct {
	ID          string  `json:"id"`
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Light       float64 `json:"light"`
	CB1         float64 `json:"cb1"`
	CB2         float64 `json:"cb2"`
	CB3         float64 `json:"cb3"`
}

// ActionRecord is one row of the local device action log.
type ActionRecord struct {
	ID     string `json:"id"`
	Device string `json:"device"`
	Status Status `json:"status"`
	Time   string `json:"time"`
}
