package dto

import "encoding/json"

// CreateJobRequest payload. Data is stored as-is.
type CreateJobRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ClearJobsResponse reports how many completed jobs were removed.
type ClearJobsResponse struct {
	Removed int `json:"removed"`
}
