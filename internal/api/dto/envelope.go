package dto

// Envelope is the single response shape of every endpoint.
type Envelope struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Code     string         `json:"code,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Count    *int           `json:"count,omitempty"`
	Total    *int           `json:"total,omitempty"`
	Page     *int           `json:"page,omitempty"`
	PageSize *int           `json:"pageSize,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// OK wraps a single resource.
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// List wraps a collection together with its item count.
func List[T any](items []T) Envelope {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	return Envelope{Success: true, Data: items, Count: &count}
}

// Message acknowledges an action without a resource body.
func Message(message string, data any) Envelope {
	return Envelope{Success: true, Data: data, Message: message}
}

// Failure describes an error response.
func Failure(message, code string, details map[string]any) Envelope {
	return Envelope{Success: false, Error: message, Code: code, Details: details}
}
