package fetch

import "time"

// Result is the stable wire contract every fetch operation returns. Callers
// must check Success; a degraded system returns Success=false with an empty
// data list, never fabricated records.
type Result struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Source    string      `json:"source,omitempty"`
	Cached    bool        `json:"cached"`
	Error     *string     `json:"error"`
	Timestamp string      `json:"timestamp"`
}

func successResult(data interface{}, source string, cached bool) Result {
	return Result{
		Success:   true,
		Data:      data,
		Source:    source,
		Cached:    cached,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func failureResult(errMsg string) Result {
	return Result{
		Success:   false,
		Data:      []interface{}{},
		Error:     &errMsg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
