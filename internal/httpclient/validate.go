package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pulsefeed/coinpulse/internal/provider"
)

// rssMarkers are the tags that identify an RSS/Atom feed body. Feed bodies
// are accepted without JSON parsing.
var rssMarkers = [][]byte{
	[]byte("<item"),
	[]byte("<entry"),
	[]byte("<rss"),
	[]byte("<feed"),
}

// ValidateResponse applies the acceptance rules every upstream response must
// pass before its data is treated as real:
//
//   - only HTTP 200 is acceptable; 206 Partial Content is a failure
//   - a zero-byte body is a failure regardless of status
//   - the body must parse as JSON, or carry recognizable RSS/Atom markers
//   - JSON payloads must be non-trivially populated: lists non-empty,
//     objects with at least one key and no truthy "error" field
func ValidateResponse(providerID string, statusCode int, body []byte) error {
	if statusCode == http.StatusTooManyRequests {
		return &provider.ProviderError{
			Provider:   providerID,
			Code:       provider.ErrCodeRateLimit,
			Message:    "upstream rate limit (HTTP 429)",
			HTTPStatus: statusCode,
		}
	}

	if statusCode != http.StatusOK {
		return &provider.ProviderError{
			Provider:   providerID,
			Code:       provider.ErrCodeHTTPStatus,
			Message:    fmt.Sprintf("unacceptable HTTP status %d", statusCode),
			HTTPStatus: statusCode,
		}
	}

	if len(body) == 0 {
		return &provider.ProviderError{
			Provider:   providerID,
			Code:       provider.ErrCodeEmptyResponse,
			Message:    "empty response body",
			HTTPStatus: statusCode,
		}
	}

	if looksLikeFeed(body) {
		return nil
	}

	return validateJSONPayload(providerID, body)
}

func looksLikeFeed(body []byte) bool {
	for _, marker := range rssMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

func validateJSONPayload(providerID string, body []byte) error {
	malformed := func(msg string) error {
		return &provider.ProviderError{
			Provider: providerID,
			Code:     provider.ErrCodeMalformed,
			Message:  msg,
		}
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return malformed(fmt.Sprintf("body is not valid JSON: %v", err))
	}

	switch v := payload.(type) {
	case []interface{}:
		if len(v) == 0 {
			return malformed("empty list payload")
		}
	case map[string]interface{}:
		if len(v) == 0 {
			return malformed("empty object payload")
		}
		if errVal, ok := v["error"]; ok && truthy(errVal) {
			return malformed(fmt.Sprintf("payload carries error field: %v", errVal))
		}
	}

	return nil
}

// truthy mirrors the loose semantics upstream APIs use for their error
// fields: false, 0, "", "false", and null are not errors.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != "" && val != "false" && val != "0"
	default:
		return true
	}
}
