package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeLink serializes a link snapshot for the cache.
func EncodeLink(link *Link) (string, error) {
	data, err := json.Marshal(link)
	if err != nil {
		return "", fmt.Errorf("failed to marshal link %s: %w", link.Code, err)
	}
	return string(data), nil
}

// DecodeCachedLink is the only place cache payloads are interpreted.
//
// A JSON object is decoded as a Link. A JSON string holding serialized JSON is
// unwrapped and decoded. Anything else is taken as the bare target URL.
// Empty input and snapshots without a URL decode to nil, which callers treat as a miss.
func DecodeCachedLink(raw string) *Link {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var link Link
	if err := json.Unmarshal([]byte(raw), &link); err == nil {
		if link.URL == "" {
			return nil
		}
		return &link
	}

	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err == nil {
		return DecodeCachedLink(inner)
	}

	return &Link{URL: raw}
}
