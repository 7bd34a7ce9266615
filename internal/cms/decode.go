package cms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// pagination mirrors Strapi's meta.pagination block.
type pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// envelope is the Strapi response wrapper: a data payload (single object or
// array, version dependent) plus pagination metadata.
type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		Pagination pagination `json:"pagination"`
	} `json:"meta"`
}

// decodeList unwraps a Strapi collection response into flattened entries.
// An empty or non-envelope body is a permanent decode failure.
func decodeList(op string, body []byte) ([]map[string]any, pagination, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, pagination{}, &Error{Op: op, Err: fmt.Errorf("%w: empty body", ErrDecode)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, pagination{}, &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, env.Meta.Pagination, nil
	}

	var raw []map[string]any
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, pagination{}, &Error{Op: op, Err: fmt.Errorf("%w: data is not an array: %v", ErrDecode, err)}
	}

	entries := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, flattenEntry(r))
	}
	return entries, env.Meta.Pagination, nil
}

// decodeOne unwraps a Strapi single-record response into a flattened entry.
func decodeOne(op string, body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: empty body", ErrDecode)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &Error{Op: op, Err: ErrNotFound}
	}

	var raw map[string]any
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: data is not an object: %v", ErrDecode, err)}
	}
	return flattenEntry(raw), nil
}

// flattenEntry normalizes the two Strapi record shapes into one flat map:
// v4 nests fields under "attributes" with a numeric "id", v5 is flat with a
// string "documentId". The flat map always carries the record id under "id",
// preferring documentId when both are present.
func flattenEntry(raw map[string]any) map[string]any {
	entry := make(map[string]any, len(raw))

	if attrs, ok := raw["attributes"].(map[string]any); ok {
		for k, v := range attrs {
			entry[k] = v
		}
	} else {
		for k, v := range raw {
			if k == "attributes" {
				continue
			}
			entry[k] = v
		}
	}

	entry["id"] = entryID(raw)
	return entry
}

// entryID extracts the record identifier as a string, whatever shape the CMS
// used: v5 string documentId, v4 numeric id, or a pre-flattened string id.
func entryID(raw map[string]any) string {
	if doc, ok := raw["documentId"].(string); ok && doc != "" {
		return doc
	}
	switch id := raw["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case json.Number:
		return id.String()
	}
	return ""
}
