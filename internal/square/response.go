package square

import (
	"encoding/json"

	"github.com/BrandonGoding/squaresync/internal/catalog"
)

// IDMapping resolves a client-temporary id to the permanent id assigned by
// the remote service during an upsert.
type IDMapping struct {
	ClientObjectID string `json:"client_object_id"`
	ObjectID       string `json:"object_id"`
}

// UpsertResult is the normalized outcome of an upsert call.
type UpsertResult struct {
	Object     *catalog.Object
	IDMappings []IDMapping
}

// Resolve returns the permanent id mapped to the given client-temporary id,
// or "" when the response carried no such mapping. Matching is by id, never
// by position.
func (r *UpsertResult) Resolve(clientObjectID string) string {
	for _, m := range r.IDMappings {
		if m.ClientObjectID == clientObjectID && m.ObjectID != "" {
			return m.ObjectID
		}
	}
	return ""
}

// Normalize extracts (catalog object, id mappings) from an upsert response
// body of unknown shape, in fixed precedence:
//
//  1. top-level "catalog_object" / "id_mappings" keys
//  2. the same keys inside a wrapped "body" map
//  3. a plain map that is itself a catalog object ("type" + "id" present)
//
// It never fails: when nothing matches, both results are zero and the caller
// treats the response as unusable.
func Normalize(payload map[string]any) (*catalog.Object, []IDMapping) {
	if payload == nil {
		return nil, nil
	}

	if hasResultKeys(payload) {
		return decodeObject(payload["catalog_object"]), decodeMappings(payload["id_mappings"])
	}

	if body, ok := payload["body"].(map[string]any); ok && hasResultKeys(body) {
		return decodeObject(body["catalog_object"]), decodeMappings(body["id_mappings"])
	}

	if _, hasType := payload["type"]; hasType {
		if _, hasID := payload["id"]; hasID {
			return decodeObject(payload), nil
		}
	}

	return nil, nil
}

func hasResultKeys(m map[string]any) bool {
	if _, ok := m["catalog_object"]; ok {
		return true
	}
	_, ok := m["id_mappings"]
	return ok
}

// decodeObject converts an arbitrary decoded JSON value into a RawObject via
// a marshal round trip. Returns nil when v is absent or not object-shaped.
func decodeObject(v any) *catalog.Object {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var obj catalog.Object
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	if obj.ID == "" {
		return nil
	}
	return &obj
}

func decodeMappings(v any) []IDMapping {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var mappings []IDMapping
	if err := json.Unmarshal(b, &mappings); err != nil {
		return nil
	}
	return mappings
}
