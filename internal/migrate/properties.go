package migrate

import (
	"context"
	"encoding/json"
	"fmt"
)

// importProperties migrates per-server settings. Prefixes get their own
// table; everything else lands JSON-encoded in server_property. First write
// wins for every key: existing rows are never overwritten.
func (r *Runner) importProperties(ctx context.Context, rep *Report) error {
	props, err := r.src.ServerProperties()
	if err != nil {
		return err
	}

	for _, p := range props {
		if p.Key == "prefixes" {
			prefixes, err := decodePrefixes(p.Value)
			if err != nil {
				return fmt.Errorf("server %d: %w", p.ServerID, err)
			}
			ok, err := r.dst.InsertServerPrefixes(ctx, p.ServerID, prefixes)
			if err != nil {
				return err
			}
			if ok {
				rep.Prefixes++
			} else {
				rep.SkippedPrefixes++
			}
			continue
		}

		value, err := encodeValue(p.Key, p.Value)
		if err != nil {
			return fmt.Errorf("server %d key %q: %w", p.ServerID, p.Key, err)
		}
		ok, err := r.dst.InsertServerProperty(ctx, p.ServerID, p.Key, value)
		if err != nil {
			return err
		}
		if ok {
			rep.Properties++
		} else {
			rep.SkippedProperties++
		}
	}

	return nil
}

// encodeValue normalizes a loosely typed legacy value to the JSON stored in
// server_property. Known keys get their historical re-encoding; anything
// else passes through as a direct JSON encoding of the stored value.
func encodeValue(key string, raw any) (json.RawMessage, error) {
	switch key {
	case "times":
		// Stored as a JSON document in the legacy store; decode and
		// re-encode so malformed entries fail here instead of at read time.
		s, ok := rawText(raw)
		if !ok {
			return nil, fmt.Errorf("times value has unsupported type %T", raw)
		}
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("decode times: %w", err)
		}
		return json.Marshal(v)
	case "commandsonly":
		return json.Marshal(truthy(raw))
	default:
		if b, ok := raw.([]byte); ok {
			return json.Marshal(string(b))
		}
		return json.Marshal(raw)
	}
}

// decodePrefixes parses the legacy prefixes value, a JSON array of strings.
func decodePrefixes(raw any) ([]string, error) {
	s, ok := rawText(raw)
	if !ok {
		return nil, fmt.Errorf("prefixes value has unsupported type %T", raw)
	}
	var prefixes []string
	if err := json.Unmarshal([]byte(s), &prefixes); err != nil {
		return nil, fmt.Errorf("decode prefixes: %w", err)
	}
	return prefixes, nil
}

func rawText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// truthy coerces the loosely typed legacy flag the way the old bot read it:
// non-zero numbers and non-empty strings are true, null is false.
func truthy(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []byte:
		return len(v) != 0
	default:
		return true
	}
}
