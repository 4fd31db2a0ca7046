package domain

// CloneValue deep-copies a decoded JSON value (maps, slices, scalars).
// Unknown types are returned as-is; callers only feed it values produced
// by encoding/json.
func CloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = CloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = CloneValue(val)
		}
		return out
	default:
		return v
	}
}
