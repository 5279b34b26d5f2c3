// Package attrs inspects the [key1, value1, key2, value2, ...] attribute
// slices passed to structured log calls, so audit emission can lift
// individual fields out of log attributes without a second parameter list.
package attrs

// ExtractString returns the string value for key in a key-value attribute
// slice, or "" when the key is absent or its value is not a string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}
