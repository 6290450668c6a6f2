package domain

import "fmt"

// ValidateFilter enforces the filter's structural rules: the decoded
// filter value must be a JSON object; each key's value, if present, must be
// an array of primitives (string, number, boolean); null elements and
// nested objects/arrays are rejected. A nil map (absent/empty filter) is
// always valid and means "accept all".
func ValidateFilter(raw map[string]any) (Filter, error) {
	if raw == nil {
		return nil, nil
	}
	out := make(Filter, len(raw))
	for key, value := range raw {
		arr, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("filter key %q: value must be an array", key)
		}
		elems := make([]any, 0, len(arr))
		for i, elem := range arr {
			switch elem.(type) {
			case string, float64, bool:
				elems = append(elems, elem)
			case nil:
				return nil, fmt.Errorf("filter key %q: element %d must not be null", key, i)
			default:
				return nil, fmt.Errorf("filter key %q: element %d must be a string, number, or boolean", key, i)
			}
		}
		out[key] = elems
	}
	return out, nil
}
