package server

import (
	"fmt"
	"strconv"
)

// stringParam returns the first of names present in params, formatted as a
// string, or defaultVal. Names are aliases in order of preference.
func stringParam(params map[string]interface{}, defaultVal string, names ...string) string {
	for _, key := range names {
		v, ok := params[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

// intParam returns the first of names that holds a number or a numeric
// string, or defaultVal.
func intParam(params map[string]interface{}, defaultVal int, names ...string) int {
	for _, key := range names {
		switch n := params[key].(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return i
			}
		}
	}
	return defaultVal
}
