package objectdb

import (
	"fmt"
	"strings"
)

// compareValues orders JSON-shaped scalars: nil first; numbers, strings and
// booleans (false before true) compare within their own type. Mixed types
// fall back to their printed form.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	fa, aIsNumber := toFloat(a)
	fb, bIsNumber := toFloat(b)
	if aIsNumber && bIsNumber {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}

	sa, aIsString := a.(string)
	sb, bIsString := b.(string)
	if aIsString && bIsString {
		return strings.Compare(sa, sb)
	}

	ba, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
