package commas

import "strconv"

type integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// Int formats n with thousands separators, e.g. 1400000 -> "1,400,000".
func Int[T integer](n T) string {
	if n < 0 {
		return String(strconv.FormatInt(int64(n), 10))
	}
	return String(strconv.FormatUint(uint64(n), 10))
}

func String(s string) string {
	if s == "" {
		return s
	}

	var neg bool
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	for pos := len(s) - 3; pos > 0; pos -= 3 {
		s = s[:pos] + "," + s[pos:]
	}

	if neg {
		return "-" + s
	}
	return s
}
