package stacktrace

import "strings"

const closureMarker = "::{{closure}}"

// CleanName normalizes a symbolized frame name so that all invocations of
// the same logical function produce the same string. Closure wrappers are
// folded into their enclosing named function and trailing hash
// disambiguation suffixes are removed:
//
//	foo::bar::{{closure}}#1        -> foo::bar
//	my_crate::my_fn::h1a2b3c4d5e6f -> my_crate::my_fn
//	main.main.func1                -> main.main
func CleanName(name string) string {
	if pos := strings.Index(name, closureMarker); pos >= 0 {
		name = name[:pos]
	} else if pos := strings.LastIndex(name, "::h"); pos >= 0 &&
		isHex(name[pos+3:]) {
		name = name[:pos]
	} else {
		name = stripClosureSuffix(name)
	}

	for strings.HasSuffix(name, "::") {
		name = name[:len(name)-2]
	}

	for strings.Contains(name, "::::") {
		name = strings.ReplaceAll(name, "::::", "::")
	}

	return name
}

// stripClosureSuffix removes the funcN suffixes the Go compiler appends to
// function literals, so that main.main.func1 and main.main.func1.2 both
// resolve to main.main.
func stripClosureSuffix(name string) string {
	for {
		pos := strings.LastIndex(name, ".")
		if pos < 0 {
			return name
		}

		seg := name[pos+1:]
		if !isClosureSegment(seg) {
			return name
		}

		name = name[:pos]
	}
}

func isClosureSegment(seg string) bool {
	switch {
	case strings.HasPrefix(seg, "func"):
		return isDigits(seg[4:])
	case strings.HasPrefix(seg, "gowrap"):
		return isDigits(seg[6:])
	default:
		return isDigits(seg) && seg != ""
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}

	return true
}
