package msgpack

import "unicode"

// naming.go implements the property-name normalization policies.

// normalizeName applies policy to name, matching the exact camelCase and
// PascalCase rules specified: spaces and non-letters pass through
// untouched, and an empty input passes through unchanged.
func normalizeName(name string, policy NamingPolicy) string {
	if name == "" {
		return name
	}
	switch policy {
	case NamingCamelCase:
		return camelCase(name)
	case NamingPascalCase:
		return pascalCase(name)
	default:
		return name
	}
}

// pascalCase uppercases only the first code point.
func pascalCase(name string) string {
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// camelCase lowercases the leading run of uppercase letters, except it
// keeps the final uppercase letter of that run uppercase when the very
// next character is lowercase: "URLValue" -> "urlValue", "URL" -> "url",
// "MyURL" -> "myURL".
func camelCase(name string) string {
	r := []rune(name)
	if !unicode.IsUpper(r[0]) {
		return name
	}

	runEnd := 0
	for runEnd < len(r) && unicode.IsUpper(r[runEnd]) {
		runEnd++
	}

	// runEnd now points just past the leading uppercase run (or at the
	// whole string, if it is all uppercase).
	lowerThrough := runEnd
	if runEnd < len(r) && runEnd > 1 && unicode.IsLower(r[runEnd]) {
		// The run is followed by a lowercase letter: keep the last
		// uppercase letter of the run as the start of the next word.
		lowerThrough = runEnd - 1
	}

	out := make([]rune, len(r))
	copy(out, r)
	for i := 0; i < lowerThrough; i++ {
		out[i] = unicode.ToLower(out[i])
	}
	return string(out)
}
