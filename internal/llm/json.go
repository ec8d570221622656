package llm

import "strings"

// ExtractJSON pulls the first complete JSON object or array out of a model
// reply, tolerating surrounding prose and markdown code fences.
func ExtractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if fenced, ok := fenceBody(s); ok {
		s = fenced
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return "", ErrNoJSON
	}
	if end := matchingClose(s, start); end != -1 {
		return s[start : end+1], nil
	}

	// unbalanced: fall back to the widest brace span
	open, closer := s[start], byte('}')
	if open == '[' {
		closer = ']'
	}
	if end := strings.LastIndexByte(s, closer); end > start {
		return s[start : end+1], nil
	}
	return "", ErrNoJSON
}

// fenceBody returns the content of the first ``` block
func fenceBody(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open == -1 {
		return "", false
	}
	rest := s[open+3:]
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return "", false
	}
	rest = rest[nl+1:]
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

// matchingClose finds the bracket closing s[start], skipping string literals
func matchingClose(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
