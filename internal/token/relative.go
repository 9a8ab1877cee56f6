package token

// Relative encodes sorted tokens as the LSP integer array: for each token,
// the line delta, the start delta (absolute when the line changed), the
// length, the type and the modifier bitmask.
func Relative(tokens []Encoded) []uint32 {
	data := make([]uint32, 0, len(tokens)*5)
	var line, start uint32
	for _, t := range tokens {
		deltaLine := t.Line - line
		deltaStart := t.StartChar
		if deltaLine == 0 {
			deltaStart = t.StartChar - start
		}
		data = append(data, deltaLine, deltaStart, t.Length, t.Type, t.Modifiers)
		line = t.Line
		start = t.StartChar
	}
	return data
}

// InLines keeps the tokens whose line lies in [first, last].
func InLines(tokens []Encoded, first, last uint32) []Encoded {
	var out []Encoded
	for _, t := range tokens {
		if t.Line >= first && t.Line <= last {
			out = append(out, t)
		}
	}
	return out
}

// Edit replaces DeleteCount integers at Start with Data.
type Edit struct {
	Start       uint32
	DeleteCount uint32
	Data        []uint32
}

// Delta computes a single edit turning prev into next by trimming their
// common prefix and suffix. It returns no edits when they are equal.
func Delta(prev, next []uint32) []Edit {
	prefix := 0
	for prefix < len(prev) && prefix < len(next) && prev[prefix] == next[prefix] {
		prefix++
	}
	if prefix == len(prev) && prefix == len(next) {
		return nil
	}

	suffix := 0
	for suffix < len(prev)-prefix && suffix < len(next)-prefix &&
		prev[len(prev)-1-suffix] == next[len(next)-1-suffix] {
		suffix++
	}

	return []Edit{{
		Start:       uint32(prefix),
		DeleteCount: uint32(len(prev) - prefix - suffix),
		Data:        append([]uint32(nil), next[prefix:len(next)-suffix]...),
	}}
}
