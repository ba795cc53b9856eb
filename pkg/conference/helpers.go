package conference

import "strings"

// Do a fuzzy find for a codec in a list. Mime types compare
// case-insensitively so advertisements from mixed-case endpoints still match.
func containsCodec(codecs []Codec, needle Codec) bool {
	for _, c := range codecs {
		if strings.EqualFold(string(c), string(needle)) {
			return true
		}
	}
	return false
}

// intersectOrdered keeps every codec of order that is present in allowed,
// preserving order's sequence.
func intersectOrdered(order, allowed []Codec) []Codec {
	out := make([]Codec, 0, len(order))
	for _, c := range order {
		if containsCodec(allowed, c) {
			out = append(out, c)
		}
	}
	return out
}

func dedupeCodecs(codecs []Codec) []Codec {
	out := make([]Codec, 0, len(codecs))
	for _, c := range codecs {
		if !containsCodec(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func removeCodec(codecs []Codec, needle Codec) []Codec {
	out := make([]Codec, 0, len(codecs))
	for _, c := range codecs {
		if !strings.EqualFold(string(c), string(needle)) {
			out = append(out, c)
		}
	}
	return out
}

func copyCodecs(codecs []Codec) []Codec {
	if codecs == nil {
		return nil
	}
	out := make([]Codec, len(codecs))
	copy(out, codecs)
	return out
}
