package council

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// RawKey holds the original text when a response could not be decoded.
const RawKey = "_raw"

// ExtractText returns the assistant text from an /api/chat response
// envelope. A missing message or content yields "".
func ExtractText(raw []byte) string {
	content := gjson.GetBytes(raw, "message.content")
	switch content.Type {
	case gjson.String:
		return content.Str
	case gjson.Null:
		return ""
	default:
		return content.Raw
	}
}

// ParseVerdict decodes model text into a JSON object. It never fails:
//  1. the trimmed text is decoded strictly;
//  2. otherwise the span from the first '{' to the last '}' is decoded;
//  3. otherwise the result is {"_raw": <trimmed text>}.
//
// Only a JSON object counts as a successful decode; null, arrays and
// scalars fall through to the next step.
func ParseVerdict(text string) map[string]any {
	s := strings.TrimSpace(text)
	if m, ok := decodeObject(s); ok {
		return m
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		if m, ok := decodeObject(s[start : end+1]); ok {
			return m
		}
	}
	return map[string]any{RawKey: s}
}

// IsRaw reports whether a verdict is the terminal fallback.
func IsRaw(fields map[string]any) bool {
	_, ok := fields[RawKey]
	return ok && len(fields) == 1
}

func decodeObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	if m == nil {
		return nil, false
	}
	return m, true
}
