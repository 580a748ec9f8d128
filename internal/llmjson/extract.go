// Package llmjson recovers JSON objects from free-form model replies.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// 非贪婪匹配，多个代码块时只取第一个。
var fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ErrMalformedResponse matches every *MalformedResponseError.
var ErrMalformedResponse = errors.New("malformed model response")

// MalformedResponseError reports a reply that did not yield a JSON object.
type MalformedResponseError struct {
	Candidate string
	Err       error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return ErrMalformedResponse.Error()
	}
	return fmt.Sprintf("%s: %v", ErrMalformedResponse, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// ExtractJSON returns the best candidate substring for a JSON object:
// the interior of a fenced block, else the span from the first '{' to the last '}',
// else the trimmed input.
func ExtractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if m := fencedObject.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// Parse decodes candidate as a JSON object.
func Parse(candidate string) (Object, error) {
	var obj Object
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, &MalformedResponseError{Candidate: candidate, Err: err}
	}
	if obj == nil {
		return nil, &MalformedResponseError{Candidate: candidate, Err: errors.New("top-level value is not an object")}
	}
	return obj, nil
}

// ParseReply is ExtractJSON followed by Parse.
func ParseReply(raw string) (Object, error) {
	return Parse(ExtractJSON(raw))
}
