package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ContentKind tags the wire shape an assistant message content arrived in.
type ContentKind int

const (
	// ContentAbsent covers null, missing and non-text scalar content.
	ContentAbsent ContentKind = iota
	// ContentPlainText is the common case: a single JSON string.
	ContentPlainText
	// ContentChunkList is an array of content parts.
	ContentChunkList
	// ContentStructuredObject is a single structured part.
	ContentStructuredObject
)

// Content holds assistant message content in whichever shape the provider
// returned it. Providers are inconsistent here: most send a plain string, some
// send a list of typed parts, a few send a single object. Content classifies
// the raw JSON once at decode time and extracts text on demand via Text().
type Content struct {
	kind   ContentKind
	text   string
	chunks []json.RawMessage
	raw    json.RawMessage
}

// NewTextContent builds plain string content, mainly for tests and fixtures.
func NewTextContent(s string) Content {
	raw, _ := json.Marshal(s)
	return Content{kind: ContentPlainText, text: s, raw: raw}
}

// Kind reports how the content was classified at decode time.
func (c Content) Kind() ContentKind {
	return c.kind
}

// UnmarshalJSON classifies the raw value by shape. It never rejects valid
// JSON: scalars that carry no text (numbers, booleans, null) classify as
// absent rather than erroring out.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{kind: ContentAbsent}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = Content{kind: ContentPlainText, text: s, raw: cloneRaw(trimmed)}
	case '[':
		var chunks []json.RawMessage
		if err := json.Unmarshal(trimmed, &chunks); err != nil {
			return err
		}
		*c = Content{kind: ContentChunkList, chunks: chunks, raw: cloneRaw(trimmed)}
	case '{':
		if !json.Valid(trimmed) {
			return errors.New("chat: invalid content object")
		}
		*c = Content{kind: ContentStructuredObject, raw: cloneRaw(trimmed)}
	default:
		*c = Content{kind: ContentAbsent}
	}
	return nil
}

// MarshalJSON re-emits the original wire shape. Absent content marshals as
// null regardless of the scalar it came from.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.kind == ContentAbsent || len(c.raw) == 0 {
		return []byte("null"), nil
	}
	return c.raw, nil
}

// Text extracts the assistant text from whichever shape the content took.
// Plain strings pass through verbatim. Chunk lists concatenate their parts in
// order with no separator. Structured objects yield their "text" field when it
// is a string, otherwise their compact JSON. Absent content yields "".
// Extraction is pure: calling it twice gives the same result.
func (c Content) Text() string {
	switch c.kind {
	case ContentPlainText:
		return c.text
	case ContentChunkList:
		var b strings.Builder
		for _, chunk := range c.chunks {
			b.WriteString(renderChunk(chunk))
		}
		return b.String()
	case ContentStructuredObject:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(c.raw, &obj); err == nil {
			if s, ok := stringField(obj, "text"); ok {
				return s
			}
		}
		return compactJSON(c.raw)
	default:
		return ""
	}
}

// renderChunk turns one list element into text. Structured chunks with a
// string "text" field yield it; output_text chunks carry their payload under
// "content"; "message" chunks carry it under "text" and are covered by the
// first rule. Everything else renders as a string: JSON string chunks as
// their value, the rest as compact JSON.
func renderChunk(raw json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		if s, ok := stringField(obj, "text"); ok {
			return s
		}
		if typ, ok := stringField(obj, "type"); ok && typ == "output_text" {
			if s, ok := stringField(obj, "content"); ok {
				return s
			}
		}
		return compactJSON(raw)
	}
	if s, ok := decodeString(raw); ok {
		return s
	}
	return compactJSON(raw)
}

func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	return decodeString(raw)
}

// decodeString decodes raw only when it is a JSON string. The quote check
// matters: json.Unmarshal accepts null into a string target without error.
func decodeString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func cloneRaw(raw []byte) json.RawMessage {
	return append(json.RawMessage(nil), raw...)
}
