package chat

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Shape is the classified form of a webhook reply body. It is one of
// EmbeddedDocument, Structured or Unrecognized.
type Shape interface {
	shape()
}

// EmbeddedDocument is an HTML wrapper whose reply text sits in an iframe's
// srcdoc attribute.
type EmbeddedDocument struct {
	Raw string
}

// Structured is a JSON reply exposing the text as "output".
type Structured struct {
	Output string
}

type Unrecognized struct{}

func (EmbeddedDocument) shape() {}
func (Structured) shape()       {}
func (Unrecognized) shape()     {}

// Classify maps a raw reply body onto a Shape. It never fails.
func Classify(body []byte) Shape {
	if output, ok := structuredOutput(body); ok {
		return Structured{Output: output}
	}
	text := string(body)
	lower := strings.ToLower(text)
	if strings.Contains(lower, "<iframe") && strings.Contains(lower, "srcdoc=") {
		return EmbeddedDocument{Raw: text}
	}
	return Unrecognized{}
}

// Extract returns the reply text carried by shape, substituting
// FallbackReply when there is none.
func Extract(shape Shape) string {
	var text string
	switch s := shape.(type) {
	case EmbeddedDocument:
		text = srcdoc(s.Raw)
	case Structured:
		text = s.Output
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackReply
	}
	return text
}

// structuredOutput accepts {"output": "..."} and the n8n "all items" form
// [{"output": "..."}], reading the first item.
func structuredOutput(body []byte) (string, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", false
	}

	var item map[string]json.RawMessage
	switch body[0] {
	case '{':
		if err := json.Unmarshal(body, &item); err != nil {
			return "", false
		}
	case '[':
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil || len(items) == 0 {
			return "", false
		}
		item = items[0]
	default:
		return "", false
	}

	raw, ok := item["output"]
	if !ok {
		return "", false
	}
	var output string
	if err := json.Unmarshal(raw, &output); err != nil {
		return "", false
	}
	return output, true
}

// srcdoc returns the entity-decoded srcdoc of the first iframe in doc.
func srcdoc(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) != atom.Iframe || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "srcdoc" {
					return string(val)
				}
				if !more {
					break
				}
			}
		}
	}
}
