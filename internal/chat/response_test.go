package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Shape
	}{
		{
			name: "iframe wrapper",
			body: `<iframe srcdoc="hello"></iframe>`,
			want: EmbeddedDocument{Raw: `<iframe srcdoc="hello"></iframe>`},
		},
		{
			name: "uppercase iframe",
			body: `<IFRAME SRCDOC="hello">`,
			want: EmbeddedDocument{Raw: `<IFRAME SRCDOC="hello">`},
		},
		{name: "object", body: `{"output":"hi there"}`, want: Structured{Output: "hi there"}},
		{name: "object with whitespace", body: "\n {\"output\": \"hi\"} \n", want: Structured{Output: "hi"}},
		{
			name: "output mentioning an iframe",
			body: `{"output":"Embed it with <iframe srcdoc=\"x\"> in your page"}`,
			want: Structured{Output: `Embed it with <iframe srcdoc="x"> in your page`},
		},
		{name: "all items array", body: `[{"output":"first"},{"output":"second"}]`, want: Structured{Output: "first"}},
		{name: "empty array", body: `[]`, want: Unrecognized{}},
		{name: "object without output", body: `{"message":"hi"}`, want: Unrecognized{}},
		{name: "non-string output", body: `{"output":42}`, want: Unrecognized{}},
		{name: "iframe without srcdoc", body: `<iframe src="https://example.com"></iframe>`, want: Unrecognized{}},
		{name: "plain text", body: `hello`, want: Unrecognized{}},
		{name: "empty", body: ``, want: Unrecognized{}},
		{name: "truncated json", body: `{"output":`, want: Unrecognized{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify([]byte(tt.body)))
		})
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		want  string
	}{
		{name: "structured", shape: Structured{Output: "  hi there \n"}, want: "hi there"},
		{name: "blank structured", shape: Structured{Output: "   "}, want: FallbackReply},
		{name: "unrecognized", shape: Unrecognized{}, want: FallbackReply},
		{name: "nil shape", shape: nil, want: FallbackReply},
		{
			name:  "decodes entities",
			shape: EmbeddedDocument{Raw: `<div><iframe srcdoc="&lt;p&gt;Tune your &#39;base&#39;&lt;/p&gt;"></iframe></div>`},
			want:  "<p>Tune your 'base'</p>",
		},
		{
			name:  "single quoted attribute",
			shape: EmbeddedDocument{Raw: `<iframe title='reply' srcdoc='Stance: 15/-15'>`},
			want:  "Stance: 15/-15",
		},
		{
			name:  "first iframe wins",
			shape: EmbeddedDocument{Raw: `<iframe srcdoc="one"></iframe><iframe srcdoc="two"></iframe>`},
			want:  "one",
		},
		{
			name:  "empty srcdoc",
			shape: EmbeddedDocument{Raw: `<iframe srcdoc=""></iframe>`},
			want:  FallbackReply,
		},
		{
			name:  "srcdoc on another element",
			shape: EmbeddedDocument{Raw: `<div srcdoc="nope"></div><iframe>`},
			want:  FallbackReply,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.shape))
		})
	}
}
