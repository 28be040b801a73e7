package llm

import "testing"

func TestParseReply(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind ReplyKind
		wantText string
	}{
		{"bare string", `"Y"`, ReplyText, "Y"},
		{"response field", `{"response":"X"}`, ReplyResponse, "X"},
		{"message field", `{"message":"M"}`, ReplyMessage, "M"},
		{"output field", `{"output":"O"}`, ReplyOutput, "O"},
		{"response wins over message", `{"message":"M","response":"R","output":"O"}`, ReplyResponse, "R"},
		{"message wins over output", `{"output":"O","message":"M"}`, ReplyMessage, "M"},
		{"empty response falls through", `{"response":"","output":"O"}`, ReplyOutput, "O"},
		{"null response falls through", `{"response":null,"message":"M"}`, ReplyMessage, "M"},
		{"zero falls through", `{"response":0}`, ReplyUnknown, `{"response":0}`},
		{"number field rendered as json", `{"output":42}`, ReplyOutput, "42"},
		{"object field rendered as json", `{"response":{"text":"hi"}}`, ReplyResponse, `{"text":"hi"}`},
		{"unknown object", `{"foo":"bar"}`, ReplyUnknown, `{"foo":"bar"}`},
		{"unknown object compacted", "{ \"foo\" : \"bar\",\n \"n\": 1 }", ReplyUnknown, `{"foo":"bar","n":1}`},
		{"array", `[{"output":"x"}]`, ReplyUnknown, `[{"output":"x"}]`},
		{"number", `5`, ReplyUnknown, "5"},
		{"escaped string", `"line\nbreak"`, ReplyText, "line\nbreak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParseReply(%s) error: %v", tt.body, err)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}

func TestParseReplyErrors(t *testing.T) {
	for _, body := range []string{"", "   ", "null", "not json", `{"response":`} {
		if _, err := ParseReply([]byte(body)); err == nil {
			t.Errorf("ParseReply(%q) expected error", body)
		}
	}
}
