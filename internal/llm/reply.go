package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// ReplyKind tags the shape a webhook reply arrived in.
type ReplyKind int

const (
	// ReplyText is a bare JSON string.
	ReplyText ReplyKind = iota
	// ReplyResponse is an object with a "response" field.
	ReplyResponse
	// ReplyMessage is an object with a "message" field.
	ReplyMessage
	// ReplyOutput is an object with an "output" field.
	ReplyOutput
	// ReplyUnknown is any other body, kept as its JSON text.
	ReplyUnknown
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyText:
		return "text"
	case ReplyResponse:
		return "response"
	case ReplyMessage:
		return "message"
	case ReplyOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Reply is a normalized webhook reply.
type Reply struct {
	Kind ReplyKind
	Text string
}

// replyFields lists the object fields that carry reply text, in priority order.
var replyFields = []struct {
	key  string
	kind ReplyKind
}{
	{"response", ReplyResponse},
	{"message", ReplyMessage},
	{"output", ReplyOutput},
}

var (
	errEmptyReply = errors.New("empty reply body")
	errNullReply  = errors.New("null reply body")
)

// ParseReply normalizes a decoded webhook body into reply text.
//
// A field only matches when its value is truthy (non-empty string, non-zero
// number, true, any object or array); otherwise the next field is tried and
// finally the compact JSON of the whole body is returned.
func ParseReply(raw []byte) (Reply, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return Reply{}, errEmptyReply
	}
	if !json.Valid(body) {
		return Reply{}, errors.New("reply body is not valid JSON")
	}

	switch body[0] {
	case '"':
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return Reply{}, err
		}
		return Reply{Kind: ReplyText, Text: s}, nil

	case 'n':
		return Reply{}, errNullReply

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return Reply{}, err
		}
		for _, f := range replyFields {
			v, ok := fields[f.key]
			if ok && truthy(v) {
				return Reply{Kind: f.kind, Text: rawText(v)}, nil
			}
		}
	}

	return Reply{Kind: ReplyUnknown, Text: compact(body)}, nil
}

func truthy(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return false
	}

	switch v[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		var s string
		return json.Unmarshal(v, &s) == nil && s != ""
	default:
		f, err := strconv.ParseFloat(string(v), 64)
		return err == nil && f != 0
	}
}

func rawText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return compact(v)
}

func compact(v []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}
