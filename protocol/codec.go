package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mding5692/videre-server/domain"
)

type wireMessage struct {
	Header  *domain.Header `json:"Header"`
	Payload *string        `json:"Payload"`
}

// Decode parses one wire frame. Unknown events and empty payloads are not
// errors here; only frames that do not fit the message shape are.
func Decode(data []byte) (domain.Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	if w.Header == nil {
		return domain.Message{}, fmt.Errorf("%w: missing Header", domain.ErrMalformedMessage)
	}

	msg := domain.Message{Header: *w.Header}
	if w.Payload != nil {
		msg.Payload = *w.Payload
	}
	return msg, nil
}

// Encode serializes msg without HTML escaping so relayed payloads keep their bytes.
func Encode(msg domain.Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func EncodeBool(v bool) string {
	return strconv.FormatBool(v)
}

func EncodeUserIDs(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(b)
}
