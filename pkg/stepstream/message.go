package stepstream

import jsoniter "github.com/json-iterator/go"

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is one classified content segment emitted by the parser.
// It round-trips losslessly through JSON.
type Message struct {
	// Step is the 1-based occurrence index within the StepName group.
	Step int `json:"step"`

	// StepName is the label the segment's tag maps to, or
	// DefaultStepName for untagged content.
	StepName string `json:"step_name"`

	// Title is reserved for future use and currently always empty.
	Title string `json:"title"`

	// Content is the text payload of the segment.
	Content string `json:"content"`

	// IsComplete is true only when the segment was closed by a
	// matching delimiter. It is false for incremental messages in
	// streaming mode and for segments truncated by end of stream.
	IsComplete bool `json:"is_complete"`
}

// Encode serializes the message for the wire.
func (m Message) Encode() ([]byte, error) {
	return jsonCodec.Marshal(m)
}

// DecodeMessage deserializes a message produced by Encode.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	err := jsonCodec.Unmarshal(data, &m)

	return m, err
}
