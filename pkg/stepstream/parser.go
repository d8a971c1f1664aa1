package stepstream

import (
	"bytes"
	"unicode/utf8"
)

// Config carries the immutable construction parameters for a Parser.
type Config struct {
	// Tags maps tag names to step labels, for example
	// {"think": "Thinking"}. Nil or empty means no recognized tags.
	Tags map[string]string

	// EnableTagsStreaming emits incremental messages while a segment
	// is still open instead of waiting for its closing delimiter.
	// Incremental messages carry only the text appended since the
	// previous emission and reuse the segment's step index.
	EnableTagsStreaming bool
}

// Parser incrementally classifies a text stream into labeled segments
// delimited by registered <tag> / </tag> markers. Fragments may be
// split anywhere, including inside a delimiter; unresolved delimiter
// prefixes are buffered until they resolve or the stream ends.
//
// A Parser is single-threaded and performs no internal locking; the
// caller must serialize ParseChunk and Finalize. Each call runs in
// time proportional to the new fragment plus the unresolved tail.
type Parser struct {
	registry  *Registry
	streaming bool

	// tail holds bytes that may still become a delimiter once more
	// input arrives. It never contains a fully resolved delimiter.
	tail []byte

	// openTag names the currently open tag; empty means untagged.
	openTag   string
	openLabel string

	// acc is the accumulated, not-yet-flushed content of the current
	// segment; sent is the length of the prefix already emitted as
	// incremental messages.
	acc  []byte
	sent int

	// counters holds the next step index per step label.
	counters map[string]int

	// pinnedStep reserves the step index assigned at the current
	// segment's first emission so later emissions reuse it.
	pinnedStep  int
	pinnedLabel string

	// seenDelimiter flips once a registered delimiter has resolved,
	// disabling the implicit-open heuristic for the rest of the
	// stream.
	seenDelimiter bool
	finalized     bool
}

// NewParser builds a parser from the configuration. It returns a
// *TagConfigError when the tag mapping is invalid.
func NewParser(cfg Config) (*Parser, error) {
	registry, err := NewRegistry(cfg.Tags)
	if err != nil {
		return nil, err
	}

	return &Parser{
		registry:  registry,
		streaming: cfg.EnableTagsStreaming,
		counters:  make(map[string]int),
	}, nil
}

// Registry returns the parser's immutable tag registry.
func (p *Parser) Registry() *Registry {
	return p.registry
}

// ParseChunk appends a fragment to the unresolved buffer, scans it,
// and returns the messages produced in emission order. Malformed or
// not-yet-resolvable input never fails: ambiguous delimiters are held
// speculatively and unknown tags pass through as literal text. After
// Finalize it returns nil.
func (p *Parser) ParseChunk(fragment string) []Message {
	if p.finalized {
		return nil
	}
	if fragment == "" && len(p.tail) == 0 {
		return nil
	}

	buf := append(p.tail, fragment...)
	p.tail = nil

	var out []Message
	pos := 0
	for pos < len(buf) {
		i := bytes.IndexByte(buf[pos:], '<')
		if i < 0 {
			p.acc = append(p.acc, buf[pos:]...)

			break
		}
		i += pos
		p.acc = append(p.acc, buf[pos:i]...)

		j := bytes.IndexByte(buf[i:], '>')
		if j < 0 {
			if delimiterPrefix(buf[i:]) {
				// Unterminated candidate: hold it for the next
				// fragment.
				p.tail = append(p.tail, buf[i:]...)

				break
			}
			// Can never become a delimiter, so the '<' is literal.
			p.acc = append(p.acc, '<')
			pos = i + 1

			continue
		}
		j += i

		closing, name, ok := splitDelimiter(buf[i+1 : j])
		if !ok {
			p.acc = append(p.acc, '<')
			pos = i + 1

			continue
		}

		label, registered := p.registry.Lookup(name)
		if !registered {
			// Unknown tags do not interrupt the current segment.
			p.acc = append(p.acc, buf[i:j+1]...)
			pos = j + 1

			continue
		}

		if closing {
			out = p.handleClose(out, name, label, buf[i:j+1])
		} else {
			out = p.handleOpen(out, name, label)
		}
		pos = j + 1
	}

	if p.streaming {
		if msg, ok := p.incremental(); ok {
			out = append(out, msg)
		}
	}

	return out
}

// Finalize flushes whatever is buffered as one truncated message and
// marks the parser terminal. The message carries IsComplete=false:
// the segment ended with the stream, not with a matching delimiter.
// Finalize returns nil when nothing is pending and on every call
// after the first.
func (p *Parser) Finalize() *Message {
	if p.finalized {
		return nil
	}
	p.finalized = true

	p.acc = append(p.acc, p.tail...)
	p.tail = nil

	if p.sent >= len(p.acc) {
		return nil
	}

	msg := p.emit(p.currentLabel(), p.unsent(), false)

	return &msg
}

// handleOpen processes an opening delimiter for a registered tag.
// Unsent content of the interrupted segment is flushed first, then
// the new tag becomes the current segment.
func (p *Parser) handleOpen(out []Message, name, label string) []Message {
	if delta := p.unsent(); delta != "" {
		out = append(out, p.emit(p.currentLabel(), delta, true))
	}

	p.resetSegment()
	p.openTag = name
	p.openLabel = label
	p.seenDelimiter = true

	return out
}

// handleClose processes a closing delimiter for a registered tag.
func (p *Parser) handleClose(
	out []Message,
	name, label string,
	raw []byte,
) []Message {
	switch {
	case p.openTag == name:
		// Matching close: the segment is complete. Emitted even when
		// nothing is left unsent so consumers observe the close.
		out = append(out, p.emit(label, p.unsent(), true))
		p.resetSegment()
		p.openTag = ""
		p.openLabel = ""

	case p.openTag == "" && !p.seenDelimiter:
		// Implicit open: everything before the first delimiter of
		// the stream belongs to the closing tag's segment. Scanning
		// stays untagged for what follows.
		out = append(out, p.emit(label, p.unsent(), true))
		p.resetSegment()

	default:
		// Mismatched close: literal text in the current segment.
		p.acc = append(p.acc, raw...)

		return out
	}

	p.seenDelimiter = true

	return out
}

// incremental emits the newly appended slice of the open segment. A
// trailing incomplete multi-byte sequence is withheld until the bytes
// completing it arrive, so delta content is always valid UTF-8 even
// when a fragment boundary falls inside a rune.
func (p *Parser) incremental() (Message, bool) {
	end := completeRuneLen(p.acc)
	if end <= p.sent {
		return Message{}, false
	}

	label := p.currentLabel()
	msg := Message{
		Step:     p.stepFor(label),
		StepName: label,
		Content:  string(p.acc[p.sent:end]),
	}
	p.sent = end

	return msg, true
}

// emit builds a message under label and marks the accumulation sent.
func (p *Parser) emit(label, content string, complete bool) Message {
	msg := Message{
		Step:       p.stepFor(label),
		StepName:   label,
		Content:    content,
		IsComplete: complete,
	}
	p.sent = len(p.acc)

	return msg
}

// stepFor returns the step index for the current segment under label,
// reusing the index reserved at the segment's first emission.
func (p *Parser) stepFor(label string) int {
	if p.pinnedStep != 0 && p.pinnedLabel == label {
		return p.pinnedStep
	}

	p.counters[label]++
	p.pinnedStep = p.counters[label]
	p.pinnedLabel = label

	return p.pinnedStep
}

// currentLabel returns the step label of the current segment.
func (p *Parser) currentLabel() string {
	if p.openTag == "" {
		return p.registry.Default()
	}

	return p.openLabel
}

// unsent returns the accumulated content not yet emitted.
func (p *Parser) unsent() string {
	return string(p.acc[p.sent:])
}

// completeRuneLen returns the length of the longest prefix of b that
// does not end inside a truncated multi-byte UTF-8 sequence. Outright
// invalid bytes count as complete and pass through unchanged.
func completeRuneLen(b []byte) int {
	end := len(b)
	for back := 1; back <= utf8.UTFMax && back <= end; back++ {
		c := b[end-back]
		if c < utf8.RuneSelf {
			return end
		}
		if c&0xC0 != 0x80 {
			// Leading byte: the sequence is either whole or still
			// waiting for its continuation bytes.
			if utf8.FullRune(b[end-back:]) {
				return end
			}

			return end - back
		}
	}

	return end
}

// resetSegment clears the per-segment accumulation state.
func (p *Parser) resetSegment() {
	p.acc = p.acc[:0]
	p.sent = 0
	p.pinnedStep = 0
	p.pinnedLabel = ""
}

// splitDelimiter interprets the text between '<' and '>' as a
// delimiter body, reporting whether it is the closing form and the
// tag name. ok is false when the body does not satisfy the tag name
// grammar.
func splitDelimiter(body []byte) (closing bool, name string, ok bool) {
	if len(body) > 0 && body[0] == '/' {
		closing = true
		body = body[1:]
	}
	if !tagNameRE.Match(body) {
		return false, "", false
	}

	return closing, string(body), true
}

// delimiterPrefix reports whether buf, starting at '<', could still
// grow into a well-formed delimiter once more bytes arrive.
func delimiterPrefix(buf []byte) bool {
	rest := buf[1:]
	if len(rest) > 0 && rest[0] == '/' {
		rest = rest[1:]
	}

	for i := 0; i < len(rest); i++ {
		if i == 0 && !isAlpha(rest[i]) {
			return false
		}
		if i > 0 && !isNameByte(rest[i]) {
			return false
		}
	}

	return true
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameByte(c byte) bool {
	return isAlpha(c) || c >= '0' && c <= '9' || c == '_' || c == '-'
}
