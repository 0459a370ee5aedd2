package relay

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Decoder turns raw worker output into displayable text. It never fails:
// bytes that cannot be decoded become U+FFFD.
type Decoder struct {
	legacy encoding.Encoding
	carry  []byte
}

// NewDecoder returns a decoder. name is an optional legacy encoding (any
// WHATWG label, e.g. "windows-1251") tried for output that is not UTF-8.
func NewDecoder(name string) (*Decoder, error) {
	d := &Decoder{}
	if name == "" {
		return d, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, err
	}
	d.legacy = enc
	return d, nil
}

// Decode converts one chunk. A multi-byte UTF-8 sequence cut at the end of
// the chunk is held back and emitted with the next chunk.
func (d *Decoder) Decode(p []byte) string {
	data := p
	if len(d.carry) > 0 {
		data = append(d.carry, p...)
		d.carry = nil
	}

	head, tail := splitIncomplete(data)
	if d.legacy != nil && !utf8.Valid(head) {
		if out, err := d.legacy.NewDecoder().Bytes(data); err == nil {
			return string(out)
		}
	}
	if len(tail) > 0 {
		d.carry = append([]byte(nil), tail...)
	}
	return strings.ToValidUTF8(string(head), "�")
}

// Flush returns whatever is still held back.
func (d *Decoder) Flush() string {
	if len(d.carry) == 0 {
		return ""
	}
	data := d.carry
	d.carry = nil
	if d.legacy != nil {
		if out, err := d.legacy.NewDecoder().Bytes(data); err == nil {
			return string(out)
		}
	}
	return strings.ToValidUTF8(string(data), "�")
}

// splitIncomplete separates a trailing partial UTF-8 sequence.
func splitIncomplete(p []byte) (head, tail []byte) {
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(p[i]) {
			continue
		}
		if !utf8.FullRune(p[i:]) {
			return p[:i], p[i:]
		}
		break
	}
	return p, nil
}
