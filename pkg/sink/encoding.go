package sink

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewEncodingWriter returns a writer that transcodes UTF-8 input to the
// named encoding. Characters the encoding cannot represent are replaced.
// It returns a nil writer when name is empty or names UTF-8, since output
// is already UTF-8.
func NewEncodingWriter(w io.Writer, name string) (io.WriteCloser, error) {
	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder())), nil
}

// LookupEncoding resolves an encoding name using the WHATWG names and labels
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}
