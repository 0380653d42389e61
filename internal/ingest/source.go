package ingest

import "io"

// utf8BOM is the byte-order mark Windows exports commonly prepend.
var utf8BOM = [3]byte{0xEF, 0xBB, 0xBF}

// bomSkipReader wraps an io.Reader and drops a leading UTF-8 BOM so the
// first header field name is not polluted by it.
type bomSkipReader struct {
	r       io.Reader
	checked bool
	buf     []byte // bytes read during the BOM check, pending return
}

func newBOMSkipReader(r io.Reader) *bomSkipReader {
	return &bomSkipReader{r: r}
}

func (b *bomSkipReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true

		head := make([]byte, 3)
		n, err := io.ReadFull(b.r, head)
		if n == 3 && head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
			// BOM dropped; fall through to the normal read path.
		} else {
			b.buf = head[:n]
		}
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(b.buf) > 0 {
		n := copy(p, b.buf)
		b.buf = b.buf[n:]
		return n, nil
	}

	return b.r.Read(p)
}
