package reader

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Supported source encodings. Japanese ERP exports are cp932 far more
// often than their documentation admits.
const (
	EncodingUTF8  = "utf-8"
	EncodingCP932 = "cp932"
)

// DetectEncoding sniffs the encoding of a raw byte sample. A UTF-8 BOM
// or fully valid UTF-8 bytes mean UTF-8; anything else is assumed to
// be cp932 (Shift_JIS as Windows writes it).
func DetectEncoding(sample []byte) string {
	if bytes.HasPrefix(sample, utf8BOM) {
		return EncodingUTF8
	}
	if utf8.Valid(sample) {
		return EncodingUTF8
	}
	return EncodingCP932
}

// normalizeEncoding maps the accepted config spellings onto the two
// canonical names. Unknown values pass through for the caller to reject.
func normalizeEncoding(enc string) string {
	switch enc {
	case "", EncodingUTF8, "utf8":
		return EncodingUTF8
	case EncodingCP932, "shift_jis", "sjis":
		return EncodingCP932
	default:
		return enc
	}
}

// decodeReader wraps r so the bytes coming out are UTF-8. For cp932
// sources the Shift_JIS decoder transforms the stream; UTF-8 passes
// through untouched (the BOM is handled by the CSV layer).
func decodeReader(r io.Reader, encoding string) io.Reader {
	if normalizeEncoding(encoding) == EncodingCP932 {
		return transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	}
	return r
}
