package excel

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"wastedash/domain/waste"
)

// ParseEncoding validates an encoding name from configuration
func ParseEncoding(name string) (waste.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return waste.EncodingUTF8, nil
	case "utf-8-sig", "utf8-sig", "utf-8-bom":
		return waste.EncodingUTF8BOM, nil
	case "euc-kr", "euckr":
		return waste.EncodingEUCKR, nil
	case "cp949", "ms949", "uhc":
		return waste.EncodingCP949, nil
	}
	return "", fmt.Errorf("unsupported encoding: %q", name)
}

// decode converts raw file bytes to UTF-8 text under one candidate encoding.
// A candidate fails when the bytes are not valid for it; the Korean decoders
// substitute U+FFFD for invalid sequences, so any replacement rune counts as
// a failure.
func decode(raw []byte, enc waste.Encoding) (string, error) {
	switch enc {
	case waste.EncodingUTF8, waste.EncodingUTF8BOM:
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("%s: invalid byte sequence", enc)
		}
		if enc == waste.EncodingUTF8BOM {
			return decodeWith(raw, unicode.UTF8BOM.NewDecoder(), enc)
		}
		return string(raw), nil
	case waste.EncodingEUCKR, waste.EncodingCP949:
		// EUC-KR in x/text is the Unified Hangul Code superset, which is CP949
		return decodeWith(raw, korean.EUCKR.NewDecoder(), enc)
	default:
		return "", fmt.Errorf("unsupported encoding: %q", enc)
	}
}

func decodeWith(raw []byte, dec *encoding.Decoder, enc waste.Encoding) (string, error) {
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", enc, err)
	}
	if bytes.Contains(out, []byte(string(utf8.RuneError))) {
		return "", fmt.Errorf("%s: undecodable bytes", enc)
	}
	return string(out), nil
}
