package validation

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
)

// SignaturePrefix is the data URL header of a PNG signature.
const SignaturePrefix = "data:image/png;base64,"

// DecodeSignature validates a PNG data URL and returns the raw image bytes.
// maxBytes bounds the decoded size; zero disables the limit.
func DecodeSignature(dataURL string, maxBytes int) ([]byte, error) {
	if !strings.HasPrefix(dataURL, SignaturePrefix) {
		return nil, FieldErrors{{Field: "signature", Message: "signature must be a PNG data URL"}}
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, SignaturePrefix))
	if err != nil {
		return nil, FieldErrors{{Field: "signature", Message: "signature is not valid base64"}}
	}
	if maxBytes > 0 && len(raw) > maxBytes {
		return nil, FieldErrors{{Field: "signature", Message: fmt.Sprintf("signature exceeds %d bytes", maxBytes)}}
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, FieldErrors{{Field: "signature", Message: "signature is not a PNG image"}}
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, FieldErrors{{Field: "signature", Message: "signature image is empty"}}
	}

	return raw, nil
}
