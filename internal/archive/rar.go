package archive

import (
	"bytes"

	"github.com/MrSud0/Base64-to-Zip/internal/sniff"
)

var rarMagic = []byte("Rar!")

// rarExtractor confirms the signature and stops there. Rar extraction
// is out of scope; the result still tells the caller what was found so
// the decoded payload can be kept for manual handling.
type rarExtractor struct{}

func (rarExtractor) extract(payload []byte, opts Options) (*Result, error) {
	if !bytes.HasPrefix(payload, rarMagic) {
		return nil, Errorf(FormatMismatch, "payload does not carry a rar signature")
	}
	res := &Result{Format: sniff.Rar, RarDetected: true}
	if opts.ListOnly {
		return res, nil
	}
	return res, Errorf(UnsupportedFormat, "rar archive detected, extraction unsupported")
}
