// Package archive extracts classified payloads to disk.
//
// Extraction is dispatched over a fixed format table; every extractor
// validates entry paths through safepath before writing and meters
// decompressed bytes through a shared SizeGuard.
package archive

import (
	"github.com/MrSud0/Base64-to-Zip/internal/sniff"
)

// DefaultMaxExtractBytes caps cumulative decompressed output when the
// caller does not choose a ceiling.
const DefaultMaxExtractBytes int64 = 1 << 30 // 1 GiB

// Options controls a single extraction.
type Options struct {
	// Dir is the extraction root. Entries are written beneath it and
	// nowhere else.
	Dir string
	// Password decrypts protected zip entries. Empty means none was
	// supplied; the extractor fails with PasswordRequired rather than
	// trying an empty password.
	Password string
	// ListOnly enumerates and validates entries without writing bytes.
	ListOnly bool
	// MaxExtractBytes is the cumulative decompressed ceiling.
	// Non-positive selects DefaultMaxExtractBytes.
	MaxExtractBytes int64
	// Progress, when set, is called after each entry is processed.
	Progress func(Entry)
}

func (o Options) limit() int64 {
	if o.MaxExtractBytes <= 0 {
		return DefaultMaxExtractBytes
	}
	return o.MaxExtractBytes
}

func (o Options) root() string {
	if o.Dir == "" {
		return "."
	}
	return o.Dir
}

// Entry is one record from the archive. Path is untrusted archive
// metadata until it has passed safepath validation.
type Entry struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Dir     bool   `json:"dir,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Written int64  `json:"written,omitempty"`
}

// Result is the inventory of one extraction (or listing) run.
type Result struct {
	Format       sniff.Format `json:"format"`
	Entries      []Entry      `json:"entries"`
	BytesWritten int64        `json:"bytes_written"`
	// RarDetected marks a rar payload: signature confirmed, nothing
	// enumerated, extraction unsupported.
	RarDetected bool `json:"rar_detected,omitempty"`
}

// extractor handles one format. Listing and extraction share a code
// path, switched by Options.ListOnly.
type extractor interface {
	extract(payload []byte, opts Options) (*Result, error)
}

var extractors = map[sniff.Format]extractor{
	sniff.Zip:      zipExtractor{},
	sniff.Tar:      tarExtractor{format: sniff.Tar},
	sniff.TarGzip:  tarExtractor{format: sniff.TarGzip},
	sniff.TarBzip2: tarExtractor{format: sniff.TarBzip2},
	sniff.TarXz:    tarExtractor{format: sniff.TarXz},
	sniff.TarZstd:  tarExtractor{format: sniff.TarZstd},
	sniff.TarLz4:   tarExtractor{format: sniff.TarLz4},
	sniff.Rar:      rarExtractor{},
}

// Extract dispatches payload to the extractor for format.
//
// The format normally comes from sniff.Detect, but callers may force
// one. No re-sniff happens here: a forced format must be able to
// succeed where sniffing fails (archives behind a self-extracting
// stub, old tars without a ustar magic). Each extractor validates the
// bytes itself and fails with FormatMismatch when they cannot be
// parsed as the requested format.
func Extract(payload []byte, format sniff.Format, opts Options) (*Result, error) {
	if len(payload) == 0 {
		return nil, Errorf(EmptyArchive, "payload is empty")
	}
	ex, ok := extractors[format]
	if !ok {
		return nil, Errorf(UnsupportedFormat, "no extractor for format %q", format)
	}
	return ex.extract(payload, opts)
}
