// Package pipeline wires the stages together: decode, sniff, extract,
// report. It owns the on-disk layout of the output root; the stages
// below it never decide where anything lives.
package pipeline

import (
	"os"
	"path/filepath"

	"github.com/MrSud0/Base64-to-Zip/internal/archive"
	"github.com/MrSud0/Base64-to-Zip/internal/b64"
	"github.com/MrSud0/Base64-to-Zip/internal/report"
	"github.com/MrSud0/Base64-to-Zip/internal/sniff"
)

// ExtractedSubdir is where entries are materialized under the output
// root. The decoded archive itself, when kept, sits next to it.
const ExtractedSubdir = "extracted"

// RunOptions configures one pipeline invocation.
type RunOptions struct {
	// OutputDir is the output root. Everything written lands beneath it.
	OutputDir string
	// Format forces a format when Forced is set; sniffing is bypassed
	// but the extractor still re-checks the magic bytes.
	Format sniff.Format
	Forced bool
	// Password for encrypted zip entries, if known up front.
	Password string
	// AnalyzeOnly enumerates and validates without writing entries.
	AnalyzeOnly bool
	// Keep persists the decoded payload under the output root.
	Keep bool
	// MaxBytes caps cumulative decompressed output; non-positive
	// selects archive.DefaultMaxExtractBytes.
	MaxBytes int64
	// Keywords overrides report.DefaultKeywords when non-nil.
	Keywords []string
	// Progress is forwarded to the extractor.
	Progress func(archive.Entry)
}

// Outcome is what one invocation produced.
type Outcome struct {
	PayloadSize int
	Format      sniff.Format
	Forced      bool
	KeptPath    string
	Result      *archive.Result
	Report      report.Report
}

// Run decodes input and extracts the archive it contains into
// <OutputDir>/extracted. On failure the returned Outcome still carries
// whatever stages completed (payload size, format, kept file), so the
// caller can report context alongside the error.
func Run(input string, opts RunOptions) (*Outcome, error) {
	payload, err := b64.Decode(input)
	if err != nil {
		return nil, archive.Wrap(archive.InvalidEncoding, err, "decoding base64 payload")
	}
	if len(payload) == 0 {
		return nil, archive.Errorf(archive.EmptyArchive, "decoded payload is empty")
	}

	format := opts.Format
	if !opts.Forced {
		format = sniff.Detect(payload)
	}

	out := &Outcome{PayloadSize: len(payload), Format: format, Forced: opts.Forced}

	if opts.Keep {
		kept, err := persistPayload(payload, opts.OutputDir, format)
		if err != nil {
			return out, err
		}
		out.KeptPath = kept
	}

	if format == sniff.Unknown {
		return out, archive.Errorf(archive.UnsupportedFormat, "payload does not match any known archive signature")
	}

	res, err := archive.Extract(payload, format, archive.Options{
		Dir:             filepath.Join(opts.OutputDir, ExtractedSubdir),
		Password:        opts.Password,
		ListOnly:        opts.AnalyzeOnly,
		MaxExtractBytes: opts.MaxBytes,
		Progress:        opts.Progress,
	})
	if res != nil {
		out.Result = res
		out.Report = report.Summarize(res, opts.Keywords)
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

func persistPayload(payload []byte, outputDir string, format sniff.Format) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	name := "decoded_archive." + format.Ext()
	if format == sniff.Unknown {
		name = "decoded_data.bin"
	}
	path := filepath.Join(outputDir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
