package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/MrSud0/Base64-to-Zip/internal/safepath"
	"github.com/MrSud0/Base64-to-Zip/internal/sniff"
)

// tarExtractor parses a tar stream, transparently decompressing first
// when the format carries a compression layer.
type tarExtractor struct {
	format sniff.Format
}

func (t tarExtractor) reader(payload []byte) (io.Reader, error) {
	br := bytes.NewReader(payload)
	switch t.format {
	case sniff.Tar:
		return br, nil
	case sniff.TarGzip:
		return gzip.NewReader(br)
	case sniff.TarBzip2:
		return bzip2.NewReader(br, nil)
	case sniff.TarXz:
		return xz.NewReader(br)
	case sniff.TarZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		// IOReadCloser so the decoder's worker goroutines are released
		// when the extraction closes the stream.
		return zr.IOReadCloser(), nil
	case sniff.TarLz4:
		return lz4.NewReader(br), nil
	}
	return nil, Errorf(UnsupportedFormat, "not a tar format: %q", t.format)
}

func (t tarExtractor) extract(payload []byte, opts Options) (*Result, error) {
	r, err := t.reader(payload)
	if err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		// A payload without the expected outer magic was forced onto
		// the wrong extractor; one with the magic is genuinely damaged.
		if sniff.Detect(payload) != t.format {
			return nil, Wrap(FormatMismatch, err, "payload does not parse as "+t.format.String())
		}
		return nil, Wrap(CorruptArchive, err, "opening compressed stream")
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	res := &Result{Format: t.format}
	guard := safepath.NewSizeGuard(opts.limit())
	root := opts.root()
	tr := tar.NewReader(r)
	sawHeader := false

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			// A stream that is not tar at all fails on the very first
			// header: the inner payload of a compressed format, or a
			// forced plain tar whose bytes lack the signature. That is
			// a format problem, not a damaged archive.
			if !sawHeader && (t.format.Compressed() || sniff.Detect(payload) != t.format) {
				return nil, Wrap(FormatMismatch, err, "stream is not a tar archive")
			}
			return nil, Wrap(CorruptArchive, err, "reading tar header")
		}
		if hdr == nil {
			continue
		}
		sawHeader = true

		entry := Entry{Path: hdr.Name, Size: hdr.Size}
		switch hdr.Typeflag {
		case tar.TypeDir:
			entry.Dir = true
		case tar.TypeReg:
		default:
			// Symlinks, hard links, devices, fifos: recorded and
			// skipped, never materialized.
			entry.Skipped = true
			res.Entries = append(res.Entries, entry)
			if opts.Progress != nil {
				opts.Progress(entry)
			}
			continue
		}

		target, err := safepath.Join(root, hdr.Name)
		if err != nil {
			return nil, Errorf(PathTraversal, "entry %q escapes the output root", hdr.Name)
		}

		if !opts.ListOnly {
			written, err := writeTarEntry(tr, hdr, target, entry.Dir, guard)
			if err != nil {
				return nil, err
			}
			entry.Written = written
			res.BytesWritten += written
		}

		res.Entries = append(res.Entries, entry)
		if opts.Progress != nil {
			opts.Progress(entry)
		}
	}
}

func writeTarEntry(tr *tar.Reader, hdr *tar.Header, target string, isDir bool, guard *safepath.SizeGuard) (int64, error) {
	if isDir {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return 0, Wrap(CorruptArchive, err, "creating directory")
		}
		return 0, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, Wrap(CorruptArchive, err, "creating parent directory")
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, Wrap(CorruptArchive, err, "creating file")
	}
	n, err := io.Copy(guard.Writer(out), tr)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(target)
		if errors.Is(err, safepath.ErrSizeLimit) {
			return 0, Errorf(SizeLimitExceeded, "cumulative decompressed size exceeded while writing %q", hdr.Name)
		}
		return 0, Wrap(CorruptArchive, err, "extracting entry "+hdr.Name)
	}
	return n, nil
}
