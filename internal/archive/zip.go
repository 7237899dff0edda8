package archive

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yeka/zip"

	"github.com/MrSud0/Base64-to-Zip/internal/safepath"
	"github.com/MrSud0/Base64-to-Zip/internal/sniff"
)

// zipExtractor reads the central directory with yeka/zip, which handles
// ZipCrypto and WinZip-AES entries the stdlib reader cannot.
type zipExtractor struct{}

func (zipExtractor) extract(payload []byte, opts Options) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		// No central directory at all means the bytes are simply not a
		// zip (a forced format that missed); a payload that carries the
		// zip signature but fails to parse is damaged goods.
		if sniff.Detect(payload) != sniff.Zip {
			return nil, Wrap(FormatMismatch, err, "payload does not parse as a zip archive")
		}
		return nil, Wrap(CorruptArchive, err, "reading zip central directory")
	}

	res := &Result{Format: sniff.Zip}
	guard := safepath.NewSizeGuard(opts.limit())

	for _, f := range zr.File {
		isDir := strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
		entry := Entry{Path: f.Name, Size: int64(f.UncompressedSize64), Dir: isDir}

		if f.IsEncrypted() {
			if opts.Password == "" {
				return nil, Errorf(PasswordRequired, "entry %q is encrypted and no password was supplied", f.Name)
			}
			f.SetPassword(opts.Password)
		}

		// Validate before any byte of this entry is written.
		target, err := safepath.Join(opts.root(), f.Name)
		if err != nil {
			return nil, Errorf(PathTraversal, "entry %q escapes the output root", f.Name)
		}

		if !opts.ListOnly {
			written, err := writeZipEntry(f, target, isDir, guard)
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
	return res, nil
}

func writeZipEntry(f *zip.File, target string, isDir bool, guard *safepath.SizeGuard) (int64, error) {
	if isDir {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return 0, Wrap(CorruptArchive, err, "creating directory")
		}
		return 0, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, Wrap(CorruptArchive, err, "creating parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return 0, classifyZipError(f, err, "opening entry "+f.Name)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		rc.Close()
		return 0, Wrap(CorruptArchive, err, "creating file")
	}

	n, err := io.Copy(guard.Writer(out), rc)
	rc.Close()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(target)
		if errors.Is(err, safepath.ErrSizeLimit) {
			return 0, Errorf(SizeLimitExceeded, "cumulative decompressed size exceeded while writing %q", f.Name)
		}
		return 0, classifyZipError(f, err, "extracting entry "+f.Name)
	}
	return n, nil
}

// classifyZipError separates bad-password failures from plain
// corruption. A wrong ZipCrypto password has no dedicated error: it
// surfaces as a flate or checksum failure on a decryptable entry, so
// any read failure on an encrypted entry is attributed to the password.
func classifyZipError(f *zip.File, err error, msg string) *Error {
	if f.IsEncrypted() {
		return Wrap(PasswordIncorrect, err, msg)
	}
	return Wrap(CorruptArchive, err, msg)
}
