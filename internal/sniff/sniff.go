// Package sniff classifies raw payloads by archive magic numbers.
package sniff

import "bytes"

// Format is the detected (or caller-forced) archive format of a payload.
type Format int

const (
	Unknown Format = iota
	Zip
	Tar
	TarGzip
	TarBzip2
	TarXz
	TarZstd
	TarLz4
	Rar
)

// String returns the CLI-facing token for the format.
func (f Format) String() string {
	switch f {
	case Zip:
		return "zip"
	case Tar:
		return "tar"
	case TarGzip:
		return "tar.gz"
	case TarBzip2:
		return "tar.bz2"
	case TarXz:
		return "tar.xz"
	case TarZstd:
		return "tar.zst"
	case TarLz4:
		return "tar.lz4"
	case Rar:
		return "rar"
	default:
		return "unknown"
	}
}

// Ext returns the filename extension used when the decoded payload is
// persisted to disk.
func (f Format) Ext() string {
	if f == Unknown {
		return "bin"
	}
	return f.String()
}

// Compressed reports whether the format is a tar stream behind a
// compression layer.
func (f Format) Compressed() bool {
	switch f {
	case TarGzip, TarBzip2, TarXz, TarZstd, TarLz4:
		return true
	}
	return false
}

// ParseFormat maps a user-supplied format token to a Format.
func ParseFormat(s string) (Format, bool) {
	for _, f := range []Format{Zip, Tar, TarGzip, TarBzip2, TarXz, TarZstd, TarLz4, Rar} {
		if s == f.String() {
			return f, true
		}
	}
	return Unknown, false
}

// Formats lists every token ParseFormat accepts, for usage text.
func Formats() []string {
	out := make([]string, 0, 8)
	for _, f := range []Format{Zip, Tar, TarGzip, TarBzip2, TarXz, TarZstd, TarLz4, Rar} {
		out = append(out, f.String())
	}
	return out
}

// signature maps a byte pattern at a fixed offset to a format. Checked
// in table order; first match wins.
type signature struct {
	offset int
	magic  []byte
	format Format
}

var signatures = []signature{
	{0, []byte{0x50, 0x4B, 0x03, 0x04}, Zip},
	{0, []byte{0x50, 0x4B, 0x05, 0x06}, Zip}, // empty archive
	{0, []byte{0x50, 0x4B, 0x07, 0x08}, Zip}, // spanned archive
	{0, []byte{0x1F, 0x8B}, TarGzip},
	{0, []byte{0x42, 0x5A, 0x68}, TarBzip2}, // "BZh"
	{0, []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A}, TarXz},
	{0, []byte{0x28, 0xB5, 0x2F, 0xFD}, TarZstd},
	{0, []byte{0x04, 0x22, 0x4D, 0x18}, TarLz4},
	{0, []byte{0x52, 0x61, 0x72, 0x21}, Rar}, // "Rar!"
	{257, []byte("ustar"), Tar},
}

// Detect classifies payload by its magic bytes. Payloads too short for
// any signature, including empty ones, are Unknown.
//
// Compressed tags are assigned on the outer signature alone; whether the
// inner stream really is a tar archive is the extractor's problem, since
// answering it costs a decompression pass.
func Detect(payload []byte) Format {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(payload) >= end && bytes.Equal(payload[sig.offset:end], sig.magic) {
			return sig.format
		}
	}
	return Unknown
}
