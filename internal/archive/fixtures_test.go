package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/mholt/archives"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/MrSud0/Base64-to-Zip/internal/sniff"
)

type tarEntry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func fileEntry(name, body string) tarEntry {
	return tarEntry{name: name, body: body, typeflag: tar.TypeReg}
}

func dirEntry(name string) tarEntry {
	return tarEntry{name: name, typeflag: tar.TypeDir}
}

// buildTar writes a ustar-format tar stream so offset-257 sniffing works.
func buildTar(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
			Mode:     0o644,
			Format:   tar.FormatUSTAR,
		}
		if e.typeflag == tar.TypeDir {
			hdr.Mode = 0o755
		}
		if e.typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if e.typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// compress wraps raw in the compression layer the format demands.
func compress(t *testing.T, format sniff.Format, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch format {
	case sniff.Tar:
		return raw
	case sniff.TarGzip:
		w := gzip.NewWriter(&buf)
		mustWriteClose(t, w, raw)
	case sniff.TarBzip2:
		w, err := bzip2.NewWriter(&buf, nil)
		if err != nil {
			t.Fatal(err)
		}
		mustWriteClose(t, w, raw)
	case sniff.TarXz:
		w, err := xz.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		mustWriteClose(t, w, raw)
	case sniff.TarZstd:
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		mustWriteClose(t, w, raw)
	case sniff.TarLz4:
		w := lz4.NewWriter(&buf)
		mustWriteClose(t, w, raw)
	default:
		t.Fatalf("no compressor for %v", format)
	}
	return buf.Bytes()
}

type writeCloser interface {
	Write(p []byte) (int, error)
	Close() error
}

func mustWriteClose(t *testing.T, w writeCloser, raw []byte) {
	t.Helper()
	if _, err := w.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

// buildZip crafts a zip with arbitrary entry names, including hostile
// ones the higher-level builders refuse to produce.
func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildFromDisk packs an on-disk tree with mholt/archives, producing
// the kind of real-world fixture the tool sees in practice.
func buildFromDisk(t *testing.T, format archives.Archiver, files map[string]string) []byte {
	t.Helper()
	src := t.TempDir()
	for name, body := range files {
		path := filepath.Join(src, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ctx := context.Background()
	list, err := archives.FilesFromDisk(ctx, nil, map[string]string{src + string(os.PathSeparator): ""})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := format.Archive(ctx, &buf, list); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// readTree collects relative path → contents for every regular file
// under root.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}
