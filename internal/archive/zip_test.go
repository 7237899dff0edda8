package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mholt/archives"
	yekazip "github.com/yeka/zip"

	"github.com/MrSud0/Base64-to-Zip/internal/sniff"
)

func TestZipRoundTrip(t *testing.T) {
	files := map[string]string{
		"readme.txt":      "hello",
		"docs/notes.md":   "# notes\n",
		"docs/sub/x.conf": "a=1\n",
	}
	payload := buildFromDisk(t, archives.Zip{}, files)
	if got := sniff.Detect(payload); got != sniff.Zip {
		t.Fatalf("Detect()=%v, want zip", got)
	}

	dir := t.TempDir()
	res, err := Extract(payload, sniff.Zip, Options{Dir: dir})
	if err != nil {
		t.Fatalf("Extract() err=%v", err)
	}

	tree := readTree(t, dir)
	if len(tree) != len(files) {
		t.Fatalf("extracted %d files, want %d: %v", len(tree), len(files), tree)
	}
	for name, body := range files {
		if tree[filepath.FromSlash(name)] != body {
			t.Errorf("file %s = %q, want %q", name, tree[filepath.FromSlash(name)], body)
		}
	}
	if res.BytesWritten == 0 {
		t.Error("BytesWritten = 0 after a successful extraction")
	}
}

func TestZipListOnlyWritesNothing(t *testing.T) {
	payload := buildZip(t, map[string]string{"a.txt": "aaa", "b/c.txt": "ccc"})
	dir := t.TempDir()

	res, err := Extract(payload, sniff.Zip, Options{Dir: dir, ListOnly: true})
	if err != nil {
		t.Fatalf("Extract() err=%v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("listed %d entries, want 2", len(res.Entries))
	}
	if res.BytesWritten != 0 {
		t.Fatalf("BytesWritten=%d in list mode", res.BytesWritten)
	}
	if tree := readTree(t, dir); len(tree) != 0 {
		t.Fatalf("list mode wrote files: %v", tree)
	}
}

func TestZipTraversalEntryRejected(t *testing.T) {
	payload := buildZip(t, map[string]string{
		"ok.txt":      "fine",
		"../evil.txt": "nope",
	})
	parent := t.TempDir()
	dir := filepath.Join(parent, "out")

	_, err := Extract(payload, sniff.Zip, Options{Dir: dir})
	if !IsKind(err, PathTraversal) {
		t.Fatalf("Extract() err=%v, want PathTraversal", err)
	}
	if _, err := os.Stat(filepath.Join(parent, "evil.txt")); !os.IsNotExist(err) {
		t.Fatal("traversal entry escaped the output root")
	}
}

func TestZipTruncatedPayload(t *testing.T) {
	// "UEsDBBQAAAAIAA==" decoded: a bare local-file-header prefix.
	payload := []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x00, 0x00, 0x08, 0x00}
	if got := sniff.Detect(payload); got != sniff.Zip {
		t.Fatalf("Detect()=%v, want zip", got)
	}
	_, err := Extract(payload, sniff.Zip, Options{Dir: t.TempDir()})
	if !IsKind(err, CorruptArchive) {
		t.Fatalf("Extract() err=%v, want CorruptArchive", err)
	}
}

func TestZipZeroEntries(t *testing.T) {
	payload := buildZip(t, nil)
	res, err := Extract(payload, sniff.Zip, Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Extract() of empty archive err=%v", err)
	}
	if len(res.Entries) != 0 || res.BytesWritten != 0 {
		t.Fatalf("empty archive produced %+v", res)
	}
}

func buildEncryptedZip(t *testing.T, name, body, password string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := yekazip.NewWriter(&buf)
	w, err := zw.Encrypt(name, password, yekazip.AES256Encryption)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestZipEncryptedNoPassword(t *testing.T) {
	payload := buildEncryptedZip(t, "secret.txt", "classified", "hunter2")
	dir := t.TempDir()

	_, err := Extract(payload, sniff.Zip, Options{Dir: dir})
	if !IsKind(err, PasswordRequired) {
		t.Fatalf("Extract() err=%v, want PasswordRequired", err)
	}
	if tree := readTree(t, dir); len(tree) != 0 {
		t.Fatalf("files written despite missing password: %v", tree)
	}
}

func TestZipEncryptedWrongPassword(t *testing.T) {
	payload := buildEncryptedZip(t, "secret.txt", "classified", "hunter2")
	_, err := Extract(payload, sniff.Zip, Options{Dir: t.TempDir(), Password: "wrong"})
	if !IsKind(err, PasswordIncorrect) {
		t.Fatalf("Extract() err=%v, want PasswordIncorrect", err)
	}
}

func TestZipEncryptedCorrectPassword(t *testing.T) {
	payload := buildEncryptedZip(t, "secret.txt", "classified", "hunter2")
	dir := t.TempDir()

	_, err := Extract(payload, sniff.Zip, Options{Dir: dir, Password: "hunter2"})
	if err != nil {
		t.Fatalf("Extract() err=%v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "secret.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "classified" {
		t.Fatalf("decrypted contents=%q, want %q", got, "classified")
	}
}

func TestZipSizeLimit(t *testing.T) {
	payload := buildZip(t, map[string]string{"big.bin": string(make([]byte, 64*1024))})
	_, err := Extract(payload, sniff.Zip, Options{Dir: t.TempDir(), MaxExtractBytes: 1024})
	if !IsKind(err, SizeLimitExceeded) {
		t.Fatalf("Extract() err=%v, want SizeLimitExceeded", err)
	}
}

func TestZipForcedWithLeadingStub(t *testing.T) {
	// Self-extracting style: a shell stub ahead of the zip data, with
	// the central directory offsets shifted to match. Sniffing cannot
	// see the signature at offset 0, but forcing zip must still work.
	stub := []byte("#!/bin/sh\nexit 0\n")
	var buf bytes.Buffer
	buf.Write(stub)
	zw := zip.NewWriter(&buf)
	zw.SetOffset(int64(len(stub)))
	w, err := zw.Create("payload.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("hidden")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	payload := buf.Bytes()

	if got := sniff.Detect(payload); got != sniff.Unknown {
		t.Fatalf("Detect()=%v, want unknown for stub-prefixed zip", got)
	}

	dir := t.TempDir()
	res, err := Extract(payload, sniff.Zip, Options{Dir: dir})
	if err != nil {
		t.Fatalf("forced zip Extract() err=%v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("entries=%d, want 1", len(res.Entries))
	}
	got, err := os.ReadFile(filepath.Join(dir, "payload.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hidden" {
		t.Fatalf("contents=%q, want %q", got, "hidden")
	}
}

func TestZipForcedOnWrongBytes(t *testing.T) {
	payload := compress(t, sniff.TarGzip, buildTar(t, []tarEntry{fileEntry("a.txt", "a")}))
	_, err := Extract(payload, sniff.Zip, Options{Dir: t.TempDir()})
	if !IsKind(err, FormatMismatch) {
		t.Fatalf("Extract() err=%v, want FormatMismatch", err)
	}
}
