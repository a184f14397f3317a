package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// id3Header is a minimal ID3v2.4 tag header with an empty body.
var id3Header = []byte{'I', 'D', '3', 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// WriteAudioFixture writes an MP3-looking file of size bytes: an ID3 header
// followed by a repeating frame-sync pattern. It returns the written bytes.
func WriteAudioFixture(t testing.TB, path string, size int) []byte {
	t.Helper()

	if size < len(id3Header) {
		size = len(id3Header)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	var buf bytes.Buffer
	buf.Grow(size)
	buf.Write(id3Header)
	frame := []byte{0xFF, 0xFB, 0x90, 0x64}
	for buf.Len() < size {
		remaining := size - buf.Len()
		if remaining < len(frame) {
			buf.Write(frame[:remaining])
			break
		}
		buf.Write(frame)
	}

	data := buf.Bytes()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return data
}
