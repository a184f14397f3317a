package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// BridgeCall is one request the fake bridge received.
type BridgeCall struct {
	Method   string
	Fields   map[string]string
	FileName string
	File     []byte
}

// FakeBridge is an in-process chat bridge. It serves files registered with
// AddFile and records every outbound call.
type FakeBridge struct {
	URL string

	mu     sync.Mutex
	calls  []BridgeCall
	files  map[string][]byte
	nextID int64
	server *httptest.Server
}

// NewFakeBridge starts a fake bridge that closes with the test.
func NewFakeBridge(t testing.TB) *FakeBridge {
	t.Helper()
	b := &FakeBridge{files: make(map[string][]byte), nextID: 100}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	b.URL = b.server.URL
	t.Cleanup(b.server.Close)
	return b
}

// AddFile makes data downloadable under fileID.
func (b *FakeBridge) AddFile(fileID string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[fileID] = data
}

// Calls returns a copy of the recorded calls.
func (b *FakeBridge) Calls() []BridgeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BridgeCall(nil), b.calls...)
}

// CallsTo filters recorded calls by bridge method name.
func (b *FakeBridge) CallsTo(method string) []BridgeCall {
	var out []BridgeCall
	for _, call := range b.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

func (b *FakeBridge) serve(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/")
	if fileID, ok := strings.CutPrefix(method, "file/"); ok {
		b.mu.Lock()
		data, found := b.files[fileID]
		b.mu.Unlock()
		if !found {
			http.Error(w, "no such file", http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
		return
	}

	call := BridgeCall{Method: method, Fields: map[string]string{}}
	switch {
	case strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/"):
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for key, values := range r.MultipartForm.Value {
			call.Fields[key] = values[0]
		}
		for _, headers := range r.MultipartForm.File {
			f, err := headers[0].Open()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			call.File, _ = io.ReadAll(f)
			call.FileName = headers[0].Filename
			f.Close()
		}
	case r.Method == http.MethodPost:
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for key, value := range payload {
			call.Fields[key] = fmt.Sprint(value)
		}
	}

	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.nextID++
	id := b.nextID
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d}}`, id)
}
