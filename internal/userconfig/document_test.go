package userconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/tidwall/gjson"
)

func TestParseKeepsOrderAndUnknownFields(t *testing.T) {
	input := []byte(`{
		// hand edited
		"zeta": {"nested": [1, 2, 3]},
		"user_id": 99,
		"alpha": "x",
		"mystery": null,
	}`)
	doc, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.UserID != 99 {
		t.Fatalf("expected user id 99, got %d", doc.UserID)
	}
	if got := doc.Keys(); !slices.Equal(got, []string{"user_id", "zeta", "alpha", "mystery"}) {
		t.Fatalf("unexpected key order %v", got)
	}
	raw, ok := doc.Get("zeta")
	if !ok || string(raw) != `{"nested":[1,2,3]}` {
		t.Fatalf("unexpected zeta value %s", raw)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"truncated", `{"a": `},
		{"array root", `[1, 2]`},
		{"scalar root", `42`},
		{"empty", ``},
		{"garbage", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.in)); !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("Parse(%q) error = %v, want ErrConfigInvalid", tt.in, err)
			}
		})
	}
}

func TestParseDuplicateKeysLastValueWins(t *testing.T) {
	doc, err := Parse([]byte(`{"a": 1, "b": 2, "a": 3}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Keys(); !slices.Equal(got, []string{"user_id", "a", "b"}) {
		t.Fatalf("unexpected keys %v", got)
	}
	if raw, _ := doc.Get("a"); string(raw) != "3" {
		t.Fatalf("expected last value, got %s", raw)
	}
}

func TestMarshalPutsUserIDFirst(t *testing.T) {
	doc := Document{UserID: 7, Fields: []Field{
		{Key: "tags", Value: json.RawMessage(`{"title":"x"}`)},
		{Key: "user-facing \"quote\"", Value: json.RawMessage(`true`)},
	}}
	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("marshal produced invalid JSON: %s", data)
	}
	var keys []string
	gjson.ParseBytes(data).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	if !slices.Equal(keys, []string{"user_id", "tags", `user-facing "quote"`}) {
		t.Fatalf("unexpected key order %v", keys)
	}
	if gjson.GetBytes(data, "user_id").Int() != 7 {
		t.Fatalf("unexpected user id in %s", data)
	}

	again, err := Parse(data)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if again.UserID != 7 || len(again.Fields) != 2 {
		t.Fatalf("round trip lost data: %+v", again)
	}
}

func TestMarshalKeepsKeysVerbatim(t *testing.T) {
	doc, err := Parse([]byte(`{"<k>": 1, "a&b": "<v>"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Contains(data, []byte(`"<k>"`)) || !bytes.Contains(data, []byte(`"a&b"`)) {
		t.Fatalf("keys were escaped: %s", data)
	}
	if bytes.Contains(data, []byte(`\u003c`)) {
		t.Fatalf("unexpected HTML escaping: %s", data)
	}
}

func TestSetAndLookup(t *testing.T) {
	var doc Document
	if err := doc.Set("user_id", json.RawMessage(`1`)); err == nil {
		t.Fatal("expected user_id to be protected")
	}
	if err := doc.Set("watermark", json.RawMessage(`{"opacity": 0.5}`)); err != nil {
		t.Fatal(err)
	}
	if err := doc.Set("broken", json.RawMessage(`{`)); err == nil {
		t.Fatal("expected invalid JSON to be rejected")
	}
	if got := doc.Lookup("watermark.opacity").Float(); got != 0.5 {
		t.Fatalf("unexpected opacity %v", got)
	}

	if got := doc.Lookup("watermark").Get("opacity").Float(); got != 0.5 {
		t.Fatalf("unexpected opacity through member %v", got)
	}
	if got := doc.Lookup("user_id").Int(); got != 0 {
		t.Fatalf("unexpected user_id %v", got)
	}
	if doc.Lookup("missing.key").Exists() {
		t.Fatal("missing member should not resolve")
	}
	if got := doc.Lookup("watermark.opac*").Float(); got != 0.5 {
		t.Fatalf("wildcard lookup returned %v", got)
	}

	clone := doc.Clone()
	clone.Fields[0].Value[0] = '['
	if raw, _ := doc.Get("watermark"); raw[0] != '{' {
		t.Fatal("clone shares memory with original")
	}
}
