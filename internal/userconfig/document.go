package userconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/pretty"
)

// UserIDKey is the mandatory member binding a document to its workspace.
const UserIDKey = "user_id"

// MaxDocumentBytes caps accepted documents.
const MaxDocumentBytes = 1 << 20

var prettyOptions = &pretty.Options{Width: 80, Indent: "  "}

// Field is one top-level member other than user_id. Value holds the member's
// JSON verbatim.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Document is a parsed config: the user_id binding plus every other
// top-level member in source order.
type Document struct {
	UserID int64
	Fields []Field
}

// Parse decodes data into a Document. Comments and trailing commas are
// tolerated; the root must be a JSON object. Duplicate keys keep the first
// position and the last value. A user_id member is read into UserID when it
// is an integer and dropped otherwise.
func Parse(data []byte) (Document, error) {
	if len(data) > MaxDocumentBytes {
		return Document{}, fmt.Errorf("%w: document exceeds %d bytes", ErrConfigInvalid, MaxDocumentBytes)
	}
	clean := jsonc.ToJSON(data)
	if !gjson.ValidBytes(clean) {
		return Document{}, fmt.Errorf("%w: %s", ErrConfigInvalid, syntaxDetail(clean))
	}
	root := gjson.ParseBytes(clean)
	if !root.IsObject() {
		return Document{}, fmt.Errorf("%w: top-level value must be an object", ErrConfigInvalid)
	}

	var doc Document
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == UserIDKey {
			if value.Type == gjson.Number {
				if id, err := strconv.ParseInt(value.Raw, 10, 64); err == nil {
					doc.UserID = id
				}
			}
			return true
		}
		doc.set(name, json.RawMessage(pretty.Ugly([]byte(value.Raw))))
		return true
	})
	return doc, nil
}

func syntaxDetail(data []byte) string {
	var probe any
	var syntaxErr *json.SyntaxError
	if err := json.Unmarshal(data, &probe); errors.As(err, &syntaxErr) {
		return fmt.Sprintf("malformed JSON at byte %d: %s", syntaxErr.Offset, syntaxErr.Error())
	}
	return "malformed JSON"
}

// Marshal renders the document with user_id first and two-space indentation.
func (d Document) Marshal() ([]byte, error) {
	data, err := d.compact()
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(data, prettyOptions), nil
}

func (d Document) compact() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"` + UserIDKey + `":`)
	buf.WriteString(strconv.FormatInt(d.UserID, 10))
	for _, field := range d.Fields {
		if !json.Valid(field.Value) {
			return nil, fmt.Errorf("field %q holds invalid JSON", field.Key)
		}
		key, err := encodeKey(field.Key)
		if err != nil {
			return nil, fmt.Errorf("encode key %q: %w", field.Key, err)
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(field.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeKey quotes key without HTML escaping so template keys round-trip as
// written.
func encodeKey(key string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Get returns the raw value stored under key.
func (d Document) Get(key string) (json.RawMessage, bool) {
	if key == UserIDKey {
		return json.RawMessage(strconv.FormatInt(d.UserID, 10)), true
	}
	for _, field := range d.Fields {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Lookup resolves a gjson path (for example "watermark.opacity") for
// transforms reading their parameters. Plain dotted paths are answered from
// the owning member alone; paths using gjson syntax run against the whole
// document.
func (d Document) Lookup(path string) gjson.Result {
	if !strings.ContainsAny(path, `\*?#|@!`) {
		head, rest, nested := strings.Cut(path, ".")
		raw, ok := d.Get(head)
		if !ok {
			return gjson.Result{}
		}
		if !nested {
			return gjson.ParseBytes(raw)
		}
		return gjson.GetBytes(raw, rest)
	}
	data, err := d.compact()
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(data, path)
}

// Set stores raw under key, keeping the key's position when it exists.
// Transforms use it to hand an adjusted config to the next stage.
func (d *Document) Set(key string, raw json.RawMessage) error {
	if key == UserIDKey {
		return fmt.Errorf("%s is managed by the workspace", UserIDKey)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}
	d.set(key, raw)
	return nil
}

func (d *Document) set(key string, raw json.RawMessage) {
	for i := range d.Fields {
		if d.Fields[i].Key == key {
			d.Fields[i].Value = raw
			return
		}
	}
	d.Fields = append(d.Fields, Field{Key: key, Value: raw})
}

// Keys lists the member names in order, user_id first.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.Fields)+1)
	keys = append(keys, UserIDKey)
	for _, field := range d.Fields {
		keys = append(keys, field.Key)
	}
	return keys
}

// Clone returns a deep copy so transforms cannot mutate the caller's document.
func (d Document) Clone() Document {
	out := Document{UserID: d.UserID, Fields: make([]Field, len(d.Fields))}
	for i, field := range d.Fields {
		out.Fields[i] = Field{Key: field.Key, Value: slices.Clone(field.Value)}
	}
	return out
}
