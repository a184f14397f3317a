// Package messages renders user-visible replies in the configured locale.
//
// Replies are registered in an x/text catalog keyed by Key; English is the
// fallback for keys or locales without a translation. Numeric identifiers are
// passed pre-formatted as strings so locale digit grouping never alters them.
package messages

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies one reply template.
type Key string

const (
	Welcome     Key = "welcome"
	Help        Key = "help"
	SetupFailed Key = "setup_failed"

	ConfigCaption   Key = "config_caption"
	ConfigMissing   Key = "config_missing"
	ConfigUsage     Key = "config_usage"
	ConfigWrongName Key = "config_wrong_name"
	ConfigUpdated   Key = "config_updated"
	ConfigInvalid   Key = "config_invalid"
	ConfigFailed    Key = "config_failed"

	UploadUsage       Key = "upload_usage"
	UploadNeedsReply  Key = "upload_needs_reply"
	UploadNeedsKind   Key = "upload_needs_kind"
	UploadUnknownKind Key = "upload_unknown_kind"
	UploadStored      Key = "upload_stored"
	UploadFailed      Key = "upload_failed"

	AdminDenied        Key = "admin_denied"
	AdminUsage         Key = "admin_usage"
	AdminBadID         Key = "admin_bad_id"
	AdminAdded         Key = "admin_added"
	AdminAlreadyExists Key = "admin_already_exists"
	AdminRemoved       Key = "admin_removed"
	AdminNotFound      Key = "admin_not_found"
	AdminUnknownAction Key = "admin_unknown_action"

	AudioInvalid       Key = "audio_invalid"
	StatusDownloading  Key = "status_downloading"
	StatusClassifying  Key = "status_classifying"
	StatusConverting   Key = "status_converting"
	StatusTransforming Key = "status_transforming"
	StatusSending      Key = "status_sending"
	AudioConverted     Key = "audio_converted"
	AudioPassThrough   Key = "audio_pass_through"
	AudioConvertFailed Key = "audio_convert_failed"
	AudioDownloadFail  Key = "audio_download_failed"
	AudioTransformFail Key = "audio_transform_failed"
	AudioFailed        Key = "audio_failed"
)

var (
	english = language.English
	persian = language.Persian
)

var builder = newBuilder()

func newBuilder() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(english))
	for key, text := range englishText {
		_ = b.SetString(english, string(key), text)
	}
	for key, text := range persianText {
		_ = b.SetString(persian, string(key), text)
	}
	return b
}

var matcher = language.NewMatcher([]language.Tag{english, persian})

// Catalog renders replies for one locale.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a catalog for locale. Unknown locales fall back to English.
func New(locale string) *Catalog {
	tag, _, _ := matcher.Match(language.Make(locale))
	base, _ := tag.Base()
	switch base.String() {
	case "fa":
		tag = persian
	default:
		tag = english
	}
	return &Catalog{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builder))}
}

// Locale returns the resolved language tag.
func (c *Catalog) Locale() language.Tag {
	return c.tag
}

// Text renders key with args.
func (c *Catalog) Text(key Key, args ...any) string {
	return c.printer.Sprintf(string(key), args...)
}
