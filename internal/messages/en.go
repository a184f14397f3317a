package messages

var englishText = map[Key]string{
	Welcome: "Hello! 👋 Welcome to the music processing bot.\n" +
		"I normalize your audio to MP3 and will soon apply tags, watermarks, covers and more.\n\n" +
		"Send me an audio file to get started.\n" +
		"Use /help to see every command.",
	Help: "Music processing bot help:\n\n" +
		"📖 Commands:\n" +
		"🔸 /start - set up your profile.\n" +
		"🔸 /help - show this message.\n" +
		"🔸 /config - manage your config.json:\n" +
		"    - send /config to download the current file\n" +
		"    - send an edited config.json with the caption /config to update it\n" +
		"🔸 /upload <type> - reply to a file to store it:\n" +
		"    - <type> is one of cover, signature, watermark, font\n" +
		"    - example: reply to an image with /upload cover\n" +
		"\n" +
		"🎧 Audio files:\n" +
		"   - anything that is not MP3 is converted to MP3 (192k) and sent back\n" +
		"   - MP3 files are sent back unchanged\n" +
		"\n" +
		"⚙️ Admin commands:\n" +
		"🔸 /admin add <user_id> - grant admin rights until restart\n" +
		"🔸 /admin del <user_id> - revoke admin rights until restart",
	SetupFailed: "Your profile could not be created. Please try /start again later.",

	ConfigCaption: "This is your current config.json.\n" +
		"Edit it and send it back with the caption /config to update your settings.",
	ConfigMissing: "Your config.json was not found. Please run /start first.",
	ConfigUsage: "To download your config send just /config.\n" +
		"To update it send your config.json with the caption /config.",
	ConfigWrongName: "Please upload a file named config.json.",
	ConfigUpdated:   "✅ Your config.json was updated.",
	ConfigInvalid:   "Error: the uploaded config.json is not valid (%s). Please check the file and try again.",
	ConfigFailed:    "Something went wrong while handling your config. Please try again.",

	UploadUsage: "Reply to a file and send /upload <type>.\n" +
		"Example: /upload cover (as a reply to an image)\n\n" +
		"Allowed types:\n" +
		"▫️ cover: album cover (image)\n" +
		"▫️ signature: audio signature (audio file)\n" +
		"▫️ watermark: watermark image\n" +
		"▫️ font: font file (.ttf or .otf)",
	UploadNeedsReply:  "To upload %[1]s, reply to the file and send /upload %[1]s again.",
	UploadNeedsKind:   "You replied to a file but did not say what it is.\nExample: /upload cover\n\nAllowed types: cover, signature, watermark, font.",
	UploadUnknownKind: "Unknown upload type %q. Allowed types: cover, signature, watermark, font.",
	UploadStored:      "✅ Stored %s: %s",
	UploadFailed:      "The file could not be stored. Please try again.",

	AdminDenied:        "You are not allowed to use this command.",
	AdminUsage:         "Usage: /admin <add|del> <user_id>",
	AdminBadID:         "<user_id> must be an integer.",
	AdminAdded:         "User %s was added to the admin list (until restart).",
	AdminAlreadyExists: "User %s is already an admin.",
	AdminRemoved:       "User %s was removed from the admin list (until restart).",
	AdminNotFound:      "User %s is not in the admin list.",
	AdminUnknownAction: "Unknown action. Use add or del.",

	AudioInvalid:       "This audio file is not valid.",
	StatusDownloading:  "Downloading audio...",
	StatusClassifying:  "Download complete. Checking format...",
	StatusConverting:   "Not MP3. Converting to MP3...",
	StatusTransforming: "Applying your settings...",
	StatusSending:      "Sending...",
	AudioConverted:     "Converted to MP3: %s",
	AudioPassThrough:   "MP3 received: %s",
	AudioConvertFailed: "MP3 conversion failed: %s",
	AudioDownloadFail:  "The audio file could not be downloaded. Please send it again.",
	AudioTransformFail: "Your settings could not be applied to this file.",
	AudioFailed:        "Something went wrong while processing your audio file.",
}
