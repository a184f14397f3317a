package messages

var persianText = map[Key]string{
	Welcome: "سلام! 👋 به ربات پردازشگر موزیک خوش آمدید.\n" +
		"من می‌توانم به شما در ویرایش تگ‌ها، تبدیل فرمت، افزودن واترمارک و موارد دیگر کمک کنم.\n\n" +
		"برای شروع، می‌توانید فایل موزیک خود را ارسال کنید.\n" +
		"برای مشاهده لیست دستورات از /help استفاده کنید.",
	Help: "راهنمای ربات پردازشگر موزیک:\n\n" +
		"📖 دستورات اصلی:\n" +
		"🔸 /start - شروع کار با ربات و ایجاد پروفایل کاربری شما.\n" +
		"🔸 /help - نمایش این پیام راهنما.\n" +
		"🔸 /config - مدیریت فایل پیکربندی (config.json):\n" +
		"    - برای دریافت فایل کانفیگ فعلی: ارسال /config\n" +
		"    - برای به‌روزرسانی کانفیگ: فایل config.json ویرایش شده خود را با کپشن /config ارسال کنید.\n" +
		"🔸 /upload <type> - آپلود فایل‌های جانبی (روی فایل مورد نظر ریپلای کنید):\n" +
		"    - <type> می‌تواند یکی از موارد زیر باشد: cover, signature, watermark, font.\n" +
		"    - مثال: روی یک عکس ریپلای کنید و بنویسید /upload cover.\n" +
		"\n" +
		"🎧 ارسال فایل صوتی:\n" +
		"   - اگر MP3 نباشد، به فرمت MP3 (با بیت‌ریت 192k) تبدیل شده و برای شما ارسال می‌شود.\n" +
		"   - اگر MP3 باشد، خود فایل برای شما ارسال می‌شود.\n" +
		"\n" +
		"⚙️ دستورات ادمین (مخصوص ادمین‌ها):\n" +
		"🔸 /admin add <user_id> - افزودن موقت یک کاربر به لیست ادمین‌ها.\n" +
		"🔸 /admin del <user_id> - حذف موقت یک کاربر از لیست ادمین‌ها.",
	SetupFailed: "ایجاد پروفایل شما ممکن نشد. لطفا بعدا دوباره /start را ارسال کنید.",

	ConfigCaption: "این فایل config.json فعلی شماست.\n" +
		"می‌توانید آن را ویرایش کرده و با دستور /config (به عنوان کپشن فایل) دوباره ارسال کنید تا تنظیمات به‌روز شوند.",
	ConfigMissing: "فایل config.json شما یافت نشد. لطفا ابتدا دستور /start را اجرا کنید.",
	ConfigUsage: "برای دریافت فایل کانفیگ، فقط /config را ارسال کنید.\n" +
		"برای به‌روزرسانی، فایل config.json خود را با کپشن /config ارسال نمایید.",
	ConfigWrongName: "لطفا یک فایل با نام config.json آپلود کنید.",
	ConfigUpdated:   "✅ فایل config.json شما با موفقیت به‌روزرسانی شد.",
	ConfigInvalid:   "خطا: فایل config.json آپلود شده معتبر نیست (%s). لطفا فایل را بررسی و دوباره تلاش کنید.",
	ConfigFailed:    "خطایی هنگام به‌روزرسانی کانفیگ رخ داد.",

	UploadUsage: "لطفا برای آپلود، روی یک فایل ریپلای کنید و دستور /upload <نوع_فایل> را بنویسید.\n" +
		"مثال: /upload cover (باید روی یک عکس ریپلای شده باشد)\n\n" +
		"انواع فایل مجاز:\n" +
		"▫️ cover: برای آپلود کاور موزیک (عکس).\n" +
		"▫️ signature: برای آپلود امضای صوتی (فایل صوتی).\n" +
		"▫️ watermark: برای آپلود تصویر واترمارک (عکس).\n" +
		"▫️ font: برای آپلود فونت (فایل .ttf یا .otf).",
	UploadNeedsReply:  "لطفا برای آپلود %[1]s، روی فایل مربوطه ریپلای کرده و دستور /upload %[1]s را مجددا ارسال کنید.",
	UploadNeedsKind:   "شما روی یک فایل ریپلای کردید، اما نوع آپلود را مشخص نکرده‌اید.\nلطفا نوع فایل را مشخص کنید. مثال: /upload cover\n\nانواع فایل مجاز: cover, signature, watermark, font.",
	UploadUnknownKind: "نوع آپلود %q معتبر نیست. انواع فایل مجاز: cover, signature, watermark, font.",
	UploadStored:      "✅ فایل %s ذخیره شد: %s",
	UploadFailed:      "ذخیره فایل ممکن نشد. لطفا دوباره تلاش کنید.",

	AdminDenied:        "شما اجازه استفاده از این دستور را ندارید.",
	AdminUsage:         "استفاده صحیح: /admin <add|del> <user_id>",
	AdminBadID:         "<user_id> باید یک عدد صحیح باشد.",
	AdminAdded:         "کاربر %s به لیست ادمین‌ها (موقت) اضافه شد.",
	AdminAlreadyExists: "کاربر %s در حال حاضر در لیست ادمین‌ها قرار دارد.",
	AdminRemoved:       "کاربر %s از لیست ادمین‌ها (موقت) حذف شد.",
	AdminNotFound:      "کاربر %s در لیست ادمین‌ها وجود ندارد.",
	AdminUnknownAction: "عمل نامعتبر. از add یا del استفاده کنید.",

	AudioInvalid:       "فایل صوتی معتبر نیست.",
	StatusDownloading:  "در حال دانلود فایل صوتی...",
	StatusClassifying:  "دانلود کامل شد. در حال بررسی فرمت...",
	StatusConverting:   "فرمت MP3 نیست. در حال تبدیل به MP3...",
	StatusTransforming: "در حال اعمال تنظیمات شما...",
	StatusSending:      "در حال ارسال...",
	AudioConverted:     "تبدیل شده به MP3: %s",
	AudioPassThrough:   "فایل MP3 دریافت شد: %s",
	AudioConvertFailed: "خطا در تبدیل به MP3: %s",
	AudioDownloadFail:  "دانلود فایل صوتی ممکن نشد. لطفا دوباره ارسال کنید.",
	AudioTransformFail: "اعمال تنظیمات شما روی این فایل ممکن نشد.",
	AudioFailed:        "خطایی در پردازش فایل صوتی رخ داد.",
}
