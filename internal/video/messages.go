package video

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgPreparing  = "Preparing your request..."
	msgStarted    = "Your video is being generated. This can take a few minutes."
	msgFinalizing = "Finalizing your video..."
)

// progressMessages rotate while the operation is still running.
var progressMessages = []string{
	"Warming up the cameras...",
	"Composing the first frames...",
	"Animating your scene...",
	"Rendering motion and lighting...",
	"Still working, good videos take time...",
}

var supportedLocales = []language.Tag{language.English, language.Indonesian}

var localeMatcher = language.NewMatcher(supportedLocales)

// indonesian translates every text the runner shows.
var indonesian = map[string]string{
	msgPreparing:  "Menyiapkan permintaan Anda...",
	msgStarted:    "Video Anda sedang dibuat. Proses ini bisa memakan waktu beberapa menit.",
	msgFinalizing: "Menyelesaikan video Anda...",

	"Warming up the cameras...":               "Menyiapkan kamera...",
	"Composing the first frames...":           "Menyusun bingkai pertama...",
	"Animating your scene...":                 "Menganimasikan adegan Anda...",
	"Rendering motion and lighting...":        "Merender gerakan dan pencahayaan...",
	"Still working, good videos take time...": "Masih diproses, video yang bagus butuh waktu...",
}

func init() {
	for key, msg := range indonesian {
		if err := message.SetString(language.Indonesian, key, msg); err != nil {
			panic(fmt.Sprintf("video: register %q: %v", key, err))
		}
	}
}

// printerFor returns a printer for the closest supported locale. Unknown or
// empty locales print English.
func printerFor(locale string) *message.Printer {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			_, idx, _ := localeMatcher.Match(parsed)
			tag = supportedLocales[idx]
		}
	}
	return message.NewPrinter(tag)
}

func progressText(p *message.Printer, polls int) string {
	if polls <= 0 {
		return p.Sprintf(msgStarted)
	}
	return p.Sprintf(progressMessages[(polls-1)%len(progressMessages)])
}
