package media

import (
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestClassifyDocument(t *testing.T) {
	msg := &tgbotapi.Message{
		Document: &tgbotapi.Document{
			FileID:   "doc-1",
			FileName: "report.pdf",
			FileSize: 2048,
			MimeType: "application/pdf",
			Thumbnail: &tgbotapi.PhotoSize{
				FileID: "thumb-1",
			},
		},
	}
	d, err := Classify(msg)
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != KindDocument || d.Name != "report.pdf" || d.Size != 2048 {
		t.Fatalf("descriptor: %+v", d)
	}
	if d.ThumbFileID != "thumb-1" {
		t.Fatalf("thumb: %q", d.ThumbFileID)
	}
}

func TestClassifyDocumentWithoutName(t *testing.T) {
	msg := &tgbotapi.Message{
		Date:     1700000000,
		Document: &tgbotapi.Document{FileID: "doc-1"},
	}
	d, err := Classify(msg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(d.Name, "document_") {
		t.Fatalf("synthesized name: %q", d.Name)
	}
}

func TestClassifyPhotoKeepsLargest(t *testing.T) {
	msg := &tgbotapi.Message{
		Date: 1700000000,
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", FileSize: 100},
			{FileID: "large", FileSize: 9000},
			{FileID: "medium", FileSize: 800},
		},
	}
	d, err := Classify(msg)
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != KindPhoto || d.TelegramFileID != "large" {
		t.Fatalf("descriptor: %+v", d)
	}
}

func TestClassifyVideoSynthesizesName(t *testing.T) {
	msg := &tgbotapi.Message{
		Date:  1700000000,
		Video: &tgbotapi.Video{FileID: "vid-1", FileSize: 500},
	}
	d, err := Classify(msg)
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != KindVideo || !strings.HasSuffix(d.Name, ".mp4") {
		t.Fatalf("descriptor: %+v", d)
	}
}

func TestClassifyUnsupported(t *testing.T) {
	if _, err := Classify(&tgbotapi.Message{Text: "just text"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
}

func TestCleanFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{`bad<>:"/\|?*name.txt`, "badname.txt"},
		{"   spaced.doc  ", "spaced.doc"},
		{"", "file"},
		{`"""`, "file"},
	}
	for _, c := range cases {
		if got := CleanFilename(c.in); got != c.want {
			t.Errorf("CleanFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanFilenameBoundsLength(t *testing.T) {
	long := strings.Repeat("x", 100) + ".mkv"
	got := CleanFilename(long)
	if len([]rune(got)) > 64 {
		t.Fatalf("length not bounded: %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, ".mkv") {
		t.Fatalf("extension lost: %q", got)
	}
}

func TestParseKind(t *testing.T) {
	if ParseKind("video") != KindVideo {
		t.Fatal("video did not parse")
	}
	if ParseKind("nonsense") != KindUnknown {
		t.Fatal("unknown kind not defaulted")
	}
}

func TestKindLabel(t *testing.T) {
	if KindVideoNote.Label() != "video note" {
		t.Fatalf("label: %q", KindVideoNote.Label())
	}
	if KindUnknown.Label() != "file" {
		t.Fatalf("label: %q", KindUnknown.Label())
	}
}
