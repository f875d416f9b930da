package qr

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestDataURL(t *testing.T) {
	dataURL, err := DataURL("http://quiz.local/student?quizId=abc")
	if err != nil {
		t.Fatalf("DataURL failed: %v", err)
	}

	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		t.Fatalf("data URL missing PNG prefix: %.40s", dataURL)
	}

	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatal("decoded payload is not a PNG image")
	}
}

func TestDataURLEmptyContent(t *testing.T) {
	if _, err := DataURL(""); err == nil {
		t.Fatal("expected error for empty content")
	}
}
