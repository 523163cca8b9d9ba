package storage

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const gpxBody = `<?xml version="1.0" encoding="UTF-8"?>
<gpx xmlns="http://www.topografix.com/GPX/1/1" version="1.1" creator="test">
  <wpt lat="45.1" lon="15.2"></wpt>
</gpx>
`

func fileHeader(t *testing.T, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("trip", "trip.gpx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return req.MultipartForm.File["trip"][0]
}

func TestReadUpload(t *testing.T) {
	data, err := ReadUpload(fileHeader(t, []byte(gpxBody)), 0)
	if err != nil {
		t.Fatalf("read upload: %v", err)
	}
	if string(data) != gpxBody {
		t.Fatalf("unexpected content")
	}
}

func TestReadUploadMissing(t *testing.T) {
	if _, err := ReadUpload(nil, 0); !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected missing file, got %v", err)
	}
	if _, err := ReadUpload(fileHeader(t, nil), 0); !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected missing file for empty upload, got %v", err)
	}
}

func TestReadUploadTooLarge(t *testing.T) {
	fh := fileHeader(t, []byte(gpxBody))
	if _, err := ReadUpload(fh, 16); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
}

func TestReadUploadMimeType(t *testing.T) {
	cases := map[string]string{
		"plain text": "just some notes",
		"json":       `{"lat": 1}`,
		"other xml":  `<?xml version="1.0"?><kml xmlns="http://www.opengis.net/kml/2.2"></kml>`,
		"html":       `<html><body><gpx/></body></html>`,
		"text first": `hello <gpx></gpx>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadUpload(fileHeader(t, []byte(body)), 0)
			if !errors.Is(err, ErrMimeType) {
				t.Fatalf("expected mime type error, got %v", err)
			}
		})
	}
}

func TestReadUploadAcceptsGPXRoot(t *testing.T) {
	cases := map[string]string{
		"gpx 1.0":        `<?xml version="1.0"?><gpx version="1.0" xmlns="http://www.topografix.com/GPX/1/0"><wpt lat="1" lon="2"/></gpx>`,
		"no declaration": `<gpx><trk><trkseg><trkpt lat="45.0" lon="15.0"><ele>100</ele></trkpt></trkseg></trk></gpx>`,
		"leading comment": "\n<!-- exported -->\n<gpx creator=\"x\"></gpx>",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			data, err := ReadUpload(fileHeader(t, []byte(body)), 0)
			if err != nil {
				t.Fatalf("expected upload to be accepted, got %v", err)
			}
			if string(data) != body {
				t.Fatalf("unexpected content")
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if !strings.Contains(Message(ErrTooLarge), "too large") {
		t.Fatalf("unexpected message")
	}
	if Message(ErrMimeType) != "Please upload a valid GPX file." {
		t.Fatalf("unexpected message")
	}
	if Message(ErrMissingFile) != "Please upload a GPX file." {
		t.Fatalf("unexpected message")
	}
	if Message(errors.New("disk")) != "The file could not be uploaded." {
		t.Fatalf("unexpected fallback")
	}
}
