// Package storage reads uploaded GPX files into memory.
package storage

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// GPXMimeType is the sniffed type of a GPX 1.1 upload.
	GPXMimeType = "application/gpx+xml"

	DefaultMaxBytes int64 = 10 << 20
)

var (
	ErrMissingFile = errors.New("no file uploaded")
	ErrTooLarge    = errors.New("file is too large")
	ErrMimeType    = errors.New("invalid mime type")
)

// ReadUpload reads fh completely after checking its size and sniffed
// content type. maxBytes <= 0 means DefaultMaxBytes.
func ReadUpload(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if fh == nil {
		return nil, ErrMissingFile
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if fh.Size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, fh.Size, maxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit %d", ErrTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return nil, ErrMissingFile
	}

	if mt := mimetype.Detect(data); !acceptable(mt, data) {
		return nil, fmt.Errorf("%w: %s", ErrMimeType, mt.String())
	}
	return data, nil
}

// acceptable admits content sniffed as GPX, and textual content whose root
// element is <gpx>. The second case covers GPX 1.0 files and files without
// an XML declaration, which the sniffer reports as text/xml or text/plain.
func acceptable(mt *mimetype.MIME, data []byte) bool {
	if mt.Is(GPXMimeType) {
		return true
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return rootIsGPX(data)
		}
	}
	return false
}

func rootIsGPX(data []byte) bool {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			return strings.EqualFold(tok.Name.Local, "gpx")
		case xml.CharData:
			if len(bytes.TrimSpace(tok)) > 0 {
				return false
			}
		}
	}
}

// Message is the text shown to clients for an upload error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissingFile):
		return "Please upload a GPX file."
	case errors.Is(err, ErrTooLarge):
		return "The file is too large."
	case errors.Is(err, ErrMimeType):
		return "Please upload a valid GPX file."
	}
	return "The file could not be uploaded."
}
