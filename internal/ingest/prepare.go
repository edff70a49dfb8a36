package ingest

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"

	"github.com/zombor/ai-accountant/internal/api"
)

// MaxFileSize is the largest document the backend accepts
const MaxFileSize = 10 * 1024 * 1024

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
}

// Document is a file that passed pre-flight and is ready to upload
type Document struct {
	Name      string
	Size      int64
	Data      []byte
	Pages     int  // PDFs only
	Converted bool // HEIC/HEIF photos are re-encoded as JPEG
}

// convertedQuality is the JPEG quality for re-encoded HEIC photos
const convertedQuality = 90

var errTooLarge = &api.ValidationError{Reason: "File too large. Maximum size is 10MB"}

// checkSize applies the upload limit to the bytes that will actually be sent
func checkSize(data []byte) error {
	if len(data) > MaxFileSize {
		return errTooLarge
	}
	return nil
}

// Prepare validates a selected file and normalizes it for upload. iPhone photos
// are converted to JPEG since the backend does not read HEIC; PDFs are opened to
// make sure they are readable before spending an upload on them.
func Prepare(name string, data []byte) (Document, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return Document{}, &api.ValidationError{Reason: "Please select a file"}
	}
	if len(data) == 0 {
		return Document{}, &api.ValidationError{Reason: fmt.Sprintf("%s is empty", name)}
	}
	if err := checkSize(data); err != nil {
		return Document{}, err
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case isHEICExtension(ext) || isHEICFormat(data):
		converted, err := heicToJPEG(data)
		if err != nil {
			return Document{}, &api.ValidationError{Reason: fmt.Sprintf("Could not read %s: %v", name, err)}
		}
		if err := checkSize(converted); err != nil {
			return Document{}, err
		}
		jpegName := strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
		return Document{Name: jpegName, Size: int64(len(converted)), Data: converted, Converted: true}, nil

	case !allowedExtensions[ext]:
		return Document{}, &api.ValidationError{
			Reason: fmt.Sprintf("File type %s not allowed. Allowed types: pdf, png, jpg, jpeg, gif, bmp, heic", displayExt(ext)),
		}

	case ext == ".pdf":
		pages, err := pdfPageCount(data)
		if err != nil {
			return Document{}, &api.ValidationError{Reason: fmt.Sprintf("Could not read %s: %v", name, err)}
		}
		return Document{Name: name, Size: int64(len(data)), Data: data, Pages: pages}, nil
	}

	return Document{Name: name, Size: int64(len(data)), Data: data}, nil
}

func displayExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}

func pdfPageCount(data []byte) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return pages, nil
}

func heicToJPEG(data []byte) ([]byte, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: convertedQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func isHEICExtension(ext string) bool {
	return ext == ".heic" || ext == ".heif"
}

// isHEICFormat looks for an ftyp box with a HEIF brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}
