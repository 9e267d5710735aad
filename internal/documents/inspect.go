package documents

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// contentTypes lists the file types the backend accepts
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// LocalFile is a document read from disk and ready to upload
type LocalFile struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
	Pages       int
	SHA256      string
	Data        []byte
}

// Inspect reads and checks a file before upload
func Inspect(path string, maxSize int64) (*LocalFile, error) {
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := contentTypes[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("file is %d bytes, the limit is %d", info.Size(), maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	hash, err := computeHash(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}

	lf := &LocalFile{
		Path:        path,
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		SHA256:      hash,
		Data:        data,
	}

	if ext == ".pdf" {
		pages, err := pageCount(path)
		if err != nil {
			return nil, err
		}
		lf.Pages = pages
	}

	return lf, nil
}

// pageCount opens a PDF to make sure it is readable before it is sent
func pageCount(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return n, nil
}

func computeHash(r io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
