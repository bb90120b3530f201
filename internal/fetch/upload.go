package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// FileField is one file part of a multipart upload.
type FileField struct {
	FieldName   string
	Path        string
	ContentType string
}

// UploadFile posts a single file as multipart/form-data.
func (c *Client) UploadFile(ctx context.Context, rawURL string, file FileField, fields map[string]string) ([]byte, error) {
	return c.UploadFiles(ctx, rawURL, []FileField{file}, fields)
}

// UploadFiles posts files and plain form fields as multipart/form-data.
// Every path is checked before any network call is made.
func (c *Client) UploadFiles(ctx context.Context, rawURL string, files []FileField, fields map[string]string) ([]byte, error) {
	for _, f := range files {
		if err := checkFile(f.Path); err != nil {
			return nil, err
		}
	}

	body, contentType, err := c.buildMultipart(files, fields)
	if err != nil {
		return nil, err
	}

	return c.Do(ctx, http.MethodPost, rawURL, body, contentType)
}

func (c *Client) buildMultipart(files []FileField, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(c.newBoundary()); err != nil {
		return nil, "", fmt.Errorf("set boundary: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	for _, f := range files {
		if err := writeFilePart(w, f); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, f FileField) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return &Error{Kind: ErrFileNotFound, Err: err}
	}
	defer file.Close()

	fieldName := f.FieldName
	if fieldName == "" {
		fieldName = "file"
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(f.Path))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(fieldName), escapeQuotes(filepath.Base(f.Path))))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", fieldName, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy %s: %w", f.Path, err)
	}
	return nil
}

func checkFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return &Error{Kind: ErrFileNotFound}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &Error{Kind: ErrFileNotFound, Err: err}
	}
	if info.IsDir() {
		return &Error{Kind: ErrFileNotFound, Err: fmt.Errorf("%s is a directory", path)}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func randomBoundary() string {
	return "Boundary-" + uuid.NewString()
}
