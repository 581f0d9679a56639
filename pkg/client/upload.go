package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/godeps/community-sdk-go/pkg/envelope"
	"github.com/godeps/community-sdk-go/pkg/middleware"
)

// MaxUploadSize caps the file attached to a single upload.
const MaxUploadSize = 10 << 20

// File is the payload of an upload.
type File struct {
	Name string
	// ContentType is sniffed from the content when empty.
	ContentType string
	Content     io.Reader
}

// OpenFile reads path into a File.
func OpenFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("client: read upload: %w", err)
	}
	return File{Name: filepath.Base(path), Content: bytes.NewReader(data)}, nil
}

// Upload posts f as a single multipart/form-data request under field. The
// whole file travels in one request. Failures without a backend message use
// envelope.UploadFailureMessage.
func (c *Client) Upload(ctx context.Context, path, field string, f File) envelope.Outcome {
	c.startOnce.Do(func() { c.startErr = c.stack.Start(ctx) })
	if c.startErr != nil {
		return envelope.TransportFailure(fmt.Errorf("client: start middleware: %w", c.startErr))
	}
	body, contentType, err := encodeMultipart(field, f)
	if err != nil {
		return envelope.TransportFailure(err)
	}
	req := &middleware.CallRequest{
		Method: http.MethodPost,
		Route:  path,
		Target: path,
		Header: http.Header{"Content-Type": {contentType}},
		Body:   body,
		Upload: true,
	}
	return c.run(ctx, req, envelope.Decoder{FallbackMessage: envelope.UploadFailureMessage})
}

func encodeMultipart(field string, f File) ([]byte, string, error) {
	if strings.TrimSpace(field) == "" {
		return nil, "", fmt.Errorf("client: upload field required")
	}
	if f.Content == nil {
		return nil, "", fmt.Errorf("client: upload content required")
	}
	data, err := io.ReadAll(io.LimitReader(f.Content, MaxUploadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("client: read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, "", fmt.Errorf("client: upload exceeds %d bytes", MaxUploadSize)
	}
	name := f.Name
	if name == "" {
		name = field
	}
	ctype := f.ContentType
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(name)))
	h.Set("Content-Type", ctype)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("client: multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("client: multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("client: multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
