package extract

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"

	"readout/internal/services"
)

// pdfHandler extracts plain text from PDF responses, detected by extension
// or content type.
type pdfHandler struct{}

func (h *pdfHandler) CanHandle(rawURL string, resp *http.Response) bool {
	if strings.HasSuffix(strings.ToLower(rawURL), ".pdf") {
		return true
	}
	return strings.Contains(resp.Header.Get("Content-Type"), "application/pdf")
}

func (h *pdfHandler) Handle(_ context.Context, rawURL string, resp *http.Response) (*Document, error) {
	tempFile, err := os.CreateTemp("", "readout-*.pdf")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "extract", "pdf temp file", rawURL, err)
	}
	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempFile.Name())
	}()

	if _, err := io.Copy(tempFile, io.LimitReader(resp.Body, 50<<20)); err != nil {
		return nil, services.Wrap(services.ErrTransient, "extract", "download pdf", rawURL, err)
	}

	file, reader, err := pdf.Open(tempFile.Name())
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extract", "parse pdf", rawURL, err)
	}
	defer func() { _ = file.Close() }()

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extract", "pdf text", rawURL, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extract", "pdf text", rawURL, err)
	}

	text := strings.TrimSpace(buf.String())
	return &Document{
		Title:    pdfTitle(rawURL),
		Text:     text,
		Markdown: text,
	}, nil
}

func pdfTitle(rawURL string) string {
	base := path.Base(rawURL)
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.ReplaceAll(base, "-", " ")
}
