package checker

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
)

// CheckImage transcribes visible text from an image and fact-checks it.
// The same degenerate-input policy applies as for direct text: no text means
// UNVERIFIABLE, an extraction fault means ERROR.
func (c *Checker) CheckImage(ctx context.Context, imageData []byte, mimeType string) Record {
	extracted, err := c.openaiClient.ExtractTextFromImage(ctx, imageData, mimeType)
	if err != nil {
		fault := NewFault(FaultExtraction, "image text extraction failed", err)
		c.logExtraction(ctx, "image", 0, fault)
		return c.errorRecord("", fault)
	}

	c.logExtraction(ctx, "image", len(extracted), nil)

	if strings.TrimSpace(extracted) == "" {
		return c.unverifiableRecord("", noTextConclusion)
	}

	return c.CheckText(ctx, extracted)
}

// CheckDocument extracts text from a PDF document and fact-checks it
func (c *Checker) CheckDocument(ctx context.Context, document []byte) Record {
	extracted, err := extractPDFText(document)
	if err != nil {
		fault := NewFault(FaultExtraction, "document text extraction failed", err)
		c.logExtraction(ctx, "document", 0, fault)
		return c.errorRecord("", fault)
	}

	c.logExtraction(ctx, "document", len(extracted), nil)

	if strings.TrimSpace(extracted) == "" {
		return c.unverifiableRecord("", noTextConclusion)
	}

	return c.CheckText(ctx, extracted)
}

// CheckURL extracts the readable content of a web page and fact-checks it
func (c *Checker) CheckURL(ctx context.Context, url string) Record {
	extracted, err := c.extractURL(ctx, url)
	if err != nil {
		fault := NewFault(FaultExtraction, fmt.Sprintf("content extraction failed for %s", url), err)
		c.logExtraction(ctx, "url", 0, fault)
		return c.errorRecord("", fault)
	}

	c.logExtraction(ctx, "url", len(extracted), nil)

	if strings.TrimSpace(extracted) == "" {
		return c.unverifiableRecord("", noTextConclusion)
	}

	return c.CheckText(ctx, extracted)
}

// extractURL delegates to the search backend's content extraction, falling
// back to a direct fetch with readability parsing when that fails
func (c *Checker) extractURL(ctx context.Context, url string) (string, error) {
	content, err := c.tavilyClient.Extract(ctx, url)
	if err == nil {
		return content, nil
	}

	c.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID(ctx),
		"url":            url,
		"error":          err.Error(),
	}).Warn("Tavily extraction failed, trying direct fetch")

	content, fetchErr := fetchReadable(ctx, url)
	if fetchErr != nil {
		return "", fmt.Errorf("tavily extract: %v; direct fetch: %w", err, fetchErr)
	}
	return content, nil
}

// extractPDFText concatenates per-page extracted text across all pages in
// order. Image-only pages yield no text; there is no OCR fallback.
func extractPDFText(document []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var builder strings.Builder
	total := reader.NumPage()
	for pageNum := 1; pageNum <= total; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages, keep the rest
			continue
		}
		builder.WriteString(text)
	}

	return builder.String(), nil
}

// fetchReadable fetches a URL directly and extracts the article text
func fetchReadable(ctx context.Context, url string) (string, error) {
	parsedURL, err := nurl.Parse(url)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch failed with status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed: %w", err)
	}

	return article.TextContent, nil
}

// logExtraction emits one diagnostic event per extraction step
func (c *Checker) logExtraction(ctx context.Context, source string, extractedLength int, err error) {
	fields := map[string]interface{}{
		"correlation_id":   correlationID(ctx),
		"source":           source,
		"extracted_length": extractedLength,
	}
	if err != nil {
		fields["error"] = err.Error()
		c.logger.WithFields(fields).Error("Extraction step failed")
		return
	}
	c.logger.WithFields(fields).Info("Extraction step completed")
}
