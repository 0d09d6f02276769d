package render

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/casework/internal/telemetry"
)

// PDF renders doc. The output depends only on doc: the creation and modification
// dates come from GeneratedAt and the PDF catalog is written in sorted order.
func PDF(ctx context.Context, doc Document) ([]byte, error) {
	start := time.Now()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, MarginBottom)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("casework", false)

	// Core fonts are cp1252; translate so names with accents survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	page := 0
	for _, p := range Layout(doc) {
		for page < p.Page {
			pdf.AddPage()
			page++
		}

		pdf.SetFont(DefaultFont, "", p.Size)
		text := tr(p.Text)
		x := p.X
		if p.Centered {
			x -= pdf.GetStringWidth(text) / 2
		}
		pdf.Text(x, p.Y, text)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	metrics := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.Int("pages", page))
	metrics.PDFRenderDuration.Record(ctx, telemetry.Millis(time.Since(start)), attrs)
	metrics.PDFBytes.Record(ctx, int64(buf.Len()), attrs)

	return buf.Bytes(), nil
}
