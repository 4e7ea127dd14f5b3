// Package extract turns PDF document bytes into plain text. Several
// extraction methods run in parallel and a deterministic quality score
// picks the winner, since no single PDF library handles every producer.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Method extracts text from raw document bytes.
type Method interface {
	Name() string
	Extract(data []byte) (string, error)
}

var (
	_ Method = (*plainTextMethod)(nil)
	_ Method = (*rowTextMethod)(nil)
	_ Method = (*rawTextMethod)(nil)
)

// plainTextMethod uses the pdf reader's whole-document text stream.
// Fastest, but loses reading order on multi-column layouts.
type plainTextMethod struct{}

func (plainTextMethod) Name() string { return "pdftext" }

func (plainTextMethod) Extract(data []byte) (text string, err error) {
	defer recoverExtract(&err)

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	stream, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading text stream: %w", err)
	}
	out, err := io.ReadAll(stream)
	if err != nil {
		return "", fmt.Errorf("draining text stream: %w", err)
	}
	return string(out), nil
}

// rowTextMethod walks pages row by row. Slower than the plain stream but
// keeps line structure, which helps with form-style contracts.
type rowTextMethod struct{}

func (rowTextMethod) Name() string { return "pdfrows" }

func (rowTextMethod) Extract(data []byte) (text string, err error) {
	defer recoverExtract(&err)

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d rows: %w", i, err)
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word.S)
			}
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// rawTextMethod scans the bytes for printable ASCII runs. It is the last
// resort for documents the pdf library cannot parse at all; it recovers
// uncompressed text objects and metadata strings.
type rawTextMethod struct {
	minRun int
}

func (rawTextMethod) Name() string { return "rawtext" }

func (m rawTextMethod) Extract(data []byte) (string, error) {
	minRun := m.minRun
	if minRun <= 0 {
		minRun = 4
	}

	var sb strings.Builder
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minRun {
			sb.Write(data[start:end])
			sb.WriteByte('\n')
		}
		start = -1
	}
	for i, b := range data {
		if b >= 0x20 && b < 0x7f {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(data))

	if sb.Len() == 0 {
		return "", fmt.Errorf("no printable text found")
	}
	return sb.String(), nil
}

// The pdf library panics on some malformed cross-reference tables.
func recoverExtract(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pdf parser panicked: %v", r)
	}
}
