package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DocxExtractor reads body paragraphs and top-level tables from word/document.xml.
type DocxExtractor struct {
	logger *slog.Logger
}

func NewDocxExtractor(logger *slog.Logger) *DocxExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocxExtractor{logger: logger}
}

func (e *DocxExtractor) Extract(_ context.Context, data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{Method: "docx"}, fmt.Errorf("open docx: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return Result{Method: "docx"}, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return Result{Method: "docx"}, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	paragraphs, tables, err := parseDocumentXML(rc)
	if err != nil {
		return Result{Method: "docx"}, err
	}

	parts := make([]string, 0, len(paragraphs)+len(tables))
	parts = append(parts, paragraphs...)
	for i, rows := range tables {
		lines := []string{fmt.Sprintf("--- Table %d ---", i+1)}
		for _, cells := range rows {
			lines = append(lines, strings.Join(cells, "\t"))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	e.logger.Debug("extract.docx.parsed", "paragraphs", len(paragraphs), "tables", len(tables))
	return Result{Text: strings.Join(parts, "\n"), Method: "docx", Pages: 1}, nil
}

// parseDocumentXML walks the WordprocessingML body. Paragraphs inside tables
// belong to their cell; nested tables are flattened into the enclosing cell.
func parseDocumentXML(r io.Reader) (paragraphs []string, tables [][][]string, err error) {
	dec := xml.NewDecoder(r)

	var (
		tableDepth int
		propsDepth int
		inText     bool
		para       strings.Builder
		cellParas  []string
		row        []string
		rows       [][]string
	)

	for {
		tok, tokErr := dec.Token()
		if errors.Is(tokErr, io.EOF) {
			break
		}
		if tokErr != nil {
			return nil, nil, fmt.Errorf("parse document.xml: %w", tokErr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					rows = nil
				}
			case "tr":
				if tableDepth == 1 {
					row = nil
				}
			case "tc":
				if tableDepth == 1 {
					cellParas = nil
				}
			case "p":
				para.Reset()
			case "pPr":
				propsDepth++
			case "t":
				inText = true
			case "tab":
				// w:tab inside w:pPr/w:tabs is a tab stop definition, not content
				if propsDepth == 0 {
					para.WriteString("\t")
				}
			case "br", "cr":
				para.WriteString("\n")
			}

		case xml.CharData:
			if inText {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "pPr":
				propsDepth--
			case "t":
				inText = false
			case "p":
				text := para.String()
				if tableDepth == 0 {
					if s := strings.TrimSpace(text); s != "" {
						paragraphs = append(paragraphs, s)
					}
				} else {
					cellParas = append(cellParas, text)
				}
				para.Reset()
			case "tc":
				if tableDepth == 1 {
					row = append(row, strings.TrimSpace(strings.Join(cellParas, "\n")))
				}
			case "tr":
				if tableDepth == 1 {
					rows = append(rows, row)
				}
			case "tbl":
				if tableDepth == 1 {
					tables = append(tables, rows)
				}
				tableDepth--
			}
		}
	}
	return paragraphs, tables, nil
}
