package processor

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const docxBody = "word/document.xml"

// DocxInfo is what a DOCX upload tells us before it is converted to PDF.
type DocxInfo struct {
	// Placeholders are the distinct {{name}} markers in document order.
	Placeholders []string `json:"placeholders"`
	Landscape    bool     `json:"landscape"`
}

// InspectDocx reads the main document part of a DOCX file held in memory.
func InspectDocx(data []byte) (*DocxInfo, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}

	var body []byte
	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", docxBody, err)
		}
		body, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", docxBody, err)
		}
		break
	}
	if body == nil {
		return nil, fmt.Errorf("failed to read docx: %s missing", docxBody)
	}

	content := string(body)
	return &DocxInfo{
		Placeholders: placeholders(removeXMLTags(content)),
		Landscape:    landscape(content),
	}, nil
}

// placeholders collects {{name}} markers. Word often splits a marker across
// runs, which is why tags are removed first.
func placeholders(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for start := 0; ; {
		open := strings.Index(text[start:], "{{")
		if open == -1 {
			break
		}
		open += start
		end := strings.Index(text[open:], "}}")
		if end == -1 {
			break
		}
		end += open

		name := strings.TrimSpace(text[open+2 : end])
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
		start = end + 2
	}
	return out
}

func removeXMLTags(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	inTag := false
	for _, char := range content {
		switch {
		case char == '<':
			inTag = true
		case char == '>':
			inTag = false
		case !inTag:
			b.WriteRune(char)
		}
	}
	return b.String()
}

// landscape reads the page setup of the first section: an explicit
// w:orient wins, otherwise a page wider than tall is landscape.
func landscape(content string) bool {
	sect := strings.Index(content, "<w:sectPr")
	if sect == -1 {
		return false
	}
	pgSz := strings.Index(content[sect:], "<w:pgSz")
	if pgSz == -1 {
		return false
	}
	tag := content[sect+pgSz:]
	if end := strings.Index(tag, "/>"); end != -1 {
		tag = tag[:end]
	}

	if orient, ok := attr(tag, "w:orient"); ok {
		return orient == "landscape"
	}
	w, _ := attr(tag, "w:w")
	h, _ := attr(tag, "w:h")
	width, errW := strconv.ParseFloat(w, 64)
	height, errH := strconv.ParseFloat(h, 64)
	return errW == nil && errH == nil && width > height
}

func attr(tag, name string) (string, bool) {
	start := strings.Index(tag, name+`="`)
	if start == -1 {
		return "", false
	}
	start += len(name) + 2
	end := strings.Index(tag[start:], `"`)
	if end == -1 {
		return "", false
	}
	return tag[start : start+end], true
}
