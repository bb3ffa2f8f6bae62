package mailmerge

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// A docx file is a zip archive of XML parts. This package builds minimal
// templates carrying MERGEFIELD instructions and inspects documents coming
// back from the deployed merge service.

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const documentFooter = `</w:body></w:document>`

// BuildTemplate creates a minimal docx template containing one merge field
// per name
func BuildTemplate(fields ...string) ([]byte, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one merge field is required")
	}

	var doc strings.Builder
	doc.WriteString(documentHeader)
	for _, field := range fields {
		if strings.ContainsAny(field, `<>&"`) {
			return nil, fmt.Errorf("invalid merge field name: %q", field)
		}
		fmt.Fprintf(&doc,
			`<w:p><w:fldSimple w:instr=" MERGEFIELD %s "><w:r><w:t>«%s»</w:t></w:r></w:fldSimple></w:p>`,
			field, field)
	}
	doc.WriteString(documentFooter)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", doc.String()},
	}

	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", part.name, err)
		}
		if _, err := io.WriteString(w, part.content); err != nil {
			return nil, fmt.Errorf("write part %s: %w", part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize template: %w", err)
	}

	return buf.Bytes(), nil
}

// Fields returns the merge field names declared in a docx document
func Fields(docx []byte) ([]string, error) {
	doc, err := documentPart(docx)
	if err != nil {
		return nil, err
	}

	var fields []string
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "fldSimple" {
			continue
		}

		for _, attr := range start.Attr {
			if attr.Name.Local != "instr" {
				continue
			}
			if name, ok := mergeFieldName(attr.Value); ok {
				fields = append(fields, name)
			}
		}
	}

	return fields, nil
}

// Text returns the concatenated text content of a docx document
func Text(docx []byte) (string, error) {
	doc, err := documentPart(docx)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("scan document: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if el.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				text.Write(el)
			}
		}
	}

	return text.String(), nil
}

// documentPart extracts word/document.xml from the docx archive
func documentPart(docx []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		return nil, fmt.Errorf("open document archive: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document part: %w", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read document part: %w", err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("document archive has no word/document.xml part")
}

// mergeFieldName extracts the field name from a MERGEFIELD instruction
func mergeFieldName(instr string) (string, bool) {
	parts := strings.Fields(instr)
	for i, part := range parts {
		if part == "MERGEFIELD" && i+1 < len(parts) {
			return strings.Trim(parts[i+1], `"`), true
		}
	}
	return "", false
}
