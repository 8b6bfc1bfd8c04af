package ingest

import (
	"strings"
	"testing"

	"github.com/archonhq/archon/internal/storage"
)

func TestExtractTextPlain(t *testing.T) {
	doc := storage.RequirementDoc{
		ContentType: storage.DocTypeText,
		Raw:         []byte("  we need a scalable app  \n"),
	}

	text, err := ExtractText(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "we need a scalable app" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractTextUnsupportedType(t *testing.T) {
	doc := storage.RequirementDoc{ContentType: "docx", Raw: []byte("data")}

	_, err := ExtractText(doc)
	if err == nil || !strings.Contains(err.Error(), "unsupported content type") {
		t.Fatalf("err = %v, want unsupported content type", err)
	}
}

func TestExtractHTML(t *testing.T) {
	raw := []byte(`<html><head>
		<style>body { color: red; }</style>
		<script>console.log("skip me")</script>
	</head><body>
		<h1>Requirements</h1>
		<p>The system must handle <b>10k</b> users.</p>
		<ul><li>PostgreSQL</li><li>Low latency</li></ul>
	</body></html>`)

	text, err := extractHTML(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(text, "color: red") || strings.Contains(text, "skip me") {
		t.Errorf("style/script content leaked into %q", text)
	}

	lines := strings.Split(text, "\n")
	want := []string{
		"Requirements",
		"The system must handle 10k users.",
		"PostgreSQL",
		"Low latency",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %d lines", lines, len(want))
	}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("line %d = %q, want %q", i, lines[i], line)
		}
	}
}

func TestExtractHTMLCollapsesBlankLines(t *testing.T) {
	raw := []byte("<div>first</div><div></div><div>  </div><div>second</div>")

	text, err := extractHTML(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "first\nsecond" {
		t.Errorf("text = %q, want blank lines collapsed", text)
	}
}

func TestExtractPDFInvalidData(t *testing.T) {
	doc := storage.RequirementDoc{
		ContentType: storage.DocTypePDF,
		Raw:         []byte("not a pdf"),
	}

	if _, err := ExtractText(doc); err == nil {
		t.Fatal("expected error for malformed pdf data")
	}
}
