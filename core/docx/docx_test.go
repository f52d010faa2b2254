package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func testOptions() Options {
	return Options{
		Title:            "T & C",
		BodyFont:         "Inter",
		HeadingFont:      "Lora",
		BodySize:         12,
		HeadingSizes:     [6]float64{24, 18, 15, 13.5, 12, 10.5},
		Color:            "#1f2937",
		LineHeight:       1.5,
		ParagraphSpacing: 1.5,
		PageWidth:        210,
		PageHeight:       297,
		Margin:           25.4,
	}
}

func TestPackage(t *testing.T) {
	data, err := Package([]Paragraph{
		{Heading: 1, Text: "Title"},
		{},
		{Text: "Body <b>&</b> **stars**"},
	}, testOptions())
	require.NoError(t, err)

	doc := readPart(t, data, "word/document.xml")
	assert.Contains(t, doc, `<w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t xml:space="preserve">Title</w:t>`)
	assert.Contains(t, doc, "<w:p/>")
	assert.Contains(t, doc, "Body &lt;b&gt;&amp;&lt;/b&gt; **stars**")
	assert.Contains(t, doc, `<w:pgSz w:w="11906" w:h="16838"/>`)
	assert.Contains(t, doc, `w:top="1440"`)

	styles := readPart(t, data, "word/styles.xml")
	assert.Contains(t, styles, `<w:sz w:val="24"/>`)
	assert.Contains(t, styles, `<w:color w:val="1f2937"/>`)
	assert.Contains(t, styles, `w:line="360"`)
	assert.Contains(t, styles, `w:after="360"`)
	assert.Contains(t, styles, `w:styleId="Heading6"`)
	assert.Contains(t, styles, `<w:outlineLvl w:val="0"/>`)
	assert.Contains(t, styles, `w:ascii="Lora"`)

	core := readPart(t, data, "docProps/core.xml")
	assert.Contains(t, core, "T &amp; C")

	readPart(t, data, "[Content_Types].xml")
	readPart(t, data, "_rels/.rels")
	readPart(t, data, "word/_rels/document.xml.rels")
}

func TestPackageRejectsBadLevel(t *testing.T) {
	_, err := Package([]Paragraph{{Heading: 7, Text: "x"}}, testOptions())
	assert.ErrorContains(t, err, "invalid heading level")
}
