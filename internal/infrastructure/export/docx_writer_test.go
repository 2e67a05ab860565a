package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-assist-api/internal/config"
	"ebook-assist-api/internal/domain/entity"
)

func TestIndexLines(t *testing.T) {
	index := "Capítulo 1: Introducción\n\n  Capítulo 2: Conceptos  \n\nCapítulo 3: Pr&aacute;ctica\n"
	lines := indexLines(index)
	assert.Equal(t, []string{
		"Capítulo 1: Introducción",
		"Capítulo 2: Conceptos",
		"Capítulo 3: Práctica",
	}, lines)
}

func TestIndexLines_Empty(t *testing.T) {
	assert.Empty(t, indexLines(""))
	assert.Empty(t, indexLines("\n\n  \n"))
}

func TestChapterParagraphs(t *testing.T) {
	text := "Primer p&aacute;rrafo.\n\nSegundo párrafo\ncon salto simple.\n\n\n\nTercero."
	paragraphs := chapterParagraphs(text)
	require.Len(t, paragraphs, 3)
	assert.Equal(t, "Primer párrafo.", paragraphs[0])
	assert.Equal(t, "Segundo párrafo\ncon salto simple.", paragraphs[1])
	assert.Equal(t, "Tercero.", paragraphs[2])
}

func TestSortedChapters(t *testing.T) {
	content := []entity.ContentEntry{
		{Kind: entity.ContentChapter, Number: 3, Text: "tres"},
		{Kind: entity.ContentIndex, Text: "índice"},
		{Kind: entity.ContentChapter, Number: 1, Text: "uno"},
		{Kind: entity.ContentChapter, Number: 2, Text: "dos"},
	}
	chapters := sortedChapters(content)
	require.Len(t, chapters, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{chapters[0].Number, chapters[1].Number, chapters[2].Number})
}

func TestIndexEntry(t *testing.T) {
	content := []entity.ContentEntry{
		{Kind: entity.ContentChapter, Number: 1, Text: "uno"},
		{Kind: entity.ContentIndex, Text: "índice"},
	}
	assert.Equal(t, "índice", indexEntry(content))
	assert.Empty(t, indexEntry(nil))
}

func TestWriteEbook(t *testing.T) {
	dir := t.TempDir()
	writer := NewDocxWriter(&config.ExportConfig{
		OutputDir: dir,
		FileName:  "ebook_generated.docx",
	})

	content := []entity.ContentEntry{
		{Kind: entity.ContentIndex, Text: "Capítulo 1: Introducción\nCapítulo 2: Cierre"},
		{Kind: entity.ContentChapter, Number: 2, Text: "Texto del segundo capítulo."},
		{Kind: entity.ContentChapter, Number: 1, Text: "Texto del primero.\n\nOtro párrafo."},
	}

	path, err := writer.WriteEbook(context.Background(), "Mi Ebook", content)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ebook_generated.docx"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestNewDocxWriter_Defaults(t *testing.T) {
	writer := NewDocxWriter(&config.ExportConfig{})
	assert.Equal(t, ".", writer.outputDir)
	assert.Equal(t, "ebook_generated.docx", writer.fileName)
}
