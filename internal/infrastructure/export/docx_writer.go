// Package export 提供 DOCX 文档导出实现
package export

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-assist-api/internal/config"
	"ebook-assist-api/internal/domain/entity"
)

var tracer = otel.Tracer("export")

// DocxWriter 把向导内容写成 DOCX 文件
type DocxWriter struct {
	outputDir string
	fileName  string
}

// NewDocxWriter 创建 DOCX 导出器
func NewDocxWriter(cfg *config.ExportConfig) *DocxWriter {
	fileName := cfg.FileName
	if fileName == "" {
		fileName = "ebook_generated.docx"
	}
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	return &DocxWriter{
		outputDir: outputDir,
		fileName:  fileName,
	}
}

// WriteEbook 生成文档：标题页、索引（逐行项目符号）、章节按编号升序各起新页。
// 生成文本可能带 HTML 实体，写入前统一反转义。
func (w *DocxWriter) WriteEbook(ctx context.Context, title string, content []entity.ContentEntry) (string, error) {
	_, span := tracer.Start(ctx, "export.WriteEbook",
		trace.WithAttributes(attribute.String("export.title", title)))
	defer span.End()

	doc := docx.New().WithDefaultTheme()

	titlePara := doc.AddParagraph().Justification("center")
	titlePara.AddText(html.UnescapeString(title)).Size("44").Bold()

	if index := indexEntry(content); index != "" {
		doc.AddParagraph().AddPageBreaks()
		doc.AddParagraph().AddText("Índice").Size("32").Bold()
		for _, line := range indexLines(index) {
			doc.AddParagraph().AddText("• " + line)
		}
	}

	for _, chapter := range sortedChapters(content) {
		doc.AddParagraph().AddPageBreaks()
		doc.AddParagraph().AddText("Capítulo " + strconv.Itoa(chapter.Number)).Size("32").Bold()
		for _, paragraph := range chapterParagraphs(chapter.Text) {
			doc.AddParagraph().AddText(paragraph)
		}
	}

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(w.outputDir, w.fileName)
	f, err := os.Create(path)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to create docx file: %w", err)
	}
	defer f.Close()

	if _, err := doc.WriteTo(f); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to write docx: %w", err)
	}
	return path, nil
}

// indexEntry 取出索引条目文本，不存在返回空串
func indexEntry(content []entity.ContentEntry) string {
	for _, e := range content {
		if e.Kind == entity.ContentIndex {
			return e.Text
		}
	}
	return ""
}

// indexLines 把索引文本拆成非空行，反转义 HTML 实体
func indexLines(index string) []string {
	var lines []string
	for _, line := range strings.Split(html.UnescapeString(index), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// chapterParagraphs 按空行拆分章节文本成段落
func chapterParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(html.UnescapeString(text), "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// sortedChapters 返回按章节编号升序排列的章节条目
func sortedChapters(content []entity.ContentEntry) []entity.ContentEntry {
	var chapters []entity.ContentEntry
	for _, e := range content {
		if e.Kind == entity.ContentChapter {
			chapters = append(chapters, e)
		}
	}
	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].Number < chapters[j].Number
	})
	return chapters
}
