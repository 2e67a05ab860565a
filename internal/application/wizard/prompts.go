package wizard

import (
	"fmt"

	"ebook-assist-api/internal/domain/entity"
)

// stepPrompts 各输入步骤给用户的提示文案
var stepPrompts = map[entity.WizardStep]string{
	entity.StepAskTitle:            "¿Cuál será el título del ebook?",
	entity.StepAskTopic:            "¿Cuál es el tema principal?",
	entity.StepAskAudience:         "¿Quién es tu público objetivo?",
	entity.StepAskTone:             "¿Qué tono quieres para la redacción? (formal, motivador, etc.)",
	entity.StepAskChapterCount:     "¿Cuántos capítulos aproximadamente querés?",
	entity.StepGenerateIndex:       "La generación del índice falló. Enviá cualquier mensaje para reintentar.",
	entity.StepConfirmIndex:        "¿Querés que comience a escribir todos los capítulos? (sí/no)",
	entity.StepGenerateAllChapters: "La generación de capítulos falló. Enviá cualquier mensaje para reintentar.",
	entity.StepFinalize:            "¿Querés que cree el archivo DOCX para descargar? (sí/no)",
	entity.StepComplete:            "Proceso finalizado. Reiniciá la sesión para crear otro ebook.",
}

// indexPrompt 构造索引生成 prompt
func indexPrompt(p entity.EbookParams) string {
	return fmt.Sprintf(`Crea un índice para un ebook titulado '%s',
tema: %s, público objetivo: %s,
tono: %s, con %d capítulos.
Separa títulos y subtítulos claramente.`,
		p.Title, p.Topic, p.Audience, p.Tone, p.Chapters)
}

// chapterPrompt 构造第 number 章的生成 prompt，带上已生成的索引
func chapterPrompt(p entity.EbookParams, indexText string, number int) string {
	return fmt.Sprintf(`Escribe el capítulo %d del ebook titulado '%s'.
Tema general: %s
Público objetivo: %s
Tono: %s
Índice: %s

Desarrolla el capítulo con subtítulos y ejemplos. Extensión mínima: 800 palabras.`,
		number, p.Title, p.Topic, p.Audience, p.Tone, indexText)
}
