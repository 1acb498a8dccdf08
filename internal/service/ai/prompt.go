package ai

import (
	"strings"
)

// PromptTemplate 描述陪伴助手的系统提示词结构。
type PromptTemplate struct {
	Role   string
	Goals  []string
	Safety []string
	Style  []string
}

// DefaultTemplate 返回心理陪伴助手的默认提示词。
func DefaultTemplate() PromptTemplate {
	return PromptTemplate{
		Role: "You are a supportive, non-judgmental mental health companion.",
		Goals: []string{
			"Be empathetic, warm, validating feelings.",
			"Ask gentle, open-ended questions.",
			"Offer self-care tips and evidence-informed psychoeducation at a high level.",
			"Encourage seeking professional help when appropriate.",
		},
		Safety: []string{
			"If user expresses intent to harm self/others, or severe crisis, respond with a supportive crisis message and guide them to contact local emergency services or trusted people immediately. Do not give medical advice or instructions for self-harm.",
			"Do NOT diagnose or prescribe. Encourage professional support.",
		},
		Style: []string{
			"Short paragraphs. Simple language. Avoid clinical jargon unless requested.",
		},
	}
}

// SystemPrompt 渲染完整的系统提示词。
func (t PromptTemplate) SystemPrompt() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(t.Role))
	writeSection(&b, "Goals", t.Goals)
	writeSection(&b, "Safety", t.Safety)
	writeSection(&b, "Style", t.Style)
	return b.String()
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(title)
	b.WriteString(":")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("\n- ")
		b.WriteString(line)
	}
}
