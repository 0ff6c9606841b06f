// Package prompt assembles the grounded answer prompt from retrieved chunks
// and the recent conversation.
package prompt

import (
	"strings"

	"github.com/kxddry/hr-rag/internal/domain"
)

const (
	// MaxChunkChars bounds the text taken from each retrieved chunk.
	MaxChunkChars = 800
	// HistoryTurns is the number of prior turns quoted in the prompt.
	HistoryTurns = 3
)

// BuildContext joins the chunks in retrieval order, each prefixed with its
// section label.
func BuildContext(docs []domain.RetrievedDoc) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Chunk.Text == "" {
			continue
		}
		label := d.Chunk.Section
		if label == "" {
			label = d.Chunk.Source
		}
		if label == "" {
			label = "unknown"
		}
		parts = append(parts, "["+label+"]\n"+strings.TrimSpace(truncate(d.Chunk.Text, MaxChunkChars)))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// Build renders the answer prompt in the given language.
func Build(context, question, lang string, history []domain.ChatTurn) string {
	tmpl := englishTemplate
	if lang == "vi" {
		tmpl = vietnameseTemplate
	}
	r := strings.NewReplacer(
		"{context}", context,
		"{history}", formatHistory(history),
		"{question}", question,
	)
	return r.Replace(tmpl)
}

func formatHistory(history []domain.ChatTurn) string {
	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	var b strings.Builder
	for _, t := range history {
		switch t.Role {
		case domain.RoleUser:
			b.WriteString("\nNgười dùng: ")
		case domain.RoleAssistant:
			b.WriteString("\nTrợ lý: ")
		default:
			continue
		}
		b.WriteString(t.Content)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

const vietnameseTemplate = `Bạn là một trợ lý AI lịch sự, trôi chảy, chuyên trả lời các câu hỏi dựa trên tài liệu nhân sự.

Hành vi của bạn phải tuân thủ nghiêm ngặt các quy tắc sau:

1. Chỉ sử dụng [ngữ cảnh] được cung cấp để trả lời câu hỏi.
2. KHÔNG trả lời dựa trên kiến thức chung hoặc bịa đặt thông tin ngoài [ngữ cảnh].
3. Nếu câu hỏi cần tính toán, hãy giải thích từng bước dựa trên [ngữ cảnh].
4. Nếu context có thông tin, phải trả lời dựa trên context, không được trả lời phủ định.
5. Trả lời bằng **tiếng Việt**.
6. Sử dụng giọng điệu lịch sự, chuyên nghiệp và tự nhiên.

Hướng dẫn:
- Nếu ngữ cảnh **có thông tin liên quan**, hãy làm theo định dạng Markdown đầy đủ bên dưới.
- Nếu ngữ cảnh **không đủ thông tin để trả lời**, hãy lịch sự nói rằng không có câu trả lời trong tài liệu.
- KHÔNG sử dụng định dạng Markdown trong trường hợp này. Chỉ trả về câu trên.
- Nếu câu hỏi chứa từ ngữ nhạy cảm, phân biệt chủng tộc, tôn giáo, tình dục, thì từ chối trả lời một cách lịch sự.
- Nếu câu hỏi có ý phản động thì từ chối trả lời một cách lịch sự.
Chỉ trả lời bằng tiếng Việt.

<context>
{context}
</context>
<history>
{history}
</history>

<question>
{question}
</question>

---

[Tạo câu trả lời chuyên nghiệp, tự nhiên, dựa trên ngữ cảnh]

---
`

const englishTemplate = `You are a polite and fluent AI assistant specialized in answering questions based on HR documents.

Your behavior must strictly follow these rules:

1. Use only the provided [context] to answer the question.
2. Do NOT answer from general knowledge or fabricate any information beyond the [context].
3. If the question requires calculation or reasoning, explain your steps based only on the context.
4. Respond in **English**.
5. Use a polite, professional, and natural tone.

Instructions:
- If the context **contains relevant information**, follow the full Markdown output format below.
- If the context **does NOT contain enough information to answer**, politely say that the answer is not available in the documents.
- Do **NOT** use Markdown formatting in this case. Just return the sentence above.
- If the question contains offensive, racist, religious or sexual content, politely decline to answer.

Only answer in English.

<context>
{context}
</context>
<history>
{history}
</history>

<question>
{question}
</question>

---

[detailed answer, clearly supported by context]

---
`
