package classifier

import (
	"strings"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/hrterms"
	"github.com/kxddry/hr-rag/internal/textnorm"
)

var (
	chitchatKeywords = []string{
		"chào", "xin chào", "hello", "hi", "chào bạn", "hế nhô", "cảm ơn", "tạm biệt",
		"bạn là ai", "bạn làm gì", "khỏe không", "vui", "buồn", "robot", "trò chuyện",
		"kể chuyện", "tâm sự", "thích", "goodbye",
	}
	basicGreetings = []string{"xin chào", "hello", "hi", "chào", "chào bạn", "chào anh", "chào chị"}
)

// IsQuickChitchat reports whether the question opens with, or contains as a
// whole word, a small talk keyword.
func IsQuickChitchat(question string) bool {
	q := strings.TrimSpace(textnorm.Lower(question))
	for _, kw := range chitchatKeywords {
		if strings.HasPrefix(q, kw) || strings.Contains(" "+q+" ", " "+kw+" ") {
			return true
		}
	}
	return false
}

// QuickAnswer looks the question up in the curated chitchat pairs by
// substring containment in either direction.
func QuickAnswer(data *Dataset, question string) string {
	q := strings.TrimSpace(textnorm.Lower(question))
	if q == "" {
		return ""
	}
	for _, qa := range data.Chitchat {
		k := textnorm.Lower(qa.Question)
		if k == "" || qa.Response == "" {
			continue
		}
		if strings.Contains(q, k) || strings.Contains(k, q) {
			return qa.Response
		}
	}
	return ""
}

// IsBasicGreeting reports whether the question contains a greeting word.
func IsBasicGreeting(question string) bool {
	q := textnorm.Normalize(question)
	for _, g := range basicGreetings {
		if textnorm.HasPhrase(q, g) {
			return true
		}
	}
	return false
}

// ShouldChitchat decides whether a classified question is answered as small
// talk: chitchat or a greeting, and never when it mentions an HR term.
func ShouldChitchat(r domain.ClassificationResult, question string) bool {
	chat := r.QuestionType == domain.QuestionChitchat || IsBasicGreeting(question)
	return chat && !hrterms.IsHR(question)
}

// ChitchatPrompt asks for a short friendly reply.
func ChitchatPrompt(question, lang string) string {
	instruction := "Answer the following question in a natural, concise (max 3 sentences), and friendly way as if chatting. No need to be too formal."
	if lang == "vi" {
		instruction = "Trả lời câu hỏi sau một cách tự nhiên, ngắn gọn (tối đa 3 câu), thân thiện như đang trò chuyện. Không cần quá trang trọng."
	}
	return instruction + "\nCâu hỏi: " + question
}
