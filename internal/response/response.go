// Package response holds the user-facing messages, the check applied to
// generated answers and language detection.
package response

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"

	"github.com/kxddry/hr-rag/internal/textnorm"
)

const (
	LangVI = "vi"
	LangEN = "en"
)

// noInfoIndicators mark answers where the model admitted it found nothing.
var noInfoIndicators = []string{
	"không có thông tin",
	"không tìm thấy",
	"tài liệu được cung cấp không có",
	"tài liệu chưa đủ thông tin",
	"vui lòng cho biết",
	"mình cần hỗ trợ",
	"không có câu trả lời",
	"the answer is not available",
	"không thể tìm thấy thông tin",
	"xin lỗi, tôi không",
	"tôi không thể trả lời",
	"không có dữ liệu",
	"thông tin không có",
	"sorry, i cannot",
	"i don't have information",
	"no information available",
	"unable to find",
	"không có tài liệu nào",
	"tài liệu không chứa",
}

var genericPhrases = []string{
	"dựa trên thông tin",
	"theo tài liệu",
	"có thể nói rằng",
	"tôi hiểu rằng",
	"based on the information",
	"according to the document",
}

const (
	minAnswerChars  = 50
	minContentChars = 30
)

// Valid reports whether a generated answer can be shown as is. Empty or
// short answers, answers admitting missing information and answers made
// only of stock phrases are rejected.
func Valid(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" || utf8.RuneCountInString(trimmed) < minAnswerChars {
		return false
	}
	lower := textnorm.Lower(trimmed)
	if textnorm.ContainsAny(lower, noInfoIndicators) {
		return false
	}
	for _, p := range genericPhrases {
		lower = strings.ReplaceAll(lower, p, "")
	}
	return utf8.RuneCountInString(strings.TrimSpace(lower)) >= minContentChars
}

// NoAnswer is shown when the generated answer was rejected.
func NoAnswer(lang string) string {
	if lang == LangEN {
		return "Sorry, I couldn't find relevant information to answer your question. Please try asking differently or contact support."
	}
	return "Xin lỗi, tôi không thể tìm thấy thông tin phù hợp để trả lời câu hỏi của bạn. Vui lòng thử đặt câu hỏi khác hoặc liên hệ bộ phận hỗ trợ."
}

// NoDocuments is shown when no document can be searched.
func NoDocuments(lang string) string {
	if lang == LangEN {
		return "Sorry, I couldn't find any relevant documents to answer your question."
	}
	return "Xin lỗi, tôi không tìm thấy tài liệu liên quan để trả lời câu hỏi của bạn."
}

// SystemError is shown when a request failed unexpectedly.
func SystemError(lang string, err error) string {
	msg := "unknown"
	if err != nil {
		msg = err.Error()
	}
	if lang == LangEN {
		return "A system error occurred: " + msg
	}
	return "Đã xảy ra lỗi hệ thống: " + msg
}

// DetectLanguage returns vi for Vietnamese, en for any other detected
// language and vi when the text gives nothing to detect.
func DetectLanguage(text string) string {
	if hasVietnameseLetters(text) {
		return LangVI
	}
	if !strings.ContainsFunc(text, unicode.IsLetter) {
		return LangVI
	}
	switch lang := whatlanggo.DetectLang(text); {
	case lang < 0:
		return LangVI
	case lang == whatlanggo.Vie:
		return LangVI
	default:
		return LangEN
	}
}

// hasVietnameseLetters looks for letters only Vietnamese uses among the
// Latin scripts: ă â đ ê ô ơ ư and the tone-marked vowels of the Latin
// Extended Additional block.
func hasVietnameseLetters(text string) bool {
	for _, r := range textnorm.Lower(text) {
		switch {
		case strings.ContainsRune("ăâđêôơư", r):
			return true
		case r >= 0x1EA0 && r <= 0x1EF9:
			return true
		}
	}
	return false
}

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// Chunks splits a canned answer into pieces of about size characters cut
// after sentence punctuation. Joining the pieces gives back the text.
func Chunks(text string, size int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[last:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		sentences = append(sentences, text[last:])
	}

	var out []string
	current := ""
	for _, s := range sentences {
		if utf8.RuneCountInString(current+s) <= size {
			current += s
			continue
		}
		if strings.TrimSpace(current) != "" {
			out = append(out, current)
			current = s
			continue
		}
		current += s
	}
	if current != "" {
		if strings.TrimSpace(current) == "" && len(out) > 0 {
			out[len(out)-1] += current
		} else {
			out = append(out, current)
		}
	}
	return out
}
