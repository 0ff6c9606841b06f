package response

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   bool
	}{
		{"Should accept a grounded answer", "Nhân viên chính thức được hưởng 12 ngày nghỉ phép năm, cộng thêm một ngày cho mỗi năm thâm niên.", true},
		{"Should reject an empty answer", "   ", false},
		{"Should reject a short answer", "Có, được nghỉ.", false},
		{"Should reject an admission of missing information", "Xin lỗi, tôi không tìm thấy thông tin về chế độ này trong các tài liệu hiện có.", false},
		{"Should reject an English admission", "I'm afraid I was unable to find anything about that policy in the handbook today.", false},
		{"Should reject stock phrases without content", "Dựa trên thông tin, theo tài liệu, có thể nói rằng đúng vậy ạ.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.answer))
		})
	}
}

func TestMessages(t *testing.T) {
	t.Run("Should localise the canned messages", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(NoAnswer(LangVI), "Xin lỗi, tôi không thể tìm thấy"))
		assert.True(t, strings.HasPrefix(NoAnswer(LangEN), "Sorry, I couldn't find relevant information"))
		assert.Contains(t, NoDocuments(LangVI), "tài liệu liên quan")
		assert.Contains(t, NoDocuments(LangEN), "relevant documents")
	})

	t.Run("Should include the error in the system error text", func(t *testing.T) {
		assert.Equal(t, "Đã xảy ra lỗi hệ thống: boom", SystemError(LangVI, errors.New("boom")))
		assert.Equal(t, "A system error occurred: boom", SystemError(LangEN, errors.New("boom")))
	})
}

func TestDetectLanguage(t *testing.T) {
	t.Run("Should detect Vietnamese from its letters", func(t *testing.T) {
		assert.Equal(t, LangVI, DetectLanguage("Chính sách nghỉ phép thế nào?"))
		assert.Equal(t, LangVI, DetectLanguage("Lương tháng 13"))
	})

	t.Run("Should detect English", func(t *testing.T) {
		assert.Equal(t, LangEN, DetectLanguage("What is the annual leave policy for new employees in the company?"))
	})

	t.Run("Should default to Vietnamese without letters", func(t *testing.T) {
		assert.Equal(t, LangVI, DetectLanguage(""))
		assert.Equal(t, LangVI, DetectLanguage("12345 ?!"))
	})
}

func TestChunks(t *testing.T) {
	t.Run("Should cut after sentence punctuation", func(t *testing.T) {
		text := "Xin chào! Tôi là trợ lý HR của công ty. Bạn cần hỗ trợ gì hôm nay? Hãy hỏi tôi về lương, nghỉ phép hoặc bảo hiểm"

		got := Chunks(text, 50)

		assert.Equal(t, []string{
			"Xin chào! Tôi là trợ lý HR của công ty.",
			" Bạn cần hỗ trợ gì hôm nay?",
			" Hãy hỏi tôi về lương, nghỉ phép hoặc bảo hiểm",
		}, got)
		assert.Equal(t, text, strings.Join(got, ""))
	})

	t.Run("Should keep a long sentence whole", func(t *testing.T) {
		long := strings.Repeat("rất dài ", 10) + "."
		assert.Equal(t, []string{long}, Chunks(long, 20))
	})

	t.Run("Should return nothing for blank text", func(t *testing.T) {
		assert.Empty(t, Chunks(" \n", 50))
	})
}
