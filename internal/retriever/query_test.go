package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kxddry/hr-rag/internal/domain"
)

func TestEnhance(t *testing.T) {
	t.Run("Should expand resignation questions", func(t *testing.T) {
		assert.Equal(t, "Thủ tục nghỉ việc thôi việc từ chức chấm dứt hợp đồng", Enhance("Thủ tục nghỉ việc"))
	})

	t.Run("Should not treat leave questions as resignation", func(t *testing.T) {
		assert.Equal(t, "nghỉ việc hay nghỉ phép", Enhance("nghỉ việc hay nghỉ phép"))
	})

	t.Run("Should expand holiday questions", func(t *testing.T) {
		assert.Equal(t, "Có những ngày lễ nào holiday public holiday nghỉ lễ", Enhance("Có những ngày lễ nào"))
	})
}

func TestAnalyzeContext(t *testing.T) {
	t.Run("Should collect entities topics and bounded confidence", func(t *testing.T) {
		a := AnalyzeContext("Lương và bảo hiểm ở Hà Nội có tốt không")

		assert.Equal(t, []string{"lương", "bảo hiểm", "hà nội"}, a.Entities)
		assert.Equal(t, []string{"salary", "insurance"}, a.Topics)
		assert.Equal(t, "positive", a.Sentiment)
		assert.InDelta(t, 0.9, a.Confidence, 1e-9)
	})

	t.Run("Should be neutral for plain questions", func(t *testing.T) {
		a := AnalyzeContext("giờ làm việc")

		assert.Equal(t, "neutral", a.Sentiment)
		assert.InDelta(t, 0.5, a.Confidence, 1e-9)
	})
}

func TestExpandQuery(t *testing.T) {
	history := []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "Thưởng tháng 13 tính thế nào?"},
		{Role: domain.RoleAssistant, Content: "Thưởng bằng một tháng lương."},
	}

	t.Run("Should add classifier keywords and recent HR keywords", func(t *testing.T) {
		cls := domain.ClassificationResult{ProcessedQuestion: "chính sách thưởng", Keywords: []string{"thưởng"}}

		got := ExpandQuery("thưởng?", cls, AnalyzeContext("thưởng?"), history)

		assert.Equal(t, "chính sách thưởng thưởng thưởng salary thưởng thưởng tháng 13", got)
	})

	t.Run("Should attach the last turns for follow-ups", func(t *testing.T) {
		got := WithContext("chi tiết hơn", ContextAnalysis{}, history)

		assert.Contains(t, got, "Context: User: Thưởng tháng 13 tính thế nào? | Assistant: Thưởng bằng một tháng lương.")
		assert.True(t, IsFollowUp("cho mình thêm thông tin"))
	})

	t.Run("Should attach a memory digest only when present", func(t *testing.T) {
		assert.Equal(t, "q", WithMemory("q", "  "))
		assert.Equal(t, "q | Context: U: hi", WithMemory("q", "U: hi"))
	})
}
