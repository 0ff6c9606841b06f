package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/hr-rag/internal/domain"
)

func words(prefix string, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix
	}
	return strings.Join(out, " ")
}

func TestHeadingChunker_Chunk(t *testing.T) {
	t.Run("Should split at numbered headings and record levels", func(t *testing.T) {
		c := NewHeadingChunker(Options{})
		pages := []domain.Page{
			{Number: 1, Text: "1. Chính sách nghỉ phép\nNhân viên được nghỉ 12 ngày phép năm theo quy định của công ty."},
			{Number: 2, Text: "1.2 Nghỉ ốm\nNhân viên nghỉ ốm cần nộp giấy xác nhận của cơ sở y tế trong vòng ba ngày."},
		}

		chunks, err := c.Chunk("doc-1", "nghi-phep.pdf", pages)

		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "1. Chính sách nghỉ phép", chunks[0].Section)
		assert.Equal(t, 1, chunks[0].HeadingLevel)
		assert.Equal(t, 1, chunks[0].Page)
		assert.Equal(t, "1.2 Nghỉ ốm", chunks[1].Section)
		assert.Equal(t, 2, chunks[1].HeadingLevel)
		assert.Equal(t, 2, chunks[1].Page)
		assert.Equal(t, "CHÍNH SÁCH NGHỈ VÀ THỜI GIAN LÀM VIỆC", chunks[0].Category)
		assert.Equal(t, "nghi-phep.pdf", chunks[0].Source)
		assert.Equal(t, 0, chunks[0].Index)
		assert.Equal(t, 1, chunks[1].Index)
	})

	t.Run("Should correct OCR errors before detecting headings", func(t *testing.T) {
		c := NewHeadingChunker(Options{})
		pages := []domain.Page{{Number: 1, Text: "2. Sô tay luơng\nMức luơng được thành toán vào ngày 5 hằng tháng cho toàn bộ nhân viên."}}

		chunks, err := c.Chunk("doc-2", "", pages)

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "2. Sổ tay lương", chunks[0].Section)
		assert.Contains(t, chunks[0].Text, "thanh toán")
		assert.Contains(t, chunks[0].Text, "lương")
	})

	t.Run("Should use the category as section when no heading exists", func(t *testing.T) {
		c := NewHeadingChunker(Options{})
		pages := []domain.Page{{Number: 1, Text: "Công ty đóng bảo hiểm xã hội đầy đủ cho nhân viên chính thức theo luật."}}

		chunks, err := c.Chunk("doc-3", "Bao_hiem_2024.pdf", pages)

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "CHÍNH SÁCH BẢO HIỂM & PHÚC LỢI XÃ HỘI", chunks[0].Section)
		assert.Equal(t, 0, chunks[0].HeadingLevel)
	})

	t.Run("Should drop spans shorter than the minimum", func(t *testing.T) {
		c := NewHeadingChunker(Options{})
		pages := []domain.Page{{Number: 1, Text: "1. Ngắn\nok\n2. Phúc lợi\nNhân viên được hưởng chế độ phúc lợi và quà tặng vào các dịp lễ tết."}}

		chunks, err := c.Chunk("doc-4", "", pages)

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "2. Phúc lợi", chunks[0].Section)
	})

	t.Run("Should build overlapping windows and drop short ones", func(t *testing.T) {
		c := NewHeadingChunker(Options{ChunkSize: 10, Overlap: 3})
		text := words("alpha", 10) + " " + words("bravo", 10) + " " + words("x", 2)

		chunks, err := c.Chunk("doc-5", "", []domain.Page{{Number: 1, Text: text}})

		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Len(t, strings.Fields(chunks[0].Text), 13)
		assert.True(t, strings.HasSuffix(chunks[0].Text, "bravo bravo bravo"))
		assert.Len(t, strings.Fields(chunks[1].Text), 12)
	})

	t.Run("Should produce stable chunk ids", func(t *testing.T) {
		c := NewHeadingChunker(Options{})
		pages := []domain.Page{{Number: 1, Text: "Nhân viên được nghỉ 12 ngày phép năm theo quy định của công ty."}}

		first, err := c.Chunk("doc-6", "", pages)
		require.NoError(t, err)
		second, err := c.Chunk("doc-6", "", pages)
		require.NoError(t, err)

		require.Len(t, first, 1)
		assert.Equal(t, first[0].ID, second[0].ID)
		assert.Equal(t, "doc-6", first[0].Source)
	})

	t.Run("Should reject an empty document id", func(t *testing.T) {
		_, err := NewHeadingChunker(Options{}).Chunk("", "", nil)

		assert.ErrorIs(t, err, ErrEmptyDocumentID)
	})

	t.Run("Should return nothing for blank pages", func(t *testing.T) {
		chunks, err := NewHeadingChunker(Options{}).Chunk("doc-7", "", []domain.Page{{Number: 1, Text: "  "}})

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

func TestCategory(t *testing.T) {
	t.Run("Should match folded filename keywords", func(t *testing.T) {
		assert.Equal(t, "CHÍNH SÁCH VỀ LƯƠNG, PHÚC LỢI VÀ THƯỞNG", Category("Chính sách Lương.pdf"))
		assert.Equal(t, "TUYỂN DỤNG, THỬ VIỆC VÀ ĐÀO TẠO", Category("quy_trinh_tuyen_dung.pdf"))
		assert.Equal(t, "ĐÁNH GIÁ, KỶ LUẬT VÀ NGHỈ VIỆC", Category("ky-luat.pdf"))
		assert.Equal(t, DefaultCategory, Category("handbook.pdf"))
		assert.Equal(t, DefaultCategory, Category(""))
	})
}
