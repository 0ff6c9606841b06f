package citation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/domain"
)

type staticCatalog struct {
	docs []Document
	err  error
}

func (c staticCatalog) Documents(context.Context) ([]Document, error) { return c.docs, c.err }

func handbook() staticCatalog {
	return staticCatalog{docs: []Document{
		{ID: "doc-luong", FileName: "Chinh_sach_luong.pdf", URL: "https://files.example.com/luong.pdf"},
		{ID: "doc-sotay", FileName: "So_tay_nhan_vien.pdf", URL: "https://files.example.com/so_tay.pdf"},
	}}
}

func citationConfig() config.CitationConfig {
	cfg := config.Default().Citation
	cfg.SectionPages = []config.SectionPage{{Section: "3. Nghỉ phép", Page: 7}}
	return cfg
}

func leaveDoc() domain.RetrievedDoc {
	return domain.RetrievedDoc{
		Chunk: domain.Chunk{
			Text:    "Nhân viên được nghỉ 12 ngày phép năm.",
			Source:  "So_tay_nhan_vien.pdf",
			Section: "3. Nghỉ phép",
			Page:    4,
		},
		Source:   "doc-sotay",
		Distance: 0.42,
	}
}

func TestAttributor(t *testing.T) {
	ctx := context.Background()

	t.Run("Should cite a chunk quoted verbatim in the answer", func(t *testing.T) {
		a := NewAttributor(citationConfig(), handbook())
		response := "Theo quy định, Nhân viên được nghỉ 12 ngày phép năm."

		ranked := a.Scorer().Score([]domain.RetrievedDoc{leaveDoc()}, response, "Tôi được nghỉ mấy ngày?")
		require.Len(t, ranked, 1)
		assert.InDelta(t, 1.0, ranked[0].Breakdown.Exact, 1e-9)
		assert.GreaterOrEqual(t, ranked[0].FinalScore, 0.4)

		refs := a.Attribute(ctx, []domain.RetrievedDoc{leaveDoc()}, response, "Tôi được nghỉ mấy ngày?")

		require.Len(t, refs, 1)
		ref := refs[0]
		assert.Equal(t, "So_tay_nhan_vien.pdf", ref.FileName)
		assert.Equal(t, "https://files.example.com/so_tay.pdf", ref.FileURL)
		assert.Equal(t, "3. Nghỉ phép", ref.Section)
		assert.InDelta(t, 0.42, ref.SimilarityScore, 1e-9)
		assert.Equal(t,
			`<a href="https://files.example.com/so_tay.pdf?page=7" class="citation-link" target="_blank">[Nguồn: So_tay_nhan_vien.pdf - 3. Nghỉ phép]</a>`,
			ref.CitationHTML)
	})

	t.Run("Should be deterministic", func(t *testing.T) {
		a := NewAttributor(citationConfig(), handbook())
		docs := []domain.RetrievedDoc{
			leaveDoc(),
			{Chunk: domain.Chunk{Text: "Lương được trả vào ngày 5 hằng tháng qua chuyển khoản.", Source: "Chinh_sach_luong.pdf"}, Distance: 0.5},
		}
		response := "Nhân viên được nghỉ 12 ngày phép năm và lương trả ngày 5."

		first := a.Attribute(ctx, docs, response, "nghỉ phép")
		for range 5 {
			assert.Equal(t, first, a.Attribute(ctx, docs, response, "nghỉ phép"))
		}
	})

	t.Run("Should suppress references when nothing scores", func(t *testing.T) {
		a := NewAttributor(citationConfig(), handbook())
		docs := []domain.RetrievedDoc{
			{Chunk: domain.Chunk{Text: "Giờ làm việc bắt đầu lúc tám giờ sáng.", Source: "So_tay_nhan_vien.pdf"}},
			{Chunk: domain.Chunk{Text: "Trang phục gọn gàng lịch sự khi gặp khách.", Source: "So_tay_nhan_vien.pdf"}},
		}
		response := "Hello there friend, nothing related here at all."

		for _, c := range a.Scorer().Score(docs, response, "xyz abc") {
			assert.Zero(t, c.ResponseEvidence)
			assert.Zero(t, c.QuestionSupport)
		}
		assert.Empty(t, a.Attribute(ctx, docs, response, "xyz abc"))
	})

	t.Run("Should skip attribution without retrieved chunks", func(t *testing.T) {
		a := NewAttributor(citationConfig(), handbook())
		assert.Empty(t, a.Attribute(ctx, nil, "any", "any"))
	})

	t.Run("Should not cite when the file is unknown", func(t *testing.T) {
		a := NewAttributor(citationConfig(), staticCatalog{docs: []Document{{FileName: "Khac.pdf"}}})
		doc := leaveDoc()
		doc.Source = ""
		assert.Empty(t, a.Attribute(ctx, []domain.RetrievedDoc{doc}, "Nhân viên được nghỉ 12 ngày phép năm.", ""))
	})

	t.Run("Should not cite when the catalog fails", func(t *testing.T) {
		a := NewAttributor(citationConfig(), staticCatalog{err: errors.New("db down")})
		assert.Empty(t, a.Attribute(ctx, []domain.RetrievedDoc{leaveDoc()}, "Nhân viên được nghỉ 12 ngày phép năm.", ""))
	})

	t.Run("Should link pages as fragments when configured", func(t *testing.T) {
		cfg := citationConfig()
		cfg.LinkStyle = "fragment"
		a := NewAttributor(cfg, handbook())

		refs := a.Attribute(ctx, []domain.RetrievedDoc{leaveDoc()}, "Nhân viên được nghỉ 12 ngày phép năm.", "")

		require.Len(t, refs, 1)
		assert.Contains(t, refs[0].CitationHTML, `href="https://files.example.com/so_tay.pdf#page=7"`)
	})

	t.Run("Should fall back to the chunk page and the base URL", func(t *testing.T) {
		cfg := config.Default().Citation
		cfg.DocumentBaseURL = "https://docs.example.com/"
		a := NewAttributor(cfg, staticCatalog{docs: []Document{{FileName: "So tay.pdf"}}})
		doc := leaveDoc()
		doc.Chunk.Source = "So tay.pdf"

		refs := a.Attribute(ctx, []domain.RetrievedDoc{doc}, "Nhân viên được nghỉ 12 ngày phép năm.", "")

		require.Len(t, refs, 1)
		assert.Equal(t, "https://docs.example.com/So%20tay.pdf", refs[0].FileURL)
		assert.Contains(t, refs[0].CitationHTML, `href="https://docs.example.com/So%20tay.pdf?page=4"`)
	})
}

func TestSelect(t *testing.T) {
	s := NewScorer(config.Default().Citation)

	t.Run("Should lower the threshold for a clear leader", func(t *testing.T) {
		ranked := []Candidate{
			{ResponseEvidence: 0.05, FinalScore: 0.20},
			{ResponseEvidence: 0.0, FinalScore: 0.0},
		}
		assert.InDelta(t, 0.05, s.Threshold(ranked), 1e-9)

		got, ok := s.Select(ranked)
		require.True(t, ok)
		assert.InDelta(t, 0.20, got.FinalScore, 1e-9)
	})

	t.Run("Should drop weak candidates without a clear leader", func(t *testing.T) {
		ranked := []Candidate{
			{ResponseEvidence: 0.05, FinalScore: 0.19},
			{ResponseEvidence: 0.02, FinalScore: 0.09},
		}
		assert.InDelta(t, 0.2, s.Threshold(ranked), 1e-9)

		_, ok := s.Select(ranked)
		assert.False(t, ok)
	})

	t.Run("Should use the strong evidence threshold", func(t *testing.T) {
		ranked := []Candidate{{ResponseEvidence: 0.31, FinalScore: 0.25}, {FinalScore: 0.24}}
		assert.InDelta(t, 0.1, s.Threshold(ranked), 1e-9)
	})

	t.Run("Should use the single candidate threshold", func(t *testing.T) {
		assert.InDelta(t, 0.15, s.Threshold([]Candidate{{FinalScore: 0.14}}), 1e-9)
		_, ok := s.Select([]Candidate{{FinalScore: 0.14, ResponseEvidence: 0.1}})
		assert.False(t, ok)
	})

	t.Run("Should fall back to the strongest evidence", func(t *testing.T) {
		ranked := []Candidate{
			{ResponseEvidence: 0.05, FinalScore: 0.19, Doc: domain.RetrievedDoc{Source: "a"}},
			{ResponseEvidence: 0.12, FinalScore: 0.12, Doc: domain.RetrievedDoc{Source: "b"}},
		}
		got, ok := s.Select(ranked)
		require.True(t, ok)
		assert.Equal(t, "b", got.Doc.Source)
	})

	t.Run("Should select nothing from nothing", func(t *testing.T) {
		_, ok := s.Select(nil)
		assert.False(t, ok)
	})
}

func TestScores(t *testing.T) {
	s := NewScorer(config.Default().Citation)

	t.Run("Should reward keyword and topic overlap with the question", func(t *testing.T) {
		assert.InDelta(t, 0.94, s.Support("Nhân viên được nghỉ 12 ngày phép năm.", "Tôi được nghỉ phép bao nhiêu ngày?"), 1e-9)
		assert.Zero(t, s.Support("ngắn", "nghỉ phép"))
		assert.Zero(t, s.Support("Nhân viên được nghỉ 12 ngày phép năm.", "tôi là ai"))
	})

	t.Run("Should compare concepts", func(t *testing.T) {
		assert.Equal(t, 1.0, ConceptSimilarity("12 ngày", " 12  NGÀY "))
		assert.Equal(t, 0.8, ConceptSimilarity("12 ngày", "được nghỉ 12 ngày phép"))
		assert.InDelta(t, 0.42, ConceptSimilarity("a b c d", "a b c e"), 1e-9)
		assert.Zero(t, ConceptSimilarity("a b", "c d"))
	})

	t.Run("Should check numbers and terms of the answer", func(t *testing.T) {
		assert.InDelta(t, 0.5, NumericConsistency("nghỉ 12 ngày, 3 lần", "12 ngày và 5 lần"), 1e-9)
		assert.Zero(t, NumericConsistency("12", "không có số"))
		assert.InDelta(t, 0.5, TerminologyOverlap("chính sách lương", "lương và bảo hiểm"), 1e-9)
	})

	t.Run("Should extract answer concepts", func(t *testing.T) {
		concepts := ResponseConcepts("nhân viên được nghỉ 12 ngày phép năm")
		assert.Contains(t, concepts, "12 ngày")
	})
}

func TestResolve(t *testing.T) {
	docs := []Document{
		{ID: "1", FileName: "Quy_dinh"},
		{ID: "2", FileName: "Chinh_sach_luong.pdf"},
	}
	tests := []struct {
		name   string
		source string
		id     string
		want   string
		ok     bool
	}{
		{"Should match the exact name", "Chinh_sach_luong.pdf", "", "2", true},
		{"Should match the document id", "renamed.pdf", "1", "1", true},
		{"Should match without the extension", "Quy_dinh.pdf", "", "1", true},
		{"Should match once the upload suffix is removed", "Chinh_sach_luong_1700000000_abc123.pdf", "", "2", true},
		{"Should give up on unknown files", "zzz.pdf", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(docs, tt.source, tt.id)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestFormatReferences(t *testing.T) {
	refs := []domain.Reference{{FileName: "So_tay_nhan_vien.pdf", FileURL: "https://files.example.com/so_tay.pdf"}, {FileName: "Ghi_chu.txt"}}

	t.Run("Should leave short answers alone", func(t *testing.T) {
		short := "Bạn được nghỉ 12 ngày."
		assert.Equal(t, short, FormatReferences(short, refs, 30))
	})

	t.Run("Should append the reference list to long answers", func(t *testing.T) {
		long := strings.TrimSpace(strings.Repeat("từ ", 30))
		got := FormatReferences(long, refs, 30)
		assert.Equal(t, long+"\n\n**Tài liệu tham khảo:**\n1. [So_tay_nhan_vien](https://files.example.com/so_tay.pdf)\n2. Ghi_chu\n", got)
	})

	t.Run("Should leave answers without references alone", func(t *testing.T) {
		long := strings.Repeat("từ ", 40)
		assert.Equal(t, long, FormatReferences(long, nil, 30))
	})
}
