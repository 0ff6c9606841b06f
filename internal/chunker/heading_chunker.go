package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/textnorm"
)

// ErrEmptyDocumentID is returned when Chunk is called without a document id.
var ErrEmptyDocumentID = errors.New("chunker: empty document id")

const maxSectionLen = 150

// Options tunes the heading chunker. Zero values fall back to defaults.
type Options struct {
	// ChunkSize is the number of words a window advances by.
	ChunkSize int
	// Overlap is the number of trailing words carried into the next window.
	Overlap       int
	MinSpanChars  int
	MinChunkChars int
}

// HeadingChunker splits handbook text into spans between numbered headings
// and then into overlapping word windows.
type HeadingChunker struct {
	opts    Options
	heading *regexp.Regexp
}

var (
	headingPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)\.?\s+(\S.*)`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// ocrCorrections are applied in order before heading detection.
var ocrCorrections = []struct{ wrong, correct string }{
	{"Sô tay", "Sổ tay"},
	{"thutơng", "thương"},
	{"chám dút", "chấm dứt"},
	{"thù việc", "thử việc"},
	{"tháng chức", "thăng chức"},
	{"Sư", "Sứ"},
	{"dào tạo", "đào tạo"},
	{"phật triển", "phát triển"},
	{"thành toán", "thanh toán"},
	{"phuc vụu", "phục vụ"},
	{"bbi thường", "bồi thường"},
	{"hu hơng", "hư hỏng"},
	{"luơng", "lương"},
	{"tô đã", "tối đa"},
}

// DefaultCategory labels documents whose filename matches no category keyword.
const DefaultCategory = "Sổ tay nhân viên Vinova"

var categories = []struct {
	keywords []string
	label    string
}{
	{[]string{"luong", "thuong"}, "CHÍNH SÁCH VỀ LƯƠNG, PHÚC LỢI VÀ THƯỞNG"},
	{[]string{"nghi", "thoi gian"}, "CHÍNH SÁCH NGHỈ VÀ THỜI GIAN LÀM VIỆC"},
	{[]string{"bao hiem", "phuc loi"}, "CHÍNH SÁCH BẢO HIỂM & PHÚC LỢI XÃ HỘI"},
	{[]string{"tuyen dung", "dao tao"}, "TUYỂN DỤNG, THỬ VIỆC VÀ ĐÀO TẠO"},
	{[]string{"danh gia", "ky luat"}, "ĐÁNH GIÁ, KỶ LUẬT VÀ NGHỈ VIỆC"},
}

func NewHeadingChunker(opts Options) *HeadingChunker {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 300
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.MinSpanChars <= 0 {
		opts.MinSpanChars = 30
	}
	if opts.MinChunkChars <= 0 {
		opts.MinChunkChars = 50
	}
	return &HeadingChunker{opts: opts, heading: headingPattern}
}

// CorrectOCR fixes the recurring OCR errors of the scanned handbooks.
func CorrectOCR(text string) string {
	text = textnorm.NFC(text)
	for _, c := range ocrCorrections {
		text = strings.ReplaceAll(text, c.wrong, c.correct)
	}
	return text
}

// Category infers the handbook category from the source filename.
func Category(filename string) string {
	if filename == "" {
		return DefaultCategory
	}
	name := textnorm.FoldLower(filename)
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	for _, c := range categories {
		if textnorm.ContainsAny(name, c.keywords) {
			return c.label
		}
	}
	return DefaultCategory
}

// IsHeading reports whether l starts with a numbered heading marker.
func IsHeading(l string) bool {
	return headingPattern.MatchString(l)
}

type line struct {
	text string
	page int
}

type span struct {
	start   int
	end     int
	heading string
	level   int
}

func (c *HeadingChunker) Chunk(documentID, filename string, pages []domain.Page) ([]domain.Chunk, error) {
	if documentID == "" {
		return nil, ErrEmptyDocumentID
	}
	lines := c.lines(pages)
	if len(lines) == 0 {
		return nil, nil
	}
	category := Category(filename)
	source := filename
	if source == "" {
		source = documentID
	}

	var chunks []domain.Chunk
	for _, s := range c.spans(lines, category) {
		text := joinLines(lines[s.start:s.end])
		if len([]rune(text)) < c.opts.MinSpanChars {
			continue
		}
		section := truncate(spacePattern.ReplaceAllString(s.heading, " "), maxSectionLen)
		page := lines[s.start].page
		for _, window := range c.windows(strings.Fields(text)) {
			idx := len(chunks)
			chunks = append(chunks, domain.Chunk{
				ID:           chunkID(documentID, idx, window),
				DocumentID:   documentID,
				Source:       source,
				Index:        idx,
				Text:         window,
				Section:      section,
				HeadingLevel: s.level,
				Page:         page,
				Category:     category,
			})
		}
	}
	return chunks, nil
}

func (c *HeadingChunker) lines(pages []domain.Page) []line {
	var out []line
	for i, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		number := p.Number
		if number <= 0 {
			number = i + 1
		}
		for _, l := range strings.Split(CorrectOCR(p.Text), "\n") {
			out = append(out, line{text: strings.TrimSpace(l), page: number})
		}
	}
	return out
}

// spans partitions lines at numbered headings. Text ahead of the first
// heading becomes its own span labelled with the category.
func (c *HeadingChunker) spans(lines []line, category string) []span {
	var starts []span
	for i, l := range lines {
		m := c.heading.FindStringSubmatch(l.text)
		if m == nil {
			continue
		}
		starts = append(starts, span{start: i, heading: l.text, level: strings.Count(m[1], ".") + 1})
	}
	if len(starts) == 0 || starts[0].start > 0 {
		starts = append([]span{{start: 0, heading: category}}, starts...)
	}
	for i := range starts {
		if i+1 < len(starts) {
			starts[i].end = starts[i+1].start
		} else {
			starts[i].end = len(lines)
		}
	}
	return starts
}

// windows starts a window every ChunkSize words and makes it ChunkSize+Overlap
// words long.
func (c *HeadingChunker) windows(words []string) []string {
	var out []string
	for j := 0; j < len(words); j += c.opts.ChunkSize {
		end := j + c.opts.ChunkSize + c.opts.Overlap
		if end > len(words) {
			end = len(words)
		}
		text := strings.Join(words[j:end], " ")
		if len([]rune(strings.TrimSpace(text))) < c.opts.MinChunkChars {
			continue
		}
		out = append(out, text)
	}
	return out
}

func joinLines(lines []line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.text != "" {
			parts = append(parts, l.text)
		}
	}
	return strings.Join(parts, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func chunkID(documentID string, index int, text string) string {
	sum := sha256.Sum256([]byte(documentID + "|" + strconv.Itoa(index) + "|" + text))
	return hex.EncodeToString(sum[:16])
}
