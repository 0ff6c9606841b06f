package citation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kxddry/hr-rag/internal/textnorm"
)

var (
	quantityPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*\s*(?:ngày|tháng|năm|triệu|nghìn|đồng|%|phần trăm)`)
	policyPattern   = regexp.MustCompile(`(?:quy định|chính sách|điều khoản|theo|được|phải|có thể|không được)\s+[^.!?]{10,50}`)
	actionPattern   = regexp.MustCompile(`(?:cần|phải|nên|có thể|được)\s+[^.!?]{5,30}`)
	hrTermPattern   = regexp.MustCompile(`(?:lương|thưởng|phép|nghỉ|bảo hiểm|hợp đồng|tuyển dụng|đào tạo)\s*[^.!?]{0,20}`)
	fragmentPattern = regexp.MustCompile(`[^,;]{15,60}`)
	numberPattern   = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
)

var terminology = []string{
	"lương", "thưởng", "phép", "nghỉ", "bảo hiểm", "hợp đồng",
	"tuyển dụng", "đào tạo", "kỷ luật", "chấm công", "overtime",
	"probation", "appraisal", "benefit", "allowance",
}

var stopWords = set([]string{
	"là", "của", "và", "có", "được", "trong", "với", "theo", "để", "từ", "về",
	"như", "thế", "nào", "gì", "khi", "mà", "này", "đó", "những", "các", "một",
	"bao", "nhiêu", "tôi", "tui", "mình", "chúng", "chúng ta", "họ", "nó",
	"em", "anh", "chị", "ạ", "ơi", "à", "ư", "hả", "ha", "hì", "hở",
})

// topicBuckets are checked in order; the first bucket named by both the
// question and the chunk wins.
var topicBuckets = [][]string{
	{"lương", "thưởng", "salary", "bonus", "tiền lương", "thu nhập", "phụ cấp", "mức lương", "lương cơ bản", "tăng lương"},
	{"nghỉ", "phép", "leave", "vacation", "ngày nghỉ", "đơn nghỉ", "nghỉ ốm", "nghỉ thai sản", "annual leave"},
	{"bảo hiểm", "bhxh", "bhyt", "insurance", "phúc lợi", "social insurance", "health insurance"},
	{"quy trình", "thủ tục", "hướng dẫn", "cách thức", "process", "procedure", "workflow"},
	{"chính sách", "quy định", "điều khoản", "policy", "rule", "regulation"},
	{"tuyển dụng", "tuyển", "recruitment", "hiring", "ứng tuyển", "phỏng vấn", "interview"},
}

// EvidenceBreakdown holds the sub-scores of the response evidence.
type EvidenceBreakdown struct {
	Exact       float64
	Concept     float64
	Numeric     float64
	Terminology float64
}

// Evidence measures how much of the chunk text is traceable in the response.
func (s *Scorer) Evidence(chunk, response string) (float64, EvidenceBreakdown) {
	if strings.TrimSpace(chunk) == "" || strings.TrimSpace(response) == "" {
		return 0, EvidenceBreakdown{}
	}
	doc := clean(chunk)
	resp := clean(response)

	b := EvidenceBreakdown{
		Exact:       exactOverlap(doc, resp),
		Concept:     conceptOverlap(doc, resp),
		Numeric:     NumericConsistency(doc, resp),
		Terminology: TerminologyOverlap(doc, resp),
	}
	total := b.Exact*s.cfg.ExactWeight +
		b.Concept*s.cfg.ConceptWeight +
		b.Numeric*s.cfg.NumericWeight +
		b.Terminology*s.cfg.TermWeight
	return min(total, 1), b
}

// exactOverlap sums the length of chunk sentences found verbatim in the
// response, or of their six word windows for longer sentences, relative to
// the chunk length.
func exactOverlap(doc, resp string) float64 {
	matched := 0
	for _, sent := range sentences(doc, 15) {
		n := utf8.RuneCountInString(sent)
		if n <= 20 {
			continue
		}
		if strings.Contains(resp, sent) {
			matched += n
			continue
		}
		if n <= 30 {
			continue
		}
		words := strings.Fields(sent)
		for i := 0; i+6 <= len(words); i++ {
			phrase := strings.Join(words[i:i+6], " ")
			if strings.Contains(resp, phrase) {
				matched += utf8.RuneCountInString(phrase)
			}
		}
	}
	score := float64(matched) / float64(max(utf8.RuneCountInString(doc), 1))
	return min(score*2, 1)
}

func conceptOverlap(doc, resp string) float64 {
	respConcepts := ResponseConcepts(resp)
	docConcepts := TextConcepts(doc)
	total := 0.0
	for _, rc := range respConcepts {
		for _, dc := range docConcepts {
			if sim := ConceptSimilarity(rc, dc); sim > 0.7 {
				total += sim
			}
		}
	}
	return min(total/float64(max(len(respConcepts), 1)), 1)
}

// ResponseConcepts extracts quantities, policy and action phrases and HR
// terms with their trailing words.
func ResponseConcepts(resp string) []string {
	var out []string
	for _, m := range quantityPattern.FindAllString(resp, -1) {
		out = appendConcept(out, m)
	}
	for _, p := range []*regexp.Regexp{policyPattern, actionPattern, hrTermPattern} {
		for _, m := range p.FindAllString(resp, -1) {
			out = appendConcept(out, strings.TrimSpace(m))
		}
	}
	return out
}

func appendConcept(out []string, c string) []string {
	if utf8.RuneCountInString(c) > 5 {
		out = append(out, c)
	}
	return out
}

// TextConcepts cuts the first ten sentences of a chunk into 15 to 60
// character fragments.
func TextConcepts(text string) []string {
	sents := sentences(text, 20)
	if len(sents) > 10 {
		sents = sents[:10]
	}
	var out []string
	for _, s := range sents {
		for _, m := range fragmentPattern.FindAllString(s, -1) {
			out = append(out, strings.TrimSpace(m))
		}
	}
	return out
}

// ConceptSimilarity is 1 for equal concepts, 0.8 when one contains the
// other, 0.7·Jaccard when more than half the words are shared, else 0.
func ConceptSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	c1, c2 := clean(a), clean(b)
	if c1 == c2 {
		return 1
	}
	if strings.Contains(c2, c1) || strings.Contains(c1, c2) {
		return 0.8
	}
	w1, w2 := textnorm.WordSet(c1), textnorm.WordSet(c2)
	if len(w1) == 0 || len(w2) == 0 {
		return 0
	}
	inter := 0
	for w := range w1 {
		if _, ok := w2[w]; ok {
			inter++
		}
	}
	union := len(w1) + len(w2) - inter
	if overlap := float64(inter) / float64(union); overlap > 0.5 {
		return overlap * 0.7
	}
	return 0
}

// NumericConsistency is the share of numbers of the response that also
// appear in the chunk.
func NumericConsistency(doc, resp string) float64 {
	respNums := set(numberPattern.FindAllString(resp, -1))
	if len(respNums) == 0 {
		return 0
	}
	docNums := set(numberPattern.FindAllString(doc, -1))
	matched := 0
	for n := range respNums {
		if _, ok := docNums[n]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(respNums))
}

// TerminologyOverlap is the share of HR terms of the response that also
// appear in the chunk.
func TerminologyOverlap(doc, resp string) float64 {
	doc, resp = textnorm.Lower(doc), textnorm.Lower(resp)
	inResp, matched := 0, 0
	for _, term := range terminology {
		if !strings.Contains(resp, term) {
			continue
		}
		inResp++
		if strings.Contains(doc, term) {
			matched++
		}
	}
	if inResp == 0 {
		return 0
	}
	return float64(matched) / float64(inResp)
}

// Support measures how relevant the chunk is to the question regardless of
// the answer: keyword overlap plus a bonus for a shared topic bucket.
func (s *Scorer) Support(chunk, question string) float64 {
	if strings.TrimSpace(chunk) == "" || strings.TrimSpace(question) == "" {
		return 0
	}
	doc, q := clean(chunk), clean(question)
	if utf8.RuneCountInString(doc) < 10 {
		return 0
	}
	qWords := contentWords(q)
	if len(qWords) == 0 {
		return 0
	}
	dWords := contentWords(doc)
	common := 0
	for w := range qWords {
		if _, ok := dWords[w]; ok {
			common++
		}
	}
	overlap := float64(common) / float64(len(qWords))

	topic := 0.0
	for _, bucket := range topicBuckets {
		inQuestion := textnorm.ContainsAny(q, bucket)
		if inQuestion && textnorm.ContainsAny(doc, bucket) {
			topic = 0.8
			break
		}
		if inQuestion {
			topic = max(topic, 0.1)
		}
	}
	if topic == 0 && overlap < 0.1 {
		return 0
	}
	return min(overlap*0.7+topic*0.3, 1)
}

func contentWords(s string) map[string]struct{} {
	spaced := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	out := map[string]struct{}{}
	for _, w := range strings.Fields(spaced) {
		if _, stop := stopWords[w]; stop || utf8.RuneCountInString(w) < 2 {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// sentences splits on full stops and keeps trimmed pieces longer than minLen
// characters.
func sentences(text string, minLen int) []string {
	var out []string
	for _, s := range strings.Split(text, ".") {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > minLen {
			out = append(out, s)
		}
	}
	return out
}

func clean(s string) string {
	return textnorm.CollapseSpaces(textnorm.Lower(s))
}

func set(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
