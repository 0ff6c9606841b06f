package classifier

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kxddry/hr-rag/internal/textnorm"
)

// Similarity blends a character level sequence ratio with word overlap:
// 0.6·ratio + 0.3·|common words| / max(|words|), capped at 1.
func Similarity(a, b string) float64 {
	na, nb := textnorm.Normalize(a), textnorm.Normalize(b)
	ratio := difflib.NewMatcher(runeSeq(na), runeSeq(nb)).Ratio()

	wa, wb := textnorm.WordSet(na), textnorm.WordSet(nb)
	overlap := 0.0
	if n := max(len(wa), len(wb)); n > 0 {
		common := 0
		for w := range wa {
			if _, ok := wb[w]; ok {
				common++
			}
		}
		overlap = float64(common) / float64(n)
	}
	return math.Min(0.6*ratio+0.3*overlap, 1.0)
}

func runeSeq(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// FastMatcher answers questions that are near-literal copies of curated ones.
type FastMatcher struct {
	data              *Dataset
	chitchatThreshold float64
	hrThreshold       float64
}

func NewFastMatcher(data *Dataset, chitchatThreshold, hrThreshold float64) *FastMatcher {
	if chitchatThreshold <= 0 {
		chitchatThreshold = 0.8
	}
	if hrThreshold <= 0 {
		hrThreshold = 0.5
	}
	return &FastMatcher{data: data, chitchatThreshold: chitchatThreshold, hrThreshold: hrThreshold}
}

// Chitchat returns the canned answer of the most similar curated chitchat
// question scoring at least the chitchat threshold.
func (m *FastMatcher) Chitchat(question string) (string, float64, bool) {
	best, score := bestMatch(question, m.data.Chitchat, m.chitchatThreshold)
	if best == nil {
		return "", 0, false
	}
	return best.Response, score, true
}

// HR looks up the HR quick answers, then the HR categories. Unless force is
// set the lookup only runs for questions that carry an HR keyword.
func (m *FastMatcher) HR(question string, force bool) (string, float64, bool) {
	if !force && !ContainsHRKeywords(question) {
		return "", 0, false
	}
	if best, score := bestMatch(question, m.data.HRQuick, m.hrThreshold); best != nil {
		return AddLink(best.Response, question), score, true
	}
	for _, c := range m.data.HRCategories {
		for _, q := range c.Questions {
			if score := Similarity(question, q); score >= m.hrThreshold {
				return AddLink(categoryAnswer(c.Name), question), score, true
			}
		}
	}
	return "", 0, false
}

func bestMatch(question string, set []QA, threshold float64) (*QA, float64) {
	var best *QA
	bestScore := 0.0
	for i := range set {
		if set[i].Question == "" || set[i].Response == "" {
			continue
		}
		score := Similarity(question, set[i].Question)
		if score > bestScore && score >= threshold {
			best, bestScore = &set[i], score
		}
	}
	return best, bestScore
}

func categoryAnswer(category string) string {
	return "Câu hỏi của bạn thuộc về **" + category + "**. \n\n" +
		"Để có thông tin chi tiết và chính xác nhất, tôi khuyên bạn nên:\n\n" +
		"1. **Liên hệ trực tiếp với bộ phận HR** để được tư vấn cụ thể\n" +
		"2. **Tham khảo tài liệu chính sách** có sẵn trong hệ thống\n" +
		"3. **Đặt câu hỏi cụ thể hơn** về chính sách mà bạn quan tâm\n\n" +
		"Bạn có muốn tôi tìm kiếm thông tin chi tiết trong tài liệu chính sách không?"
}

var (
	fastHRKeywords = []string{
		"vinova", "công ty", "company", "doanh nghiệp", "tập đoàn",
		"giới thiệu", "introduce", "about", "mô tả", "describe",
		"nghỉ phép", "leave", "lương", "salary", "remote", "ot", "overtime",
		"thiết bị", "equipment", "bảo hiểm", "insurance", "hợp đồng", "contract",
		"văn hóa", "culture", "giá trị", "values", "môi trường", "environment",
		"sứ mệnh", "mission", "tầm nhìn", "vision", "tinh thần", "spirit",
		"thực tập", "internship", "đào tạo", "training", "phát triển", "development",
		"kỹ năng", "skills", "nghề nghiệp", "career", "tuyển dụng", "recruitment",
		"văn phòng", "office", "khách hàng", "customer", "client", "dự án", "project",
		"dịch vụ", "service", "giải thưởng", "award", "chứng nhận", "certification",
		"thị trường", "market", "hợp tác", "cooperation", "partnership",
		"làm việc", "work", "quy trình", "process", "quy định", "regulation",
		"hỗ trợ", "support", "liên hệ", "contact", "ứng tuyển", "apply",
	}
	companyPatterns = []string{"giới thiệu về công ty", "công ty làm gì", "company làm gì", "về công ty", "about company"}
)

// ContainsHRKeywords is the cheap gate in front of the HR quick answers.
func ContainsHRKeywords(question string) bool {
	q := textnorm.Lower(question)
	if strings.Contains(q, "vinova") || textnorm.ContainsAny(q, companyPatterns) {
		return true
	}
	return textnorm.ContainsAny(q, fastHRKeywords)
}

// LinkKind is the link appended to a canned HR answer.
type LinkKind string

const (
	LinkRecruitment  LinkKind = "recruitment"
	LinkIntroduction LinkKind = "introduction"
	LinkContact      LinkKind = "contact"
	LinkGeneral      LinkKind = "general"
)

var linkKeywords = []struct {
	kind     LinkKind
	keywords []string
}{
	{LinkRecruitment, []string{
		"tuyển dụng", "recruitment", "ứng tuyển", "apply", "thực tập", "internship",
		"tuyển", "hiring", "job", "việc làm", "career", "nghề nghiệp",
		"cv", "resume", "hồ sơ", "ứng viên", "candidate",
		"văn hóa", "culture", "văn hoá", "môi trường làm việc", "work environment",
	}},
	{LinkIntroduction, []string{
		"giới thiệu", "introduce", "vinova là gì", "công ty làm gì", "về vinova",
		"about vinova", "mô tả", "describe", "tổng quan", "overview",
		"dịch vụ", "service", "sản phẩm", "product", "khách hàng", "client",
		"giá trị", "values", "slogan", "sứ mệnh", "mission", "tầm nhìn", "vision",
	}},
	{LinkContact, []string{
		"liên hệ", "contact", "hỏi thêm", "ask more", "thắc mắc", "inquiry",
		"tư vấn", "consult", "hỗ trợ", "support", "email", "phone", "address",
	}},
}

// ClassifyLink picks the link kind for question.
func ClassifyLink(question string) LinkKind {
	q := textnorm.Lower(question)
	for _, l := range linkKeywords {
		if textnorm.ContainsAny(q, l.keywords) {
			return l.kind
		}
	}
	return LinkGeneral
}

// AddLink appends the link matching the question to a canned answer that
// carries no URL yet. General questions only get the contact link when the
// answer is short or already points at HR.
func AddLink(response, question string) string {
	if strings.Contains(response, "http") {
		return response
	}
	switch ClassifyLink(question) {
	case LinkRecruitment:
		return response + "\n\n💼 **Tìm hiểu thêm về cơ hội nghề nghiệp tại Vinova:** https://vinova.sg/jobs/"
	case LinkIntroduction:
		return response + "\n\n🌐 **Tìm hiểu thêm về Vinova:** https://vinova.sg/"
	case LinkContact:
		return response + "\n\n📞 **Liên hệ với chúng tôi để được hỗ trợ:** https://vinova.sg/contact/"
	}
	lower := strings.ToLower(response)
	if utf8.RuneCountInString(response) < 200 || strings.Contains(lower, "liên hệ") || strings.Contains(lower, "hr") {
		return response + "\n\n📞 **Cần hỗ trợ thêm? Liên hệ với chúng tôi:** https://vinova.sg/contact/"
	}
	return response
}
