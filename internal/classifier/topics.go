package classifier

import (
	"math"

	"github.com/kxddry/hr-rag/internal/textnorm"
)

// TopicChitchat is the keyword-cache topic of small talk.
const TopicChitchat = "chitchat"

var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"nghỉ phép", []string{
		"nghỉ phép", "leave", "xin nghỉ", "đơn xin nghỉ", "nghỉ năm", "annual leave",
		"paid leave", "unpaid leave", "nghỉ ốm", "sick leave", "maternity leave",
		"paternity leave", "compassionate leave", "nghỉ bù", "day off", "xin nghỉ việc",
		"nghỉ lễ", "holiday", "vacation", "nghỉ thai sản", "nghỉ con ốm",
	}},
	{"làm thêm giờ", []string{
		"làm thêm giờ", "overtime", "ot", "thêm giờ", "tăng ca", "extra hours",
		"after hours", "làm ca đêm", "night shift", "ca tối", "weekend work",
		"holiday work", "double pay", "làm thêm", "ca đêm",
	}},
	{"làm việc từ xa", []string{
		"làm việc từ xa", "remote", "work from home", "wfh", "từ xa", "telework",
		"telecommute", "online work", "virtual work", "hybrid work", "offsite work",
		"remote policy", "làm việc tại nhà", "làm việc online",
	}},
	{"nghỉ việc", []string{
		"nghỉ việc", "quit", "resign", "thôi việc", "xin nghỉ việc", "termination",
		"end contract", "nghỉ hưu", "retirement", "chấm dứt hợp đồng", "sa thải",
		"fired", "layoff", "voluntary leave",
	}},
	{"quy định", []string{
		"policy", "quy định", "nội quy", "quy chế", "rules", "regulation",
		"guidelines", "code of conduct", "standard operating procedure", "sop",
		"company policy", "chính sách", "quy tắc", "điều lệ",
	}},
	{"lương thưởng", []string{
		"lương", "thưởng", "salary", "bonus", "tiền", "lương bổng", "pay",
		"compensation", "allowance", "phụ cấp", "thu nhập", "payroll", "wage",
		"commission", "incentive", "13th month salary", "lương tháng 13",
	}},
	{"bảo hiểm", []string{
		"bảo hiểm", "insurance", "bhxh", "bhyt", "bảo hiểm xã hội", "bảo hiểm y tế",
		"social insurance", "health insurance", "unemployment insurance",
		"life insurance", "medical coverage", "bảo hiểm thất nghiệp",
	}},
	{"đào tạo", []string{
		"đào tạo", "training", "học", "course", "khóa học", "onboarding",
		"orientation", "seminar", "workshop", "mentoring", "coaching",
		"professional development", "technical training", "soft skills training",
	}},
	{"công việc", []string{
		"công việc", "work", "job", "task", "dự án", "project", "assignment",
		"responsibility", "job description", "jd", "duty", "role", "performance",
		"kpi", "objective", "nhiệm vụ", "trách nhiệm",
	}},
	{TopicChitchat, []string{
		"xin chào", "hello", "hi", "cảm ơn", "thank", "tạm biệt", "bye", "chào",
		"good morning", "good afternoon", "good evening", "how are you",
		"nice to meet you", "see you", "have a nice day", "chào bạn",
	}},
}

// TopicMatch is the keyword-cache reading of a question.
type TopicMatch struct {
	Topic      string
	Confidence float64
	Keywords   []string
}

// KeywordTopic scores the question against the topic table. Confidence is
// min(0.8, 0.3 + 0.1·matches) for the best topic; ties go to the earlier one.
func KeywordTopic(question string) (TopicMatch, bool) {
	q := textnorm.Normalize(question)
	var best TopicMatch
	for _, t := range topicKeywords {
		var hits []string
		for _, kw := range t.keywords {
			if textnorm.HasPhrase(q, kw) {
				hits = append(hits, kw)
			}
		}
		if len(hits) > len(best.Keywords) {
			best = TopicMatch{Topic: t.topic, Keywords: hits}
		}
	}
	if len(best.Keywords) == 0 {
		return TopicMatch{}, false
	}
	best.Confidence = math.Min(0.8, 0.3+0.1*float64(len(best.Keywords)))
	return best, true
}
