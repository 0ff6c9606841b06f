// Package hrterms holds the HR vocabulary shared by routing and retrieval.
package hrterms

import "github.com/kxddry/hr-rag/internal/textnorm"

// HR lists the phrases that mark a question as HR related.
var HR = []string{
	"lương", "thưởng", "phúc lợi", "lương cơ bản", "thưởng tháng 13", "phụ cấp", "kpi", "bonus", "overtime", "tăng lương",

	"phép năm", "nghỉ phép", "leave", "policy", "carry over", "nghỉ thai sản", "thai sản", "maternity leave",
	"nghỉ ốm", "nghỉ bệnh", "ốm đau", "nghỉ không lương", "nghỉ cưới", "nghỉ tang", "nghỉ khám thai",
	"nghỉ con ốm", "nghỉ dưỡng sức", "nghỉ lễ", "nghỉ tết", "nghỉ phép đặc biệt", "ngày nghỉ", "ngày lễ",
	"special leave", "sick leave", "unpaid leave", "marriage leave", "funeral leave", "pregnancy checkup leave",
	"child sick leave", "convalescence leave", "holiday", "public holiday", "annual leave",

	"nghỉ việc", "thôi việc", "từ chức", "chấm dứt hợp đồng", "resignation", "termination", "quit job", "layoff",

	"bảo hiểm", "bảo hiểm xã hội", "bảo hiểm y tế", "bảo hiểm thất nghiệp", "bhxh", "bhyt", "insurance",
	"social insurance", "health insurance", "unemployment insurance",

	"hợp đồng", "thử việc", "chính thức", "chấm dứt", "contract", "hợp đồng lao động", "tăng ca", "làm thêm giờ",

	"văn hóa", "môi trường", "đồng nghiệp", "quản lý", "giao tiếp", "teamwork", "xung đột",

	"đào tạo", "training", "certification", "mentoring", "career path", "workshop", "e-learning", "elearning", "online learning", "platform", "học tập",

	"văn phòng", "canteen", "phòng họp", "parking", "gym", "internet", "máy tính", "địa chỉ", "address", "location",

	"chính sách", "quy định", "nội bộ", "thủ tục", "quy trình", "bảo mật", "remote work", "dress code",

	"it support", "hr support", "eap", "health check", "mental health", "emergency contact",
}

// Search extends HR with generic policy words used to sanity check retrieved text.
var Search = append(append([]string(nil), HR...),
	"chế độ", "chính sách", "quy định", "thủ tục", "hướng dẫn", "quy trình", "trợ cấp", "compensation",
)

// IsHR reports whether the question mentions any HR phrase.
func IsHR(question string) bool {
	return textnorm.ContainsAny(textnorm.Lower(question), HR)
}

// InText reports whether text mentions any of the search phrases.
func InText(text string) bool {
	return textnorm.ContainsAny(textnorm.Lower(text), Search)
}
