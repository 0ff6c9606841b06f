package classifier

import "github.com/kxddry/hr-rag/internal/textnorm"

var denyLists = [][]string{
	// vi profanity
	{
		"địt", "đụ", "đù", "má", "móa", "mọe", "lồn", "cặc", "buồi", "chim", "má mày", "mẹ mày", "đm", "dm", "vcl", "vl", "cc",
		"đồ ngu", "ngu như", "óc chó", "câm mồm", "khốn nạn", "mất dạy", "chó chết", "đồ rác rưởi", "súc vật",
	},
	// vi hate
	{
		"đồ mọi", "bọn da đen", "bọn da vàng", "bọn da trắng", "đồ đồng tính", "đồ gay", "đồ pê đê",
		"bọn việt", "bọn tàu", "bọn do thái", "bọn hồi giáo", "bọn nhà nhập khẩu", "đồ đồng bóng",
	},
	// en profanity
	{
		"fuck", "shit", "bitch", "bastard", "asshole", "dick", "pussy", "motherfucker", "fucking",
		"retard", "stupid", "idiot", "moron",
	},
	// en hate
	{
		"nigger", "chink", "spic", "kike", "fag", "tranny", "retarded", "go back to", "white trash",
	},
}

// IsOffensive reports whether text contains a denied word or phrase. Terms
// match on word boundaries so that "má" does not block "máy tính".
func IsOffensive(text string) bool {
	normalized := textnorm.Normalize(text)
	if normalized == "" {
		return false
	}
	for _, list := range denyLists {
		for _, term := range list {
			if textnorm.HasPhrase(normalized, term) {
				return true
			}
		}
	}
	return false
}

// Refusal is the professional decline returned for offensive questions.
func Refusal(lang string) string {
	if lang == "vi" {
		return "Tôi xin phép từ chối trả lời vì nội dung có chứa yếu tố xúc phạm, nhạy cảm hoặc phân biệt đối xử. " +
			"Vui lòng sử dụng ngôn ngữ lịch sự và tôn trọng. Nếu bạn cần hỗ trợ, hãy đặt câu hỏi theo cách phù hợp hơn."
	}
	return "I’m sorry, I must decline to respond because the message contains offensive, sensitive, or discriminatory content. " +
		"Please use respectful language. If you still need help, feel free to rephrase your question."
}
