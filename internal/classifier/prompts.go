package classifier

import "fmt"

func analysisPrompt(question, lang string) string {
	if lang == "vi" {
		return fmt.Sprintf(`Phân tích câu hỏi sau và trả về JSON với các thông tin:
1. processed_question: Câu hỏi đã được xử lý để tìm kiếm chính xác hơn
2. question_type: Loại câu hỏi ('hr_question', 'chitchat', 'general')
3. keywords: Danh sách từ khóa quan trọng
4. intent: Ý định của câu hỏi
5. confidence: Độ tin cậy (0.0-1.0)

Quy tắc:
- Nếu câu hỏi liên quan đến HR (lương, thưởng, nghỉ phép, hợp đồng, đào tạo, văn phòng, chính sách, ngày lễ, địa chỉ) → hr_question
- Nếu câu hỏi chỉ là chào hỏi, tán gẫu, không liên quan công việc → chitchat
- Nếu câu hỏi mơ hồ, không rõ ràng → general
- Nếu câu hỏi cần thông tin chi tiết, cần suy luận, cần làm rõ câu hỏi trước → general
Ví dụ:
- "ở Việt Nam có những ngày lễ nào ?" → hr_question (về ngày lễ)
- "xin chào" → chitchat
- "mỗi mùa đều có vẻ đẹp riêng" → chitchat
- "tôi muốn tìm hiểu về các chính sách của công ty" → general

Câu hỏi: %q

Trả về JSON:`, question)
	}
	return fmt.Sprintf(`Analyze the following question and return JSON with:
1. processed_question: Processed question for accurate search
2. question_type: Question type ('hr_question', 'chitchat', 'general')
3. keywords: List of important keywords
4. intent: Question intent
5. confidence: Confidence score (0.0-1.0)

Rules:
- If question relates to HR (salary, benefits, leave, contract, training, office, policy, holidays, address) → hr_question
- If question is just greeting, casual chat, not work-related → chitchat
- If question is vague, unclear → general

Question: %q

Return JSON:`, question)
}

func topicPrompt(question, lang string) string {
	if lang == "vi" {
		return fmt.Sprintf(`Phân tích câu hỏi sau và trả về JSON với các thông tin:
1. topic: Chủ đề chính của câu hỏi (ví dụ: nghỉ phép, làm thêm giờ, làm việc từ xa, nghỉ việc, quy định, lương thưởng, bảo hiểm, đào tạo, công việc, chitchat)
2. confidence: Độ tin cậy của phân loại (0.0-1.0)
3. reasoning: Lý do tại sao phân loại được chọn
4. subtopics: Danh sách các chủ đề con (nếu có)
5. keywords: Danh sách từ khóa quan trọng để phân loại

Câu hỏi: %q

Trả về JSON:`, question)
	}
	return fmt.Sprintf(`Analyze the following question and return JSON with:
1. topic: Main topic of the question (e.g., leave, overtime, remote work, resignation, policy, salary, benefits, training, job, chitchat)
2. confidence: Confidence of the classification (0.0-1.0)
3. reasoning: Reason for the classification
4. subtopics: List of subtopics (if any)
5. keywords: List of important keywords for classification

Question: %q

Return JSON:`, question)
}

func intentPrompt(question, lang string) string {
	if lang == "vi" {
		return fmt.Sprintf(`Phân tích ý định của câu hỏi sau và trả về JSON {"intent": "..."}.
intent là một trong: hr_inquiry, hr_partner, policy_inquiry, chitchat, leave, ot, quit, remote, unknown.

Câu hỏi: %q

Trả về JSON:`, question)
	}
	return fmt.Sprintf(`Analyze the intent of the following question and return JSON {"intent": "..."}.
intent is one of: hr_inquiry, hr_partner, policy_inquiry, chitchat, leave, ot, quit, remote, unknown.

Question: %q

Return JSON:`, question)
}
