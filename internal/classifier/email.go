package classifier

import (
	"regexp"

	"github.com/kxddry/hr-rag/internal/textnorm"
)

// EmailKind is the kind of HR email the workflow drafts.
type EmailKind string

const (
	EmailLeave  EmailKind = "leave"
	EmailQuit   EmailKind = "quit"
	EmailOT     EmailKind = "ot"
	EmailRemote EmailKind = "remote"
)

var emailPhrases = []struct {
	kind    EmailKind
	phrases []string
}{
	{EmailLeave, []string{
		"xin nghỉ phép", "muốn nghỉ phép", "muốn xin nghỉ phép", "xin phép nghỉ",
		"mail xin nghỉ phép", "email xin nghỉ phép", "viết mail nghỉ phép",
		"gửi email nghỉ phép", "tạo mail xin nghỉ phép", "tạo email xin nghỉ phép",
		"giúp tôi tạo đơn xin nghỉ phép", "đơn xin nghỉ phép", "đơn xin phép",
	}},
	{EmailQuit, []string{
		"xin nghỉ việc", "muốn nghỉ việc", "muốn xin nghỉ việc", "xin thôi việc", "thôi việc", "từ chức",
		"mail xin nghỉ việc", "email xin nghỉ việc", "viết mail nghỉ việc",
		"gửi email nghỉ việc", "tạo mail xin nghỉ việc", "tạo email xin nghỉ việc",
		"giúp tôi tạo đơn xin nghỉ việc", "đơn xin nghỉ việc", "đơn xin việc",
	}},
	{EmailOT, []string{
		"xin ot", "muốn xin ot", "muốn làm thêm giờ", "xin làm thêm giờ",
		"mail xin ot", "email xin ot", "viết mail ot",
		"gửi email ot", "tạo mail xin ot", "tạo email xin ot", "giúp tôi tạo đơn xin ot", "đơn xin ot",
		"mail xin làm thêm giờ", "email xin làm thêm giờ", "viết mail làm thêm giờ",
		"gửi email làm thêm giờ", "tạo mail xin làm thêm giờ", "tạo email xin làm thêm giờ",
		"giúp tôi tạo đơn xin làm thêm giờ", "đơn xin làm thêm giờ",
	}},
	{EmailRemote, []string{
		"xin remote", "muốn xin remote", "muốn làm remote", "xin làm việc từ xa", "work from home", "wfh",
		"remote work", "muốn remote work", "xin remote work", "làm remote work",
		"mail xin làm remote", "email xin làm remote", "viết mail làm remote",
		"gửi email làm remote", "tạo mail xin làm remote", "tạo email xin làm remote",
		"giúp tôi tạo đơn xin làm remote", "đơn xin làm remote",
		"mail xin làm làm việc từ xa", "email xin làm làm việc từ xa", "viết mail làm làm việc từ xa",
		"gửi email làm làm việc từ xa", "tạo mail xin làm làm việc từ xa", "tạo email xin làm làm việc từ xa",
		"giúp tôi tạo đơn xin làm làm việc từ xa", "đơn xin làm làm việc từ xa",
	}},
}

// date ranges such as "nghỉ từ 10/08 đến 12/08" also mark a leave request
var leaveDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}/\d{1,2}.*?(?:đến|tới|until|to).*?\d{1,2}/\d{1,2}`),
	regexp.MustCompile(`từ.*?\d{1,2}/\d{1,2}.*?(?:đến|tới).*?\d{1,2}/\d{1,2}`),
	regexp.MustCompile(`nghỉ.*?\d{1,2}/\d{1,2}.*?(?:đến|tới).*?\d{1,2}/\d{1,2}`),
}

// DetectEmail reports which email the question asks to draft, if any.
// Kinds are checked in the order leave, quit, ot, remote.
func DetectEmail(question string) (EmailKind, bool) {
	q := textnorm.Lower(question)
	for _, e := range emailPhrases {
		if textnorm.ContainsAny(q, e.phrases) {
			return e.kind, true
		}
		if e.kind == EmailLeave {
			for _, p := range leaveDatePatterns {
				if p.MatchString(q) {
					return EmailLeave, true
				}
			}
		}
	}
	return "", false
}
