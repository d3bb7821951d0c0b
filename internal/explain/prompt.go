package explain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DetailedInstruction is the framing used when no keyword rule applies.
const DetailedInstruction = "请提供详细、完整的解释，不要受到字数限制。" +
	"请按‘概览→核心概念→工作原理/流程→关键要点与易错点→案例与对比→局限与常见误区→延伸阅读与参考’的结构展开。" +
	"在每个小节下给出尽可能充足的信息与示例，必要时给出列表与小标题。" +
	"保持回答的逻辑性和条理性，优先中文输出。"

const (
	moodLine    = "你现在的心情是：%s"
	contextHead = "以下是最近的聊天记录："
	triggerLine = "需要详细解释的内容：%s"
)

// prompt holds the sections in the order they are rendered.
type prompt struct {
	persona string
	mood    string
	framing string
	context string
	trigger string
}

func (p prompt) String() string {
	sections := make([]string, 0, 5)
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sections = append(sections, s)
		}
	}

	add(p.persona)
	if p.mood != "" {
		add(fmt.Sprintf(moodLine, p.mood))
	}
	add(p.framing)
	if strings.TrimSpace(p.context) != "" {
		add(contextHead + "\n" + p.context)
	}
	add(fmt.Sprintf(triggerLine, strings.TrimSpace(p.trigger)))

	return strings.Join(sections, "\n\n")
}

// defaultFraming appends the operator's extra prompt to DetailedInstruction.
func defaultFraming(extra string) string {
	if extra = strings.TrimSpace(extra); extra != "" {
		return DetailedInstruction + " " + extra
	}
	return DetailedInstruction
}

// Truncate cuts s to at most limit runes, marking the cut with "...".
// A non-positive limit disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
