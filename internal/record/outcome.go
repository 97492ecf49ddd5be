package record

// Outcome 是御神签的总运势等级
type Outcome string

const (
	Daikichi Outcome = "大吉"
	Chukichi Outcome = "中吉"
	Shokichi Outcome = "小吉"
	Kichi    Outcome = "吉"
	Suekichi Outcome = "末吉"
	Kyo      Outcome = "凶"
	Daikyo   Outcome = "大凶"
)

// ReservedOutcomeKey 是识别结果中承载总运势的键，不允许作为分类名保存
const ReservedOutcomeKey = "result"

// DefaultOutcome 是新建草稿时的默认运势
const DefaultOutcome = Shokichi

// 从好到坏排列
var orderedOutcomes = []Outcome{Daikichi, Chukichi, Shokichi, Kichi, Suekichi, Kyo, Daikyo}

// Outcomes 按从好到坏的顺序返回全部运势等级
func Outcomes() []Outcome {
	out := make([]Outcome, len(orderedOutcomes))
	copy(out, orderedOutcomes)
	return out
}

// Valid 判断是否是七个标准等级之一
func (o Outcome) Valid() bool {
	return o.Rank() >= 0
}

// Rank 返回等级在标准顺序中的位置，0 为大吉；非法值返回 -1
func (o Outcome) Rank() int {
	for i, v := range orderedOutcomes {
		if v == o {
			return i
		}
	}
	return -1
}

// ParseOutcome 只接受与标准等级完全一致的文本
func ParseOutcome(s string) (Outcome, bool) {
	o := Outcome(s)
	if !o.Valid() {
		return "", false
	}
	return o, true
}
