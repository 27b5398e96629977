package model

// ProgressSchemaVersion 进度快照的序列化版本号。旧版本或无法解析的数据直接退回零值状态
const ProgressSchemaVersion = 1

// CategoryProgress 单个分类的学习进度。
// answeredQuestions 只统计首次作答的题目，correctAnswers 统计所有答对的提交（含重复），
// 因此 correctAnswers 可能超过 answeredQuestions，这是沿用线上行为的有意保留
// swagger:model CategoryProgress
type CategoryProgress struct {
	Category          QuestionCategory `json:"category"`
	TotalQuestions    int              `json:"totalQuestions"`
	AnsweredQuestions int              `json:"answeredQuestions"`
	CorrectAnswers    int              `json:"correctAnswers"`
	Level             int              `json:"level"`
}

// UserProgress 用户学习进度的单例记录，每次变更整体持久化
// swagger:model UserProgress
type UserProgress struct {
	TotalXP           int                `json:"totalXP"`
	Level             int                `json:"level"`
	Streak            int                `json:"streak"`
	LastStudyDate     string             `json:"lastStudyDate"` // ISO 日期（本地日历日）
	CategoryProgress  []CategoryProgress `json:"categoryProgress"`
	AnsweredQuestions []string           `json:"answeredQuestions"` // 去重后的题目ID集合
	MockExamScores    map[string][]int   `json:"mockExamScores"`    // examID -> 按时间顺序的得分列表
}

// ProgressEnvelope 持久化的进度快照：进度 + 完整答题日志，作为一个整体读写
type ProgressEnvelope struct {
	SchemaVersion int          `json:"schemaVersion"`
	Progress      UserProgress `json:"progress"`
	Answers       []UserAnswer `json:"answers"`
}

// InitialProgress 按题库中各分类的题目数构造零值进度
func InitialProgress(totalByCategory map[QuestionCategory]int) UserProgress {
	cats := Categories()
	categoryProgress := make([]CategoryProgress, 0, len(cats))
	for _, cat := range cats {
		categoryProgress = append(categoryProgress, CategoryProgress{
			Category:       cat,
			TotalQuestions: totalByCategory[cat],
			Level:          1,
		})
	}
	return UserProgress{
		TotalXP:           0,
		Level:             1,
		Streak:            0,
		LastStudyDate:     "",
		CategoryProgress:  categoryProgress,
		AnsweredQuestions: []string{},
		MockExamScores:    map[string][]int{},
	}
}

// HasAnswered 判断题目是否已在去重集合中
func (p *UserProgress) HasAnswered(questionID string) bool {
	for _, id := range p.AnsweredQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

// CategoryEntry 返回指定分类的进度条目，不存在时返回 nil
func (p *UserProgress) CategoryEntry(cat QuestionCategory) *CategoryProgress {
	for i := range p.CategoryProgress {
		if p.CategoryProgress[i].Category == cat {
			return &p.CategoryProgress[i]
		}
	}
	return nil
}
