package model

// QuestionCategory 题库的七个固定出题分类（薬剤師国家試験の出題区分）
type QuestionCategory string

const (
	CategoryPhysChem    QuestionCategory = "物理化学"
	CategoryOrgChem     QuestionCategory = "有機化学"
	CategoryPharmacol   QuestionCategory = "薬理学"
	CategoryPharmaceut  QuestionCategory = "薬剤学"
	CategoryPathology   QuestionCategory = "病態・薬物治療"
	CategoryRegulations QuestionCategory = "法規・制度"
	CategoryPractice    QuestionCategory = "実務"
)

// Categories 返回全部分类，顺序固定
func Categories() []QuestionCategory {
	return []QuestionCategory{
		CategoryPhysChem,
		CategoryOrgChem,
		CategoryPharmacol,
		CategoryPharmaceut,
		CategoryPathology,
		CategoryRegulations,
		CategoryPractice,
	}
}

func (c QuestionCategory) Valid() bool {
	for _, cat := range Categories() {
		if c == cat {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyNormal || d == DifficultyHard || d == DifficultyExpert
}

// Question 题库中的一道题，构建时创建，运行期只读
// swagger:model Question
type Question struct {
	ID            string           `json:"id"`
	Category      QuestionCategory `json:"category"`
	Question      string           `json:"question"`
	Options       []string         `json:"options"`
	CorrectAnswer int              `json:"correctAnswer"`
	Explanation   string           `json:"explanation"`
	Difficulty    Difficulty       `json:"difficulty"`
	Tags          []string         `json:"tags"`
}

// MockExam 预先编排好的限时模拟考试定义
// swagger:model MockExam
type MockExam struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    int      `json:"duration"` // 秒
	Total       int      `json:"totalQuestions"`
	Difficulty  string   `json:"difficulty"`
	QuestionIDs []string `json:"questionIds"`
}

// UserAnswer 一次答题记录，追加写入，不会修改
// swagger:model UserAnswer
type UserAnswer struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer int    `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	Timestamp      int64  `json:"timestamp"` // epoch 毫秒
	TimeSpent      int    `json:"timeSpent"` // 秒
}
