package controller

import (
	"pharm_exam_backend/internal/data"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/service"
	"pharm_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuestionController 题库目录的只读接口。
// 正确答案与解说只对已答过该题的用户返回，防止客户端绕过练习流程拿答案
type QuestionController struct {
	Bank            *data.Bank
	ProgressService *service.ProgressService
}

func NewQuestionController(bank *data.Bank, progressService *service.ProgressService) *QuestionController {
	return &QuestionController{Bank: bank, ProgressService: progressService}
}

// CategoryView 分类条目与该分类下的学习进度
type CategoryView struct {
	Category          model.QuestionCategory `json:"category"`
	TotalQuestions    int                    `json:"totalQuestions"`
	AnsweredQuestions int                    `json:"answeredQuestions"`
	CorrectAnswers    int                    `json:"correctAnswers"`
	Level             int                    `json:"level"`
}

// QuestionView 题目视图。未答过的题目不含 correctAnswer 与 explanation
type QuestionView struct {
	ID            string                 `json:"id"`
	Category      model.QuestionCategory `json:"category"`
	Question      string                 `json:"question"`
	Options       []string               `json:"options"`
	Difficulty    model.Difficulty       `json:"difficulty"`
	Tags          []string               `json:"tags"`
	Answered      bool                   `json:"answered"`
	CorrectAnswer *int                   `json:"correctAnswer,omitempty"`
	Explanation   string                 `json:"explanation,omitempty"`
}

// ListCategories godoc
// @Summary 出题分类一览
// @Description 七个固定分类及当前用户在各分类下的进度
// @Tags 题库
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]CategoryView}
// @Router /api/categories [get]
func (c *QuestionController) ListCategories(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	progress := c.ProgressService.Get(claims.UserID)
	counts := c.Bank.CountByCategory()

	views := make([]CategoryView, 0, len(model.Categories()))
	for _, cat := range model.Categories() {
		view := CategoryView{Category: cat, TotalQuestions: counts[cat], Level: 1}
		if entry := progress.CategoryEntry(cat); entry != nil {
			view.AnsweredQuestions = entry.AnsweredQuestions
			view.CorrectAnswers = entry.CorrectAnswers
			view.Level = entry.Level
		}
		views = append(views, view)
	}
	util.Success(ctx, views)
}

// ListByCategory godoc
// @Summary 指定分类下的题目一览
// @Description 已答过的题目附带正确答案与解说
// @Tags 题库
// @Security BearerAuth
// @Produce  json
// @Param   category query string true "出题分类"
// @Success 200 {object} util.Response{data=[]QuestionView}
// @Failure 400 {object} util.Response "分类不存在"
// @Router /api/questions [get]
func (c *QuestionController) ListByCategory(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	category := model.QuestionCategory(ctx.Query("category"))
	if !category.Valid() {
		util.BadRequest(ctx, "unknown category")
		return
	}

	progress := c.ProgressService.Get(claims.UserID)

	questions := c.Bank.ByCategory(category)
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		view := QuestionView{
			ID:         q.ID,
			Category:   q.Category,
			Question:   q.Question,
			Options:    q.Options,
			Difficulty: q.Difficulty,
			Tags:       q.Tags,
		}
		if progress.HasAnswered(q.ID) {
			answer := q.CorrectAnswer
			view.Answered = true
			view.CorrectAnswer = &answer
			view.Explanation = q.Explanation
		}
		views = append(views, view)
	}
	util.Success(ctx, views)
}
