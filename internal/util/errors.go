package util

import "errors"

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrQuestionNotFound = errors.New("question not found")
	ErrCategoryUnknown  = errors.New("unknown question category")
	ErrExamNotFound     = errors.New("mock exam not found")
	ErrExamEmpty        = errors.New("mock exam resolves to zero questions")
	ErrCategoryEmpty    = errors.New("category has no questions")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionFinished  = errors.New("session already finished")
	ErrNoSelection      = errors.New("no answer selected")
	ErrInvalidOption    = errors.New("selected option out of range")
	ErrInvalidPlan      = errors.New("unknown premium plan")
	ErrPaymentFailed    = errors.New("payment request failed")
)
