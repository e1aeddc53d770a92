package services

import (
	"fmt"

	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/internal/repository"
)

func quizKey(id uint, include repository.QuizInclude) string {
	return fmt.Sprintf("quiz:%d:questions=%t:choices=%t", id, include.Questions || include.Choices, include.Choices)
}

func quizzesKey() string {
	return "quizzes:all"
}

func authorQuizzesKey(authorID uint) string {
	return fmt.Sprintf("quizzes:author:%d", authorID)
}

func questionKey(quizID, id uint, withChoices bool) string {
	return fmt.Sprintf("quiz:%d:question:%d:choices=%t", quizID, id, withChoices)
}

func questionsKey(quizID uint) string {
	return fmt.Sprintf("quiz:%d:questions", quizID)
}

func choicesKey(quizID, questionID uint) string {
	return fmt.Sprintf("quiz:%d:question:%d:choices", quizID, questionID)
}

func choiceKey(quizID, questionID, id uint) string {
	return fmt.Sprintf("quiz:%d:question:%d:choice:%d", quizID, questionID, id)
}

func imageKey(id uint) string {
	return fmt.Sprintf("image:%d", id)
}

func likesKey(quizID uint) string {
	return fmt.Sprintf("quiz:%d:likes", quizID)
}

func userKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func quizTag(id uint) string     { return models.Tag(models.KindQuiz, id) }
func questionTag(id uint) string { return models.Tag(models.KindQuestion, id) }
func choiceTag(id uint) string   { return models.Tag(models.KindChoice, id) }
func imageTag(id uint) string    { return models.Tag(models.KindImage, id) }
func userTag(id uint) string     { return models.Tag(models.KindUser, id) }
func likeTag(id uint) string     { return models.Tag(models.KindLike, id) }
