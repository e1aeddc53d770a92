package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quizapi/internal/handlers/testutil"
)

type choiceData struct {
	ID         uint   `json:"id"`
	QuestionID uint   `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

type questionData struct {
	ID       uint         `json:"id"`
	QuizID   uint         `json:"quiz_id"`
	Text     string       `json:"text"`
	Position int          `json:"position"`
	Choices  []choiceData `json:"choices"`
}

type quizData struct {
	ID          uint           `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AuthorID    uint           `json:"author_id"`
	ImageID     *uint          `json:"image_id"`
	Questions   []questionData `json:"questions"`
}

func createQuiz(t *testing.T, env *testutil.Env, token, title string) quizData {
	t.Helper()

	resp := env.Request(http.MethodPost, "/api/quizzes", map[string]any{
		"title":       title,
		"description": "General knowledge",
		"questions": []map[string]any{
			{
				"text": "Capital of France?",
				"choices": []map[string]any{
					{"text": "Paris", "is_correct": true},
					{"text": "Lyon"},
				},
			},
			{"text": "2 + 2?"},
		},
	}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var quiz quizData
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &quiz)
	require.NotZero(t, quiz.ID)
	return quiz
}

func TestQuizHandler_CRUDWithOutputCache(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.Login(testutil.AdminUsername, testutil.AdminPassword)

	quiz := createQuiz(t, env, admin.Tokens.AccessToken, "Geography")
	require.Equal(t, admin.User.ID, quiz.AuthorID)
	require.Len(t, quiz.Questions, 2)
	require.Equal(t, 1, quiz.Questions[0].Position)
	require.Equal(t, 2, quiz.Questions[1].Position)

	first := env.Request(http.MethodGet, "/api/quizzes", nil, "")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := env.Request(http.MethodGet, "/api/quizzes", nil, "")
	require.Equal(t, "HIT", second.Header().Get("X-Cache"))
	require.Equal(t, first.Body.String(), second.Body.String())

	createQuiz(t, env, admin.Tokens.AccessToken, "History")

	third := env.Request(http.MethodGet, "/api/quizzes", nil, "")
	require.Equal(t, "MISS", third.Header().Get("X-Cache"))
	var list []quizData
	testutil.DecodeInto(t, testutil.DecodeResponse(t, third).Data, &list)
	require.Len(t, list, 2)

	title := "World Geography"
	update := env.Request(http.MethodPut, fmt.Sprintf("/api/quizzes/%d", quiz.ID), map[string]any{"title": title}, admin.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, update.Code, update.Body.String())

	get := env.Request(http.MethodGet, fmt.Sprintf("/api/quizzes/%d", quiz.ID), nil, "")
	require.Equal(t, http.StatusOK, get.Code)
	var fetched quizData
	testutil.DecodeInto(t, testutil.DecodeResponse(t, get).Data, &fetched)
	require.Equal(t, title, fetched.Title)
	require.Empty(t, fetched.Questions)

	del := env.Request(http.MethodDelete, fmt.Sprintf("/api/quizzes/%d", quiz.ID), nil, admin.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, del.Code, del.Body.String())

	missing := env.Request(http.MethodGet, fmt.Sprintf("/api/quizzes/%d", quiz.ID), nil, "")
	require.Equal(t, http.StatusNotFound, missing.Code)
	require.Equal(t, "QUIZ_NOT_FOUND", testutil.DecodeResponse(t, missing).Error.Code)
}

func TestQuizHandler_IncludeAndFilters(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.Login(testutil.AdminUsername, testutil.AdminPassword)
	author := env.Register(userPassword)
	createQuiz(t, env, admin.Tokens.AccessToken, "Admin quiz")
	own := createQuiz(t, env, author.Tokens.AccessToken, "Author quiz")

	resp := env.Request(http.MethodGet, fmt.Sprintf("/api/quizzes?author=%d", author.User.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	listed := testutil.DecodeResponse(t, resp)
	var list []quizData
	testutil.DecodeInto(t, listed.Data, &list)
	require.Len(t, list, 1)
	require.Equal(t, own.ID, list[0].ID)
	require.NotNil(t, listed.Meta)
	require.Equal(t, 1, listed.Meta.Total)

	resp = env.Request(http.MethodGet, fmt.Sprintf("/api/quizzes/%d?include=choices", own.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var full quizData
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &full)
	require.Len(t, full.Questions, 2)
	require.Len(t, full.Questions[0].Choices, 2)

	resp = env.Request(http.MethodGet, fmt.Sprintf("/api/quizzes/%d?include=questions", own.ID), nil, "")
	var withQuestions quizData
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &withQuestions)
	require.Len(t, withQuestions.Questions, 2)
	require.Empty(t, withQuestions.Questions[0].Choices)

	bad := env.Request(http.MethodGet, fmt.Sprintf("/api/quizzes/%d?include=likes", own.ID), nil, "")
	require.Equal(t, http.StatusBadRequest, bad.Code)

	bad = env.Request(http.MethodGet, "/api/quizzes?author=abc", nil, "")
	require.Equal(t, http.StatusBadRequest, bad.Code)

	bad = env.Request(http.MethodGet, "/api/quizzes/zero", nil, "")
	require.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestQuizHandler_Ownership(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.Login(testutil.AdminUsername, testutil.AdminPassword)
	author := env.Register(userPassword)
	other := env.Register(userPassword)

	quiz := createQuiz(t, env, author.Tokens.AccessToken, "Mine")
	path := fmt.Sprintf("/api/quizzes/%d", quiz.ID)

	resp := env.Request(http.MethodPut, path, map[string]any{"title": "Stolen"}, other.Tokens.AccessToken)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.Request(http.MethodPut, path, map[string]any{"title": "Moderated"}, admin.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.Request(http.MethodPost, "/api/quizzes", map[string]any{"title": "anonymous"}, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = env.Request(http.MethodPost, "/api/quizzes", map[string]any{"title": "  "}, author.Tokens.AccessToken)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestQuestionAndChoiceHandlers(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.Login(testutil.AdminUsername, testutil.AdminPassword)
	token := admin.Tokens.AccessToken
	quiz := createQuiz(t, env, token, "Science")
	question := quiz.Questions[0]
	choice := question.Choices[1]

	questionsPath := fmt.Sprintf("/api/quizzes/%d/questions", quiz.ID)
	questionPath := fmt.Sprintf("%s/%d", questionsPath, question.ID)
	choicesPath := questionPath + "/choices"
	choicePath := fmt.Sprintf("%s/%d", choicesPath, choice.ID)

	resp := env.Request(http.MethodGet, questionPath+"?choices=true", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var loaded questionData
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &loaded)
	require.False(t, loaded.Choices[1].IsCorrect)

	resp = env.Request(http.MethodPut, choicePath, map[string]any{"is_correct": true, "text": "Lyon (also)"}, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, questionPath+"?choices=true", nil, "")
	require.Equal(t, "MISS", resp.Header().Get("X-Cache"))
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &loaded)
	require.True(t, loaded.Choices[1].IsCorrect)
	require.Equal(t, "Lyon (also)", loaded.Choices[1].Text)

	resp = env.Request(http.MethodGet, choicePath, nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var single choiceData
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &single)
	require.Equal(t, choice.ID, single.ID)
	require.True(t, single.IsCorrect)

	resp = env.Request(http.MethodPost, choicesPath, map[string]any{"text": "Marseille"}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, choicesPath, nil, "")
	var choices []choiceData
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &choices)
	require.Len(t, choices, 3)

	resp = env.Request(http.MethodDelete, choicePath, nil, token)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = env.Request(http.MethodGet, choicePath, nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "CHOICE_NOT_FOUND", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodPost, questionsPath, map[string]any{"text": "Speed of light?", "position": 9}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPut, questionPath, map[string]any{"text": "Capital city of France?"}, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, questionsPath, nil, "")
	var questions []questionData
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &questions)
	require.Len(t, questions, 3)
	require.Equal(t, "Capital city of France?", questions[0].Text)

	resp = env.Request(http.MethodDelete, questionPath, nil, token)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = env.Request(http.MethodGet, questionPath, nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.Request(http.MethodGet, questionPath+"?choices=maybe", nil, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLikeHandler(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.Login(testutil.AdminUsername, testutil.AdminPassword)
	fan := env.Register(userPassword)
	quiz := createQuiz(t, env, admin.Tokens.AccessToken, "Music")
	path := fmt.Sprintf("/api/quizzes/%d/likes", quiz.ID)

	type likes struct {
		Likes int64 `json:"likes"`
	}
	count := func() int64 {
		resp := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		var payload likes
		testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &payload)
		return payload.Likes
	}

	require.Zero(t, count())

	resp := env.Request(http.MethodPost, path, nil, fan.Tokens.AccessToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Equal(t, int64(1), count())

	resp = env.Request(http.MethodPost, path, nil, fan.Tokens.AccessToken)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "ALREADY_LIKED", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodDelete, path, nil, fan.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, count())

	resp = env.Request(http.MethodDelete, path, nil, fan.Tokens.AccessToken)
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "NOT_LIKED", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodGet, "/api/quizzes/999/likes", nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestImageHandler(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.Login(testutil.AdminUsername, testutil.AdminPassword)
	uploader := env.Register(userPassword)

	resp := env.Request(http.MethodPost, "/api/images", map[string]any{
		"file_name":    "cover.png",
		"content_type": "image/png",
		"size":         2048,
	}, uploader.Tokens.AccessToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var image struct {
		ID   uint   `json:"id"`
		Path string `json:"path"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &image)
	require.Equal(t, "images/cover.png", image.Path)

	path := fmt.Sprintf("/api/images/%d", image.ID)
	resp = env.Request(http.MethodGet, path, nil, "")
	require.Equal(t, "MISS", resp.Header().Get("X-Cache"))
	resp = env.Request(http.MethodGet, path, nil, "")
	require.Equal(t, "HIT", resp.Header().Get("X-Cache"))

	quiz := env.Request(http.MethodPost, "/api/quizzes", map[string]any{"title": "Illustrated", "image_id": image.ID}, uploader.Tokens.AccessToken)
	require.Equal(t, http.StatusCreated, quiz.Code, quiz.Body.String())

	resp = env.Request(http.MethodPost, "/api/images", map[string]any{
		"file_name":    "notes.txt",
		"content_type": "text/plain",
		"size":         10,
	}, uploader.Tokens.AccessToken)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, testutil.DecodeResponse(t, resp).Error.Message, "content_type must be an image media type")

	resp = env.Request(http.MethodDelete, path, nil, admin.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "IMAGE_NOT_FOUND", testutil.DecodeResponse(t, resp).Error.Code)
}

func TestHealthAndFallbackRoutes(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Contains(t, resp.Body.String(), `"component":"database"`)

	resp = env.Request(http.MethodGet, "/health/live", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.Request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "quizapi_api_latency_seconds")

	resp = env.Request(http.MethodGet, "/api/missing", nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "ROUTE_NOT_FOUND", testutil.DecodeResponse(t, resp).Error.Code)
}
