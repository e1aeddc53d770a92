package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagFormatsKindAndID(t *testing.T) {
	require.Equal(t, "Quiz:1", Tag(KindQuiz, 1))
	require.Equal(t, "Question:2", Tag(KindQuestion, 2))
	require.Equal(t, "Choice:3", Tag(KindChoice, 3))
}

func TestUserIsAdmin(t *testing.T) {
	var nilUser *User
	require.False(t, nilUser.IsAdmin())
	require.False(t, (&User{Role: RoleUser}).IsAdmin())
	require.True(t, (&User{Role: RoleAdmin}).IsAdmin())
}
