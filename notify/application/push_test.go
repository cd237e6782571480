package application

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-github/v75/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizePush(t *testing.T) {
	evt := &github.PushEvent{
		Ref:     github.Ptr("refs/heads/main"),
		Compare: github.Ptr("https://github.com/acme/site/compare/a...b"),
		Repo:    &github.PushEventRepository{FullName: github.Ptr("acme/site")},
		Pusher:  &github.CommitAuthor{Name: github.Ptr("ada")},
		Commits: []*github.HeadCommit{
			{ID: github.Ptr("0123456789abcdef"), Message: github.Ptr("Fix header\n\nlong body")},
		},
	}

	msg := SummarizePush(evt)

	assert.Equal(t,
		"ada pushed 1 commit(s) to acme/site/main\n• 0123456 Fix header\nhttps://github.com/acme/site/compare/a...b",
		msg.Text)
}

func TestSummarizePush_TruncatesCommitList(t *testing.T) {
	commits := make([]*github.HeadCommit, 8)
	for i := range commits {
		commits[i] = &github.HeadCommit{ID: github.Ptr(fmt.Sprintf("c%d", i)), Message: github.Ptr("msg")}
	}
	evt := &github.PushEvent{
		Ref:     github.Ptr("refs/heads/dev"),
		Repo:    &github.PushEventRepository{FullName: github.Ptr("acme/site")},
		Sender:  &github.User{Login: github.Ptr("bot")},
		Commits: commits,
	}

	msg := SummarizePush(evt)

	assert.True(t, strings.HasPrefix(msg.Text, "bot pushed 8 commit(s) to acme/site/dev"))
	assert.Equal(t, maxListedCommits, strings.Count(msg.Text, "• "))
	assert.Contains(t, msg.Text, "…and 3 more")
}

func TestEncodeMessage(t *testing.T) {
	payload, err := EncodeMessage(SummarizePush(&github.PushEvent{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":" pushed 0 commit(s) to /"}`, string(payload))
}
