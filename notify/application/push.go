package application

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dfryer1193/xbrush/notify/domain"
	"github.com/google/go-github/v75/github"
)

const maxListedCommits = 5

// SummarizePush renders a push event as a Slack message.
func SummarizePush(evt *github.PushEvent) domain.Message {
	branch := strings.TrimPrefix(evt.GetRef(), "refs/heads/")
	pusher := evt.GetPusher().GetName()
	if pusher == "" {
		pusher = evt.GetSender().GetLogin()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s pushed %d commit(s) to %s/%s",
		pusher, len(evt.Commits), evt.GetRepo().GetFullName(), branch)

	for i, c := range evt.Commits {
		if i == maxListedCommits {
			fmt.Fprintf(&b, "\n…and %d more", len(evt.Commits)-maxListedCommits)
			break
		}
		id := c.GetID()
		if len(id) > 7 {
			id = id[:7]
		}
		title, _, _ := strings.Cut(c.GetMessage(), "\n")
		fmt.Fprintf(&b, "\n• %s %s", id, title)
	}

	if compare := evt.GetCompare(); compare != "" {
		fmt.Fprintf(&b, "\n%s", compare)
	}

	return domain.Message{Text: b.String()}
}

// EncodeMessage marshals a message into a webhook payload.
func EncodeMessage(msg domain.Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return payload, nil
}
