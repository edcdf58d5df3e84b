package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/stephanebdc/condaci/internal/trigger"
)

// runMeta carries what the runner needs to acquire the triggering revision.
type runMeta struct {
	RepoURL string
	Ref     string
}

type repository struct {
	CloneURL string `json:"clone_url"`
}

type pushPayload struct {
	Ref        string     `json:"ref"`
	After      string     `json:"after"`
	Repository repository `json:"repository"`
}

type pullRequestPayload struct {
	PullRequest struct {
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
	Repository repository `json:"repository"`
}

// extractEvent maps a delivery (event header plus JSON payload) to the
// trigger event and checkout metadata.
func extractEvent(eventName string, body []byte) (trigger.Event, runMeta, error) {
	evType, err := trigger.ParseEventType(eventName)
	if err != nil {
		return trigger.Event{}, runMeta{}, err
	}
	switch evType {
	case trigger.EventPush:
		var p pushPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return trigger.Event{}, runMeta{}, fmt.Errorf("decode push payload: %w", err)
		}
		if p.Ref == "" {
			return trigger.Event{}, runMeta{}, fmt.Errorf("push payload has no ref")
		}
		ev := trigger.Event{Type: trigger.EventPush, Branch: trigger.BranchFromRef(p.Ref)}
		return ev, runMeta{RepoURL: p.Repository.CloneURL, Ref: p.After}, nil
	case trigger.EventPullRequest:
		var p pullRequestPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return trigger.Event{}, runMeta{}, fmt.Errorf("decode pull_request payload: %w", err)
		}
		if p.PullRequest.Base.Ref == "" {
			return trigger.Event{}, runMeta{}, fmt.Errorf("pull_request payload has no base ref")
		}
		ev := trigger.Event{Type: trigger.EventPullRequest, Branch: p.PullRequest.Base.Ref}
		return ev, runMeta{RepoURL: p.Repository.CloneURL, Ref: p.PullRequest.Head.SHA}, nil
	}
	return trigger.Event{}, runMeta{}, fmt.Errorf("unsupported event %q", eventName)
}
