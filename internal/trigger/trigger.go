// Package trigger decides whether a repository event starts a run.
package trigger

import (
	"fmt"
	"path"
	"strings"

	"github.com/stephanebdc/condaci/internal/workflow"
)

// EventType is a recognized repository event.
type EventType string

const (
	EventPush        EventType = "push"
	EventPullRequest EventType = "pull_request"
)

// Event is the external occurrence that may initiate a run. For pull_request
// events Branch is the target branch.
type Event struct {
	Type   EventType
	Branch string
}

// ParseEventType maps a raw event name to an EventType.
func ParseEventType(raw string) (EventType, error) {
	switch EventType(strings.ToLower(strings.TrimSpace(raw))) {
	case EventPush:
		return EventPush, nil
	case EventPullRequest:
		return EventPullRequest, nil
	default:
		return "", fmt.Errorf("unsupported event type %q", raw)
	}
}

// BranchFromRef strips a refs/heads/ prefix from a git ref, so push payloads
// carrying "refs/heads/main" match the allow-list entry "main".
func BranchFromRef(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

// Matches reports whether the event initiates a run under the workflow's
// trigger configuration. Unknown branches and unconfigured event types do not
// match; they are not errors.
func Matches(t workflow.Triggers, ev Event) bool {
	var filter *workflow.BranchFilter
	switch ev.Type {
	case EventPush:
		filter = t.Push
	case EventPullRequest:
		filter = t.PullRequest
	default:
		return false
	}
	if filter == nil {
		return false
	}
	for _, pattern := range filter.Branches {
		if branchMatches(ev.Branch, pattern) {
			return true
		}
	}
	return false
}

func branchMatches(branch, pattern string) bool {
	if branch == pattern {
		return true
	}
	ok, _ := path.Match(pattern, branch)
	return ok
}
