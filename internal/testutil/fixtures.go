package testutil

import (
	"sync"

	"prview/internal/review"
)

// Org builds an organization with a valid credential.
func Org(id, name string) review.Resource {
	return review.Resource{ID: id, Name: name, Credential: "pat-" + name, CredentialValid: true}
}

// Project builds a project belonging to org.
func Project(id, name, org string) review.Resource {
	return review.Resource{ID: id, Name: name, ParentName: org}
}

// Repo builds a server-enabled repository in project of org.
func Repo(id, name, project, org string) review.Resource {
	return review.Resource{ID: id, Name: name, ParentName: project, OrganizationName: org, Enabled: true}
}

// RecordingNotifier keeps every notification it receives.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []review.Notification
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(msg review.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

// Notifications returns a copy of what was received so far.
func (n *RecordingNotifier) Notifications() []review.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]review.Notification(nil), n.sent...)
}
