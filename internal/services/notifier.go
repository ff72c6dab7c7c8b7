package services

import (
	"time"

	"github.com/tbourn/go-docchat-client/internal/domain"
)

// Component names a unit of client state that can be read and re-rendered
// independently.
type Component string

const (
	ComponentAuth      Component = "auth"
	ComponentNav       Component = "nav"
	ComponentDocuments Component = "documents"
	ComponentChat      Component = "chat"
	ComponentUpload    Component = "upload"
	ComponentProfile   Component = "profile"
	ComponentAdmin     Component = "admin"
)

// Components lists every component.
var Components = []Component{
	ComponentAuth, ComponentNav, ComponentDocuments, ComponentChat,
	ComponentUpload, ComponentProfile, ComponentAdmin,
}

// Notifier is the rendering collaborator. Render signals that the state of a
// component changed and should be read again; Notify raises a transient
// notice. Implementations must not block.
type Notifier interface {
	Render(c Component)
	Notify(n domain.Notice)
}

type nopNotifier struct{}

func (nopNotifier) Render(Component)     {}
func (nopNotifier) Notify(domain.Notice) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func notice(n Notifier, level domain.NoticeLevel, msg string) {
	n.Notify(domain.Notice{Level: level, Message: msg, At: time.Now().UTC()})
}
