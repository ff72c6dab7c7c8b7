// Package domain defines the data shared by the client core: the identity of
// the signed-in user, the documents and chat history returned by the backend,
// and the local-only state (pending uploads, confirmations, notices) owned by
// the individual panel services.
//
// Backend-produced values (Identity, Document, Message, AdminStats, ...) are
// never mutated by the client; they are displayed and referenced by id.
package domain

import (
	"strings"
	"time"
)

// Role is the authorization role reported by the backend profile endpoint.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Sender identifies the author of a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Identity is the confirmed profile of the signed-in user.
//
// An Identity exists only after the backend profile endpoint has accepted the
// current credential; holding a token alone never establishes one.
type Identity struct {
	ID        int64     `json:"id,omitempty"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt Timestamp `json:"created_at,omitempty"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Document is an uploaded file as listed by the backend.
//
// IsIndexed=false means the backend has not finished processing it and the
// document is not yet eligible for chat selection. Owner and FileSize are only
// populated by the admin listing.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate Timestamp `json:"upload_date"`
	IsIndexed  bool      `json:"is_indexed"`
	Owner      string    `json:"username,omitempty"`
	FileSize   int64     `json:"file_size,omitempty"`
}

// Message is one entry of a chat transcript.
type Message struct {
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp Timestamp `json:"timestamp"`
}

// ChatSession is the conversation bound to one set of documents.
type ChatSession struct {
	SessionID   string    `json:"session_id"`
	DocumentIDs []string  `json:"document_ids"`
	Messages    []Message `json:"messages"`
}

// GlobalSessionPrefix prefixes the session id used when no document is selected.
const GlobalSessionPrefix = "global_session_"

// PendingFile is a file waiting in the upload batch. Data is held in memory
// until the batch is submitted.
type PendingFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"-"`
}

// UploadedDocument is one entry of the upload response.
type UploadedDocument struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate Timestamp `json:"upload_date"`
}

// UploadResult is the backend answer to a batch upload.
type UploadResult struct {
	Message           string             `json:"message,omitempty"`
	UploadedDocuments []UploadedDocument `json:"uploaded_documents"`
}

// AdminStats carries the aggregate counters shown on the admin dashboard.
type AdminStats struct {
	TotalUsers     int64 `json:"total_users"`
	TotalDocuments int64 `json:"total_documents"`
	TotalChats     int64 `json:"total_chats"`
	AdminCount     int64 `json:"admin_count,omitempty"`
	UserCount      int64 `json:"user_count,omitempty"`
}

// AdminUser is a row of the admin user listing.
type AdminUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt Timestamp `json:"created_at"`
}

// ActivityEntry is a row of the admin activity log.
type ActivityEntry struct {
	Timestamp Timestamp `json:"timestamp"`
	Username  string    `json:"username"`
	Activity  string    `json:"activity"`
}

// HealthStatus is the backend system status shown on the profile panel.
type HealthStatus struct {
	Status     string `json:"status,omitempty"`
	Database   string `json:"database"`
	RAGService string `json:"rag_service"`
}

// NoticeLevel classifies a transient user-visible notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient message raised for the user.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// ConfirmationKind names the destructive action awaiting confirmation.
type ConfirmationKind string

const (
	ConfirmDeleteUser     ConfirmationKind = "delete_user"
	ConfirmDeleteDocument ConfirmationKind = "delete_document"
)

// PendingConfirmation is the first step of a two-step destructive action.
type PendingConfirmation struct {
	ID      string           `json:"id"`
	Kind    ConfirmationKind `json:"kind"`
	Target  string           `json:"target"`
	Label   string           `json:"label"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
}

// Panel is a top-level feature view.
type Panel string

const (
	PanelUpload    Panel = "upload"
	PanelDocuments Panel = "documents"
	PanelChat      Panel = "chat"
	PanelProfile   Panel = "profile"
	PanelFAQ       Panel = "faq"
	PanelAdmin     Panel = "admin"
)

// Panels lists every panel in navigation order.
var Panels = []Panel{PanelUpload, PanelDocuments, PanelChat, PanelProfile, PanelFAQ, PanelAdmin}

// ParsePanel validates a panel name.
func ParsePanel(s string) (Panel, bool) {
	p := Panel(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Panels {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// AdminTab is a sub-view of the admin panel.
type AdminTab string

const (
	AdminTabUsers     AdminTab = "users"
	AdminTabDocuments AdminTab = "documents"
	AdminTabActivity  AdminTab = "activity"
)

// ParseAdminTab validates an admin tab name.
func ParseAdminTab(s string) (AdminTab, bool) {
	switch t := AdminTab(strings.ToLower(strings.TrimSpace(s))); t {
	case AdminTabUsers, AdminTabDocuments, AdminTabActivity:
		return t, true
	}
	return "", false
}
