package domain

import (
	"encoding/json"
	"testing"
)

func TestParsePanel(t *testing.T) {
	cases := map[string]Panel{
		"upload":     PanelUpload,
		" Documents": PanelDocuments,
		"CHAT":       PanelChat,
		"profile":    PanelProfile,
		"faq":        PanelFAQ,
		"admin":      PanelAdmin,
	}
	for in, want := range cases {
		got, ok := ParsePanel(in)
		if !ok || got != want {
			t.Fatalf("ParsePanel(%q) = %q,%v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParsePanel("settings"); ok {
		t.Fatalf("unknown panel must not parse")
	}
}

func TestParseAdminTab(t *testing.T) {
	for _, in := range []string{"users", "Documents", " activity "} {
		if _, ok := ParseAdminTab(in); !ok {
			t.Fatalf("ParseAdminTab(%q) should succeed", in)
		}
	}
	if _, ok := ParseAdminTab("stats"); ok {
		t.Fatalf("unknown tab must not parse")
	}
}

func TestIdentity_IsAdmin(t *testing.T) {
	if (Identity{Role: RoleUser}).IsAdmin() {
		t.Fatalf("user role must not be admin")
	}
	if !(Identity{Role: RoleAdmin}).IsAdmin() {
		t.Fatalf("admin role must be admin")
	}
}

func TestDocument_DecodesBackendShapes(t *testing.T) {
	// user listing
	var d Document
	if err := json.Unmarshal([]byte(`{"id":"d1","filename":"a.pdf","upload_date":"2024-05-01T10:00:00Z","is_indexed":true}`), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.ID != "d1" || !d.IsIndexed || d.UploadDate.IsZero() || d.Owner != "" {
		t.Fatalf("unexpected document: %+v", d)
	}

	// admin listing carries owner and size, no index flag
	var a Document
	if err := json.Unmarshal([]byte(`{"id":"d2","username":"bob","filename":"b.pdf","upload_date":"2024-05-01T10:00:00Z","file_size":42}`), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Owner != "bob" || a.FileSize != 42 || a.IsIndexed {
		t.Fatalf("unexpected admin document: %+v", a)
	}
}

func TestMessage_SenderValues(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"sender":"assistant","content":"hi","timestamp":"2024-05-01T10:00:00Z"}`), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Sender != SenderAssistant || m.Content != "hi" {
		t.Fatalf("unexpected message: %+v", m)
	}
}
