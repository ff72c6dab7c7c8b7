package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-docchat-client/internal/api"
	"github.com/tbourn/go-docchat-client/internal/domain"
)

func files(names ...string) []domain.PendingFile {
	out := make([]domain.PendingFile, 0, len(names))
	for _, n := range names {
		out = append(out, domain.PendingFile{Name: n, Data: []byte("data of " + n)})
	}
	return out
}

func names(fs []domain.PendingFile) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Name)
	}
	return out
}

func newUpload(t *testing.T) (*UploadService, *fakeBackend, *fakeScheduler, *recorder) {
	t.Helper()
	b := newFakeBackend()
	sched := &fakeScheduler{}
	rec := newRecorder()
	return NewUploadService(b, sched, rec), b, sched, rec
}

func TestAddFiles_TruncatesAtCapacity(t *testing.T) {
	u, _, _, _ := newUpload(t)
	if n := u.AddFiles(files("1", "2", "3")); n != 3 {
		t.Fatalf("accepted=%d", n)
	}
	if n := u.AddFiles(files("4", "5", "6", "7")); n != 2 {
		t.Fatalf("accepted=%d", n)
	}
	if n := u.AddFiles(files("8")); n != 0 {
		t.Fatalf("accepted=%d", n)
	}
	st := u.State()
	if len(st.Files) != 5 || st.Remaining != 0 || st.Max != 5 {
		t.Fatalf("state=%+v", st)
	}
	got := names(st.Files)
	if got[4] != "5" {
		t.Fatalf("order=%v", got)
	}
	for _, f := range st.Files {
		if f.ID == "" || f.Size == 0 {
			t.Fatalf("file=%+v", f)
		}
	}
}

func TestAddFiles_OversizedCapIsClamped(t *testing.T) {
	app := NewApp(newFakeBackend(), &fakeStore{}, &fakeScheduler{}, newRecorder(), Options{MaxFiles: 8})
	if n := app.Upload.AddFiles(files("1", "2", "3", "4", "5", "6", "7", "8")); n != DefaultMaxFiles {
		t.Fatalf("accepted=%d", n)
	}
	if st := app.Upload.State(); len(st.Files) != DefaultMaxFiles || st.Max != DefaultMaxFiles || st.Remaining != 0 {
		t.Fatalf("state=%+v", st)
	}
}

func TestRemoveFile_KeepsOrder(t *testing.T) {
	u, _, _, _ := newUpload(t)
	u.AddFiles(files("a", "b", "c"))
	if err := u.RemoveFile(3); !errors.Is(err, ErrValidation) {
		t.Fatalf("err=%v", err)
	}
	if err := u.RemoveFile(-1); !errors.Is(err, ErrFileIndex) {
		t.Fatalf("err=%v", err)
	}
	if err := u.RemoveFile(1); err != nil {
		t.Fatal(err)
	}
	if got := names(u.Files()); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("files=%v", got)
	}
}

func TestSubmit_EmptyIsNoop(t *testing.T) {
	u, b, _, _ := newUpload(t)
	res, err := u.Submit(ctx())
	if res != nil || err != nil || b.count("upload") != 0 {
		t.Fatalf("res=%v err=%v", res, err)
	}
}

func TestSubmit_SuccessClearsAndSchedulesRefresh(t *testing.T) {
	u, b, sched, rec := newUpload(t)
	refreshed := 0
	u.Refresh = func(context.Context) error { refreshed++; return nil }
	u.RefreshDelay = 3 * time.Second
	u.AddFiles(files("a.pdf", "b.pdf"))

	res, err := u.Submit(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.UploadedDocuments) != 2 || len(b.uploads[0]) != 2 {
		t.Fatalf("res=%+v", res)
	}
	if st := u.State(); len(st.Files) != 0 || st.Submitting {
		t.Fatalf("state=%+v", st)
	}
	if n, _ := rec.last(); n.Message != "2 document(s) received!" {
		t.Fatalf("notice=%+v", n)
	}
	if len(sched.tasks) != 1 || sched.tasks[0].delay != 3*time.Second {
		t.Fatalf("tasks=%+v", sched.tasks)
	}
	if refreshed != 0 {
		t.Fatal("refresh must be deferred")
	}
	sched.runPending()
	if refreshed != 1 {
		t.Fatalf("refreshed=%d", refreshed)
	}
}

func TestSubmit_NewRefreshReplacesPending(t *testing.T) {
	u, _, sched, _ := newUpload(t)
	refreshed := 0
	u.Refresh = func(context.Context) error { refreshed++; return nil }
	u.AddFiles(files("a"))
	_, _ = u.Submit(ctx())
	u.AddFiles(files("b"))
	_, _ = u.Submit(ctx())
	if ran := sched.runPending(); ran != 1 || refreshed != 1 {
		t.Fatalf("ran=%d refreshed=%d", ran, refreshed)
	}
}

func TestSubmit_FailureKeepsBatch(t *testing.T) {
	u, b, sched, rec := newUpload(t)
	b.uploadFn = func([]domain.PendingFile) (*domain.UploadResult, error) {
		return nil, &api.Error{Op: "documents.upload", Status: 400, Detail: "Only PDF files are allowed"}
	}
	u.AddFiles(files("a.txt"))
	if _, err := u.Submit(ctx()); !errors.Is(err, api.ErrRejected) {
		t.Fatalf("err=%v", err)
	}
	if st := u.State(); len(st.Files) != 1 || st.Submitting || !st.CanSubmit {
		t.Fatalf("state=%+v", st)
	}
	if n, _ := rec.last(); n.Message != "Upload error: Only PDF files are allowed" {
		t.Fatalf("notice=%+v", n)
	}
	if len(sched.tasks) != 0 {
		t.Fatal("no refresh after failure")
	}
}

func TestSubmit_SingleFlight(t *testing.T) {
	u, b, _, _ := newUpload(t)
	u.AddFiles(files("a"))
	b.uploadFn = func(fs []domain.PendingFile) (*domain.UploadResult, error) {
		if _, err := u.Submit(ctx()); !errors.Is(err, ErrBusy) {
			t.Errorf("nested submit err=%v", err)
		}
		return &domain.UploadResult{Message: "ok"}, nil
	}
	if _, err := u.Submit(ctx()); err != nil {
		t.Fatal(err)
	}
	if b.count("upload") != 1 {
		t.Fatalf("upload calls=%d", b.count("upload"))
	}
}

func TestSubmit_FilesAddedMeanwhileSurvive(t *testing.T) {
	u, b, _, _ := newUpload(t)
	u.AddFiles(files("a"))
	b.uploadFn = func(fs []domain.PendingFile) (*domain.UploadResult, error) {
		u.AddFiles(files("late"))
		return &domain.UploadResult{}, nil
	}
	if _, err := u.Submit(ctx()); err != nil {
		t.Fatal(err)
	}
	if got := names(u.Files()); len(got) != 1 || got[0] != "late" {
		t.Fatalf("files=%v", got)
	}
}

func TestUploadReset_CancelsRefresh(t *testing.T) {
	u, _, sched, _ := newUpload(t)
	refreshed := 0
	u.Refresh = func(context.Context) error { refreshed++; return nil }
	u.AddFiles(files("a"))
	_, _ = u.Submit(ctx())
	u.Reset()
	sched.runPending()
	if refreshed != 0 || len(u.Files()) != 0 {
		t.Fatalf("refreshed=%d files=%d", refreshed, len(u.Files()))
	}
}
