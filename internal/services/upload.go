// Package services – UploadService
//
// UploadService keeps the ordered batch of files waiting to be uploaded,
// capped at MaxFiles. Adding beyond the cap truncates silently. Submitting is
// single-flight; on success the submitted files leave the batch and a
// document-list refresh is scheduled after RefreshDelay, because the backend
// indexes uploads asynchronously. On failure the batch is kept as is.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-docchat-client/internal/domain"
)

// DefaultMaxFiles is the batch cap used when none is configured.
const DefaultMaxFiles = 5

// DefaultRefreshDelay is the delay before the post-upload list refresh.
const DefaultRefreshDelay = 2 * time.Second

// UploadState is the renderable snapshot of the upload batch.
type UploadState struct {
	Version    uint64               `json:"version"`
	Files      []domain.PendingFile `json:"files"`
	Max        int                  `json:"max"`
	Remaining  int                  `json:"remaining"`
	Submitting bool                 `json:"submitting"`
	CanSubmit  bool                 `json:"can_submit"`
}

// UploadService owns the upload batch.
type UploadService struct {
	API          UploadAPI
	Scheduler    Scheduler
	Refresh      func(ctx context.Context) error
	MaxFiles     int
	RefreshDelay time.Duration

	out    Notifier
	logger zerolog.Logger

	mu            sync.Mutex
	files         []domain.PendingFile
	submitting    bool
	epoch         uint64
	version       uint64
	cancelRefresh func()
}

// NewUploadService wires the upload batch manager.
func NewUploadService(a UploadAPI, sched Scheduler, out Notifier) *UploadService {
	return &UploadService{
		API:          a,
		Scheduler:    sched,
		MaxFiles:     DefaultMaxFiles,
		RefreshDelay: DefaultRefreshDelay,
		out:          orNop(out),
		logger:       log.With().Str("component", string(ComponentUpload)).Logger(),
	}
}

// capacity is MaxFiles limited to 1..DefaultMaxFiles; the backend accepts
// at most DefaultMaxFiles files per upload.
func (s *UploadService) capacity() int {
	if s.MaxFiles <= 0 || s.MaxFiles > DefaultMaxFiles {
		return DefaultMaxFiles
	}
	return s.MaxFiles
}

// State returns a snapshot for rendering.
func (s *UploadService) State() UploadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return UploadState{
		Version:    s.version,
		Files:      append([]domain.PendingFile{}, s.files...),
		Max:        s.capacity(),
		Remaining:  s.capacity() - len(s.files),
		Submitting: s.submitting,
		CanSubmit:  len(s.files) > 0 && !s.submitting,
	}
}

// Files returns the pending files in order.
func (s *UploadService) Files() []domain.PendingFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PendingFile{}, s.files...)
}

// AddFiles appends files up to the remaining capacity and returns how many
// were accepted.
func (s *UploadService) AddFiles(files []domain.PendingFile) int {
	s.mu.Lock()
	room := s.capacity() - len(s.files)
	if room <= 0 || len(files) == 0 {
		s.mu.Unlock()
		return 0
	}
	if len(files) > room {
		files = files[:room]
	}
	for _, f := range files {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if f.Size == 0 {
			f.Size = int64(len(f.Data))
		}
		s.files = append(s.files, f)
	}
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentUpload)
	return len(files)
}

// RemoveFile drops the pending file at index; the others keep their order.
func (s *UploadService) RemoveFile(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.files) {
		s.mu.Unlock()
		return ErrFileIndex
	}
	s.files = append(s.files[:index:index], s.files[index+1:]...)
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentUpload)
	return nil
}

// Submit uploads the batch. An empty batch is a no-op.
func (s *UploadService) Submit(ctx context.Context) (*domain.UploadResult, error) {
	s.mu.Lock()
	if len(s.files) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.submitting = true
	epoch := s.epoch
	batch := append([]domain.PendingFile{}, s.files...)
	s.version++
	s.mu.Unlock()
	s.out.Render(ComponentUpload)

	res, err := s.API.Upload(context.WithoutCancel(ctx), batch)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, ErrStale
	}
	s.submitting = false
	s.version++
	if err != nil {
		s.mu.Unlock()
		s.out.Render(ComponentUpload)
		s.logger.Warn().Err(err).Int("files", len(batch)).Msg("upload batch")
		notice(s.out, domain.NoticeError, "Upload error: "+err.Error())
		return nil, err
	}
	s.files = withoutFiles(s.files, batch)
	s.mu.Unlock()
	s.out.Render(ComponentUpload)

	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("%d document(s) received!", len(res.UploadedDocuments))
	}
	s.logger.Info().Int("files", len(batch)).Int("accepted", len(res.UploadedDocuments)).Msg("upload batch submitted")
	notice(s.out, domain.NoticeSuccess, msg)
	s.scheduleRefresh()
	return res, nil
}

// scheduleRefresh replaces any pending refresh with a new one.
func (s *UploadService) scheduleRefresh() {
	if s.Scheduler == nil || s.Refresh == nil {
		return
	}
	cancel, err := s.Scheduler.After(s.RefreshDelay, func() {
		if err := s.Refresh(context.Background()); err != nil {
			s.logger.Debug().Err(err).Msg("deferred document refresh")
		}
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("schedule document refresh")
		return
	}
	s.mu.Lock()
	prev := s.cancelRefresh
	s.cancelRefresh = cancel
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Reset empties the batch and cancels a pending refresh (session teardown).
func (s *UploadService) Reset() {
	s.mu.Lock()
	s.epoch++
	s.files = nil
	s.submitting = false
	cancel := s.cancelRefresh
	s.cancelRefresh = nil
	s.version++
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.out.Render(ComponentUpload)
}

// withoutFiles returns files minus the entries of sent, matched by id.
func withoutFiles(files, sent []domain.PendingFile) []domain.PendingFile {
	gone := make(map[string]struct{}, len(sent))
	for _, f := range sent {
		gone[f.ID] = struct{}{}
	}
	out := make([]domain.PendingFile, 0, len(files))
	for _, f := range files {
		if _, ok := gone[f.ID]; !ok {
			out = append(out, f)
		}
	}
	return out
}
