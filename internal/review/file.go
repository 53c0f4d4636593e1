package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/gafferworks/gaffer/internal/ctxutil"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// dropDirPerm is the mode for a created drop directory.
const dropDirPerm = 0o750

// Compile-time interface check.
var _ Source = (*FileSource)(nil)

// FileSource watches a drop directory for review feedback files. Each
// file is a YAML document naming a pull request and its reviews; the
// latest document per pull request wins. Files present at startup are
// loaded immediately, later drops arrive through the directory watch.
//
// Example document:
//
//	pr_number: 117
//	reviews:
//	  - reviewer: alice
//	    approved: true
//	  - reviewer: bob
//	    requested_changes:
//	      - path: internal/forge/clihost.go
//	        description: classify auth failures separately
type FileSource struct {
	dir     string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	byPR map[int][]domain.ReviewFeedback

	done      chan struct{}
	closeOnce sync.Once
}

// FileSourceOption configures a FileSource.
type FileSourceOption func(*FileSource)

// WithFileSourceLogger sets the logger for watch events.
func WithFileSourceLogger(logger zerolog.Logger) FileSourceOption {
	return func(s *FileSource) {
		s.logger = logger
	}
}

// NewFileSource creates the drop directory if needed, loads any feedback
// files already present, and starts watching for new ones. Callers own
// the returned source and must Close it.
func NewFileSource(dir string, opts ...FileSourceOption) (*FileSource, error) {
	s := &FileSource{
		dir:    dir,
		logger: zerolog.Nop(),
		byPR:   make(map[int][]domain.ReviewFeedback),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, dropDirPerm); err != nil {
		return nil, fmt.Errorf("ensure review drop dir %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create review watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch review drop dir %s: %w", dir, err)
	}
	s.watcher = watcher

	s.scanDir()
	go s.watchLoop()

	return s, nil
}

// Fetch returns the feedback most recently dropped for the pull request.
func (s *FileSource) Fetch(ctx context.Context, prNumber int) ([]domain.ReviewFeedback, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.byPR[prNumber]), nil
}

// Close stops the directory watch. Cached feedback stays readable.
func (s *FileSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})
	return err
}

// watchLoop applies drop-directory events until Close.
func (s *FileSource) watchLoop() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := s.loadFile(event.Name); err != nil {
					s.logger.Warn().Err(err).Str("file", filepath.Base(event.Name)).Msg("review drop ignored")
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error().Err(err).Msg("review watcher error")
		}
	}
}

// scanDir loads every feedback file already present in the drop dir.
func (s *FileSource) scanDir() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn().Err(err).Str("dir", s.dir).Msg("review drop dir scan failed")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := s.loadFile(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("review drop ignored")
		}
	}
}

// loadFile parses one drop file and installs its feedback. Non-YAML
// files are skipped silently; malformed YAML is reported so a truncated
// write surfaces in the log and is retried on the next write event.
func (s *FileSource) loadFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return nil
	}

	data, err := os.ReadFile(path) //#nosec G304 -- path comes from the watched drop dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var doc feedbackDocument
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w: %w", filepath.Base(path), gaffererrors.ErrFeedbackMalformed, err)
	}
	if doc.PRNumber <= 0 {
		return fmt.Errorf("%s: missing pr_number: %w", filepath.Base(path), gaffererrors.ErrFeedbackMalformed)
	}

	feedback := make([]domain.ReviewFeedback, 0, len(doc.Reviews))
	for _, entry := range doc.Reviews {
		feedback = append(feedback, entry.toDomain())
	}

	s.mu.Lock()
	s.byPR[doc.PRNumber] = feedback
	s.mu.Unlock()

	s.logger.Info().
		Int("pr_number", doc.PRNumber).
		Int("reviews", len(feedback)).
		Str("file", filepath.Base(path)).
		Msg("review feedback loaded")

	return nil
}

// feedbackDocument is the on-disk shape of a review drop file.
type feedbackDocument struct {
	PRNumber int           `yaml:"pr_number"`
	Reviews  []reviewEntry `yaml:"reviews"`
}

type reviewEntry struct {
	Reviewer         string         `yaml:"reviewer"`
	Approved         bool           `yaml:"approved"`
	Comments         []commentEntry `yaml:"comments"`
	RequestedChanges []changeEntry  `yaml:"requested_changes"`
}

type commentEntry struct {
	Path string `yaml:"path"`
	Body string `yaml:"body"`
}

type changeEntry struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description"`
}

func (e reviewEntry) toDomain() domain.ReviewFeedback {
	feedback := domain.ReviewFeedback{
		Reviewer: e.Reviewer,
		Approved: e.Approved,
	}
	for _, c := range e.Comments {
		feedback.Comments = append(feedback.Comments, domain.ReviewComment{Path: c.Path, Body: c.Body})
	}
	for _, c := range e.RequestedChanges {
		feedback.RequestedChanges = append(feedback.RequestedChanges, domain.RequestedChange{Path: c.Path, Description: c.Description})
	}
	return feedback
}
