package question

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/util"
)

const (
	questionExt = ".md"
	responseExt = ".response"
)

var questionFileRegex = regexp.MustCompile(`^q-(\d+)\.md$`)

// Store is a directory of question and response files.
// It is safe for concurrent use within one process; agents writing
// question files from other processes are tolerated.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time

	// pollInterval backs up the fsnotify watch in WaitForResponse.
	pollInterval time.Duration
}

// NewStore returns a Store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{
		dir:          dir,
		now:          time.Now,
		pollInterval: 2 * time.Second,
	}
}

// Dir returns the questions directory.
func (s *Store) Dir() string {
	return s.dir
}

// Write creates the next q-NNN.md file and returns its path.
func (s *Store) Write(fromAgent string, to Recipient, context, question string, options []string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create questions directory: %w", err)
	}

	data := Format(&Question{
		FromAgent: fromAgent,
		For:       ParseRecipient(string(to)),
		Context:   context,
		Question:  question,
		Options:   options,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another process may claim the same number between scan and link.
	const attempts = 5
	for range attempts {
		seq, err := s.maxSequence()
		if err != nil {
			return "", err
		}
		path := filepath.Join(s.dir, fileName(seq+1))
		err = util.WriteFileOnce(path, data, 0644)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, util.ErrExists) {
			return "", fmt.Errorf("failed to write question: %w", err)
		}
	}
	return "", fmt.Errorf("failed to allocate a question number after %d attempts", attempts)
}

// fileName zero-pads to three digits; larger sequences simply grow wider.
func fileName(seq int) string {
	return fmt.Sprintf("q-%03d%s", seq, questionExt)
}

func (s *Store) maxSequence() (int, error) {
	names, err := s.questionNames()
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, name := range names {
		if n := sequenceOf(name); n > highest {
			highest = n
		}
	}
	return highest, nil
}

func sequenceOf(name string) int {
	m := questionFileRegex.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// questionNames lists question file names. A missing directory has none.
func (s *Store) questionNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read questions directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && questionFileRegex.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Parse reads and parses the question file at path. Only I/O errors are
// returned; content problems degrade to defaults.
func (s *Store) Parse(path string) (*Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("question", idFromPath(path)).WithCause(errors.ErrQuestionNotFound)
		}
		return nil, errors.Wrapf(err, "failed to read question %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat question %s", path)
	}

	q := Parse(data)
	q.ID = idFromPath(path)
	q.FilePath = path
	q.ModTime = info.ModTime()
	return q, nil
}

// List returns every question ordered by sequence number.
func (s *Store) List() ([]*Question, error) {
	names, err := s.questionNames()
	if err != nil {
		return nil, err
	}
	sort.Slice(names, func(i, j int) bool {
		return sequenceOf(names[i]) < sequenceOf(names[j])
	})

	questions := make([]*Question, 0, len(names))
	for _, name := range names {
		q, err := s.Parse(filepath.Join(s.dir, name))
		if err != nil {
			if errors.Is(err, errors.ErrQuestionNotFound) {
				continue
			}
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// Resolve turns a question reference into a path. It accepts a path, a
// file name, an ID such as "q-004" or a bare sequence number such as "4".
func (s *Store) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.ContainsRune(ref, os.PathSeparator) || strings.ContainsRune(ref, '/') {
		return ref
	}
	if n, err := strconv.Atoi(ref); err == nil {
		return filepath.Join(s.dir, fileName(n))
	}
	if !strings.HasSuffix(ref, questionExt) {
		ref += questionExt
	}
	return filepath.Join(s.dir, ref)
}

// FindLatestUnanswered returns the most recently modified question without
// a response. Equal modification times resolve to the greatest file name.
func (s *Store) FindLatestUnanswered() (string, bool, error) {
	return s.findLatest(func(string) (bool, error) { return true, nil })
}

// FindLatestUnansweredFrom is FindLatestUnanswered restricted to questions
// written by agent.
func (s *Store) FindLatestUnansweredFrom(agent string) (string, bool, error) {
	return s.findLatest(func(path string) (bool, error) {
		q, err := s.Parse(path)
		if err != nil {
			return false, err
		}
		return q.FromAgent == agent, nil
	})
}

func (s *Store) findLatest(match func(path string) (bool, error)) (string, bool, error) {
	names, err := s.questionNames()
	if err != nil {
		return "", false, err
	}

	var (
		bestName string
		bestTime time.Time
	)
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(ResponsePath(path)); err == nil {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		ok, err := match(path)
		if err != nil {
			if errors.Is(err, errors.ErrQuestionNotFound) {
				continue
			}
			return "", false, err
		}
		if !ok {
			continue
		}

		mt := info.ModTime()
		if bestName == "" || mt.After(bestTime) || (mt.Equal(bestTime) && name > bestName) {
			bestName, bestTime = name, mt
		}
	}

	if bestName == "" {
		return "", false, nil
	}
	return filepath.Join(s.dir, bestName), true, nil
}

// ResponsePath returns the response file correlated with questionPath.
func ResponsePath(questionPath string) string {
	return strings.TrimSuffix(questionPath, filepath.Ext(questionPath)) + responseExt
}

// WriteResponse records the answer to the question at questionPath and
// returns the response path. A question can only be answered once.
func (s *Store) WriteResponse(questionPath, text string) (string, error) {
	if _, err := os.Stat(questionPath); err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFoundError("question", idFromPath(questionPath)).WithCause(errors.ErrQuestionNotFound)
		}
		return "", fmt.Errorf("failed to stat question: %w", err)
	}

	respPath := ResponsePath(questionPath)
	content := fmt.Sprintf("# Response\n\n%s\n\nAnswered: %s\n", strings.TrimSpace(text), s.now().Format(time.RFC3339))

	if err := util.WriteFileOnce(respPath, []byte(content), 0644); err != nil {
		if errors.Is(err, util.ErrExists) {
			return "", errors.NewAlreadyExistsError("response", idFromPath(questionPath)).WithCause(errors.ErrAlreadyAnswered)
		}
		return "", fmt.Errorf("failed to write response: %w", err)
	}
	return respPath, nil
}

// ReadResponse returns the response text for questionPath and whether the
// question has been answered.
func (s *Store) ReadResponse(questionPath string) (string, bool, error) {
	data, err := os.ReadFile(ResponsePath(questionPath))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read response: %w", err)
	}
	return parseResponse(string(data)), true, nil
}

// parseResponse extracts the text between the "# Response" header and the
// trailing "Answered:" line. Files missing either marker are used as is.
func parseResponse(content string) string {
	body := strings.TrimSpace(content)
	if first, rest, ok := strings.Cut(body, "\n"); ok && strings.EqualFold(strings.TrimSpace(first), "# response") {
		body = rest
	} else if strings.EqualFold(body, "# response") {
		body = ""
	}
	if i := strings.LastIndex(body, "\nAnswered:"); i >= 0 {
		body = body[:i]
	} else if strings.HasPrefix(body, "Answered:") {
		body = ""
	}
	return strings.TrimSpace(body)
}

// WaitForResponse blocks until questionPath has a response or ctx ends.
func (s *Store) WaitForResponse(ctx context.Context, questionPath string) (string, error) {
	respPath := ResponsePath(questionPath)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer func() { _ = watcher.Close() }()
		if err := watcher.Add(filepath.Dir(respPath)); err == nil {
			events, errs = watcher.Events, watcher.Errors
		}
	}

	// Check after the watch is installed so a response written in between
	// is not missed.
	if text, ok, err := s.ReadResponse(questionPath); err != nil || ok {
		return text, err
	}

	settled := time.NewTimer(0)
	<-settled.C
	defer settled.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	check := func() (string, bool, error) { return s.ReadResponse(questionPath) }

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Base(event.Name) != filepath.Base(respPath) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			// Give a writer that is not using rename a moment to finish.
			settled.Reset(100 * time.Millisecond)

		case <-settled.C:
			if text, ok, err := check(); err != nil || ok {
				return text, err
			}

		case <-ticker.C:
			if text, ok, err := check(); err != nil || ok {
				return text, err
			}

		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}
}
