/*
Package history keeps a short rolling log of past runs in a JSON file.
*/
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shanehull/wsbscraper/internal/logger"
	"github.com/shanehull/wsbscraper/internal/types"
)

const (
	historyFileName = "wsb_run_history.json"
	historyDirName  = "wsbscraper"
	MaxRuns         = 30
	topTickers      = 10
)

type RunSummary struct {
	RunAt         time.Time `json:"run_at"`
	Subreddit     string    `json:"subreddit"`
	Granularity   string    `json:"granularity"`
	PostsFetched  int       `json:"posts_fetched"`
	PostsInWindow int       `json:"posts_in_window"`
	Scored        int       `json:"scored"`
	ScoreFailures int       `json:"score_failures"`
	Tickers       int       `json:"tickers"`
	TopTickers    []string  `json:"top_tickers"`
	FailedSinks   []string  `json:"failed_sinks,omitempty"`
}

type History struct {
	Runs []RunSummary `json:"runs"`
}

type Manager struct {
	history         History
	mutex           sync.Mutex
	historyFilePath string
	log             *logger.Logger
}

// NewManager opens the history in dir, or in the system temp dir when dir is empty.
func NewManager(dir string, log *logger.Logger) (*Manager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), historyDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
	}

	m := &Manager{
		historyFilePath: filepath.Join(dir, historyFileName),
		log:             log,
	}
	m.loadHistory()
	return m, nil
}

func (m *Manager) loadHistory() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.history = History{}

	data, err := os.ReadFile(m.historyFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.log.Debugf("History file %s not found, starting fresh", m.historyFilePath)
			return
		}
		m.log.WithError(err).Warnf("Error reading history file %s, starting fresh", m.historyFilePath)
		return
	}

	var loaded History
	if err := json.Unmarshal(data, &loaded); err != nil {
		m.log.WithError(err).Warn("Error unmarshalling history JSON, starting fresh")
		return
	}

	m.history = loaded
	m.log.Debugf("Loaded %d previous runs", len(m.history.Runs))
}

func (m *Manager) saveHistory() error {
	data, err := json.MarshalIndent(m.history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.WriteFile(m.historyFilePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file %s: %w", m.historyFilePath, err)
	}
	return nil
}

func Summarize(report *types.RunReport) RunSummary {
	s := RunSummary{
		RunAt:         report.RunAt.UTC(),
		Subreddit:     report.Subreddit,
		Granularity:   string(report.Granularity),
		PostsFetched:  report.PostsFetched,
		PostsInWindow: report.PostsInWindow,
		Scored:        report.Scored,
		ScoreFailures: report.ScoreFailures,
		Tickers:       len(report.Results),
	}

	seen := make(map[string]bool)
	for _, r := range report.Results {
		if len(s.TopTickers) == topTickers {
			break
		}
		if seen[r.Ticker] {
			continue
		}
		seen[r.Ticker] = true
		s.TopTickers = append(s.TopTickers, r.Ticker)
	}

	for _, sink := range report.Sinks {
		if sink.Error != "" {
			s.FailedSinks = append(s.FailedSinks, sink.Sink)
		}
	}
	return s
}

// Last returns the most recent run for subreddit.
func (m *Manager) Last(subreddit string) (RunSummary, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i := len(m.history.Runs) - 1; i >= 0; i-- {
		if m.history.Runs[i].Subreddit == subreddit {
			return m.history.Runs[i], true
		}
	}
	return RunSummary{}, false
}

// NewEntrants lists the top tickers of current that were not in the top of previous.
func NewEntrants(previous, current RunSummary) []string {
	before := make(map[string]bool, len(previous.TopTickers))
	for _, t := range previous.TopTickers {
		before[t] = true
	}

	var out []string
	for _, t := range current.TopTickers {
		if !before[t] {
			out = append(out, t)
		}
	}
	return out
}

// Record appends the run and persists the last MaxRuns entries.
func (m *Manager) Record(report *types.RunReport) (RunSummary, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := Summarize(report)
	m.history.Runs = append(m.history.Runs, s)
	if len(m.history.Runs) > MaxRuns {
		m.history.Runs = m.history.Runs[len(m.history.Runs)-MaxRuns:]
	}

	if err := m.saveHistory(); err != nil {
		return s, err
	}
	m.log.Debugf("Saved run history to %s", m.historyFilePath)
	return s, nil
}

func (m *Manager) Runs() []RunSummary {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := make([]RunSummary, len(m.history.Runs))
	copy(out, m.history.Runs)
	return out
}

func (m *Manager) HistoryFilePath() string {
	return m.historyFilePath
}
