package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// Report file names inside a reports directory.
const (
	FinalReportFile   = "coverage-final.json"
	SummaryReportFile = "coverage-summary.json"
	IndexFile         = "index.yaml"
	runsDir           = "runs"
	maxIndexedRuns    = 50
)

// ErrNoReports is returned when a reports directory holds no saved run.
var ErrNoReports = errors.New("no saved coverage reports")

// ReportRun is what one coverage run saves.
type ReportRun struct {
	// Origin tells how the counts were collected, e.g. "run" or "dump".
	Origin      string
	Report      m.Report
	Summary     m.CoverageSummary
	Stats       *m.RuntimeStats
	Diagnostics []m.Diagnostic
}

// RunEntry is the index line of a saved run.
type RunEntry struct {
	ID          string    `yaml:"id"`
	CreatedAt   time.Time `yaml:"created_at"`
	Origin      string    `yaml:"origin"`
	Hash        string    `yaml:"hash"`
	Modules     int       `yaml:"modules"`
	Lines       float64   `yaml:"lines"`
	Statements  float64   `yaml:"statements"`
	Functions   float64   `yaml:"functions"`
	Branches    float64   `yaml:"branches"`
	Diagnostics int       `yaml:"diagnostics"`
}

// ReportIndex lists saved runs, newest last.
type ReportIndex struct {
	Runs []RunEntry `yaml:"runs"`
}

// Latest returns the newest run.
func (idx *ReportIndex) Latest() (RunEntry, bool) {
	if idx == nil || len(idx.Runs) == 0 {
		return RunEntry{}, false
	}

	return idx.Runs[len(idx.Runs)-1], true
}

type runYAML struct {
	Run         RunEntry        `yaml:"run"`
	Diagnostics []m.Diagnostic  `yaml:"diagnostics,omitempty"`
	Stats       *m.RuntimeStats `yaml:"stats,omitempty"`
}

// ReportStore persists coverage reports.
type ReportStore interface {
	// SaveRun writes the Istanbul reports, a per-run YAML record and the index entry.
	SaveRun(dir m.Path, run ReportRun) (RunEntry, error)
	LoadIndex(dir m.Path) (*ReportIndex, error)
	LoadReport(dir m.Path) (m.Report, error)
	LoadSummary(dir m.Path) (m.CoverageSummary, error)
	// LoadRun reads the record of one run by id.
	LoadRun(dir m.Path, id string) (RunEntry, []m.Diagnostic, *m.RuntimeStats, error)
}

// LocalReportStore writes reports as files in a directory.
type LocalReportStore struct {
	now   func() time.Time
	newID func() string
}

// NewReportStore constructs a LocalReportStore.
func NewReportStore() *LocalReportStore {
	return &LocalReportStore{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// SaveRun writes coverage-final.json and coverage-summary.json, the YAML record
// of the run and appends it to the index.
func (rs *LocalReportStore) SaveRun(dir m.Path, run ReportRun) (RunEntry, error) {
	if run.Report == nil {
		run.Report = m.Report{}
	}

	if err := os.MkdirAll(filepath.Join(string(dir), runsDir), 0o750); err != nil {
		return RunEntry{}, errors.Wrapf(err, "failed to create %s", dir)
	}

	final, err := json.MarshalIndent(run.Report, "", "  ")
	if err != nil {
		return RunEntry{}, errors.Wrap(err, "failed to encode coverage report")
	}

	if err := writeReportFile(dir, FinalReportFile, final); err != nil {
		return RunEntry{}, err
	}

	if run.Summary != nil {
		summary, err := json.MarshalIndent(run.Summary, "", "  ")
		if err != nil {
			return RunEntry{}, errors.Wrap(err, "failed to encode coverage summary")
		}

		if err := writeReportFile(dir, SummaryReportFile, summary); err != nil {
			return RunEntry{}, err
		}
	}

	entry := RunEntry{
		ID:          rs.newID(),
		CreatedAt:   rs.now().UTC(),
		Origin:      run.Origin,
		Hash:        rs.computeReportHash(final),
		Modules:     len(run.Report),
		Diagnostics: len(run.Diagnostics),
	}

	if total, ok := run.Summary[m.SummaryTotalKey]; ok {
		entry.Lines = total.Lines.Pct
		entry.Statements = total.Statements.Pct
		entry.Functions = total.Functions.Pct
		entry.Branches = total.Branches.Pct
	}

	record, err := yaml.Marshal(runYAML{Run: entry, Diagnostics: run.Diagnostics, Stats: run.Stats})
	if err != nil {
		return RunEntry{}, errors.Wrap(err, "failed to encode run record")
	}

	if err := writeReportFile(dir, filepath.Join(runsDir, entry.ID+".yaml"), record); err != nil {
		return RunEntry{}, err
	}

	index, err := rs.LoadIndex(dir)
	if err != nil && !errors.Is(err, ErrNoReports) {
		return RunEntry{}, err
	}

	if index == nil {
		index = &ReportIndex{}
	}

	index.Runs = append(index.Runs, entry)
	if len(index.Runs) > maxIndexedRuns {
		index.Runs = index.Runs[len(index.Runs)-maxIndexedRuns:]
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return RunEntry{}, errors.Wrap(err, "failed to encode report index")
	}

	if err := writeReportFile(dir, IndexFile, data); err != nil {
		return RunEntry{}, err
	}

	return entry, nil
}

// LoadIndex reads the run index of dir.
func (rs *LocalReportStore) LoadIndex(dir m.Path) (*ReportIndex, error) {
	data, err := readReportFile(dir, IndexFile)
	if err != nil {
		return nil, err
	}

	var index ReportIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", IndexFile)
	}

	return &index, nil
}

// LoadReport reads coverage-final.json of dir.
func (rs *LocalReportStore) LoadReport(dir m.Path) (m.Report, error) {
	data, err := readReportFile(dir, FinalReportFile)
	if err != nil {
		return nil, err
	}

	var report m.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", FinalReportFile)
	}

	return report, nil
}

// LoadSummary reads coverage-summary.json of dir.
func (rs *LocalReportStore) LoadSummary(dir m.Path) (m.CoverageSummary, error) {
	data, err := readReportFile(dir, SummaryReportFile)
	if err != nil {
		return nil, err
	}

	var summary m.CoverageSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", SummaryReportFile)
	}

	return summary, nil
}

// LoadRun reads the record of run id.
func (rs *LocalReportStore) LoadRun(dir m.Path, id string) (RunEntry, []m.Diagnostic, *m.RuntimeStats, error) {
	data, err := readReportFile(dir, filepath.Join(runsDir, id+".yaml"))
	if err != nil {
		return RunEntry{}, nil, nil, err
	}

	var record runYAML
	if err := yaml.Unmarshal(data, &record); err != nil {
		return RunEntry{}, nil, nil, errors.Wrapf(err, "failed to decode run %s", id)
	}

	return record.Run, record.Diagnostics, record.Stats, nil
}

// computeReportHash returns a short fingerprint of an encoded report.
func (rs *LocalReportStore) computeReportHash(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])[:16]
}

func writeReportFile(dir m.Path, name string, data []byte) error {
	path := filepath.Join(string(dir), name)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	return nil
}

func readReportFile(dir m.Path, name string) ([]byte, error) {
	path := filepath.Join(string(dir), name)

	// #nosec G304 - path is inside the configured reports directory
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.WithHint(errors.Wrapf(ErrNoReports, "%s", path), "run covpatch run or covpatch report first")
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	return data, nil
}
