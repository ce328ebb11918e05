package core

// service.go wraps the pure pipeline for a multi-user server.
//
// A request flow is two steps:
//  1. Inspect loads a sheet, classifies it and stores the RawTable under a
//     dataset id.
//  2. Generate runs the pipeline on that dataset with the user's overrides
//     and column choices, serializes the export and stores it under a run id.
//
// Datasets and runs live in memory only and are dropped after DatasetTTL by
// the expiry scheduler. Each dataset belongs to one upload and is never shared.

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/rollup/internal/logging"
)

// Defaults for the service.
const (
	DefaultSheet       = "School Info"
	DefaultSkipRows    = 2
	DefaultPreviewRows = 10
	DefaultDatasetTTL  = 30 * time.Minute
)

// WorkbookReader loads sheets from workbook bytes.
type WorkbookReader interface {
	SheetNames(data []byte) ([]string, error)
	Load(data []byte, sheet string, skip int) (*RawTable, error)
}

// WorkbookWriter serializes a result. cleaned may be nil.
type WorkbookWriter interface {
	WriteResult(result *AggregationResult, cleaned *CleanedTable) ([]byte, error)
}

// Recorder receives run measurements. The metrics package implements it.
type Recorder interface {
	ObserveInspect(profiles Profiles, rows int)
	ObserveRun(outcome string, duration time.Duration)
	SetStored(datasets, runs int)
}

// Run outcomes reported to the Recorder.
const (
	OutcomeSuccess     = "success"
	OutcomeConfigError = "config_error"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
)

type nopRecorder struct{}

func (nopRecorder) ObserveInspect(Profiles, int)     {}
func (nopRecorder) ObserveRun(string, time.Duration) {}
func (nopRecorder) SetStored(int, int)               {}

// ServiceConfig holds the tunables of a Service. Zero values use defaults,
// except DefaultSkip: 0 is a valid skip count and a negative value selects
// DefaultSkipRows.
type ServiceConfig struct {
	DefaultSheet string
	DefaultSkip  int
	PreviewRows  int
	DatasetTTL   time.Duration
	GroupHints   []string
	ValueHints   []string

	Classifier   *Classifier
	Standardizer *Standardizer
	Limiter      *RunLimiter
	Recorder     Recorder
}

// Service runs roll-ups for many users at once.
type Service struct {
	reader WorkbookReader
	writer WorkbookWriter
	cfg    ServiceConfig
	now    func() time.Time

	mu       sync.RWMutex
	datasets map[string]*dataset
	runs     map[string]*storedRun
}

type dataset struct {
	inspection *Inspection
	raw        *RawTable
	createdAt  time.Time
}

type storedRun struct {
	fileName  string
	data      []byte
	createdAt time.Time
}

// NewService creates a Service.
func NewService(reader WorkbookReader, writer WorkbookWriter, cfg ServiceConfig) *Service {
	if cfg.DefaultSheet == "" {
		cfg.DefaultSheet = DefaultSheet
	}
	if cfg.DefaultSkip < 0 {
		cfg.DefaultSkip = DefaultSkipRows
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	if cfg.DatasetTTL <= 0 {
		cfg.DatasetTTL = DefaultDatasetTTL
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier()
	}
	if cfg.Standardizer == nil {
		cfg.Standardizer = DefaultStandardizer()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRunLimiter(DefaultMaxConcurrentRuns, DefaultMaxWaitTime)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}

	return &Service{
		reader:   reader,
		writer:   writer,
		cfg:      cfg,
		now:      time.Now,
		datasets: make(map[string]*dataset),
		runs:     make(map[string]*storedRun),
	}
}

// Config returns the effective service configuration.
func (s *Service) Config() ServiceConfig { return s.cfg }

// InspectRequest is an uploaded workbook and the sheet to read.
type InspectRequest struct {
	FileName string
	Data     []byte
	Sheet    string // empty uses the default sheet
	SkipRows *int   // nil uses the default skip count
}

// Inspection is a loaded and classified sheet, ready for column selection.
type Inspection struct {
	DatasetID string     `json:"datasetId"`
	FileName  string     `json:"fileName"`
	Sheet     string     `json:"sheet"`
	Sheets    []string   `json:"sheets"`
	SkipRows  int        `json:"skipRows"`
	Rows      int        `json:"rows"`
	Columns   []string   `json:"columns"`
	Profiles  Profiles   `json:"profiles"`
	Preview   [][]string `json:"preview"`
	Selection Selection  `json:"selection"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Inspect loads and classifies a sheet and stores it for Generate.
func (s *Service) Inspect(ctx context.Context, req InspectRequest) (*Inspection, error) {
	if req.Data == nil {
		return nil, ErrNoFile
	}
	if len(req.Data) == 0 {
		return nil, ErrEmptyFile
	}

	sheet := strings.TrimSpace(req.Sheet)
	if sheet == "" {
		sheet = s.cfg.DefaultSheet
	}
	skip := s.cfg.DefaultSkip
	if req.SkipRows != nil {
		skip = *req.SkipRows
	}
	if skip < 0 {
		return nil, &ConfigurationError{Reason: ReasonNegativeSkip}
	}

	if err := s.cfg.Limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.cfg.Limiter.Release()

	sheets, err := s.reader.SheetNames(req.Data)
	if err != nil {
		return nil, withFileName(err, req.FileName)
	}
	sheet = resolveSheet(sheets, sheet)

	raw, err := s.reader.Load(req.Data, sheet, skip)
	if err != nil {
		return nil, withFileName(err, req.FileName)
	}

	profiles, _ := Profile(raw, s.cfg.Classifier, OverrideSet{})
	now := s.now()

	insp := &Inspection{
		DatasetID: uuid.New().String(),
		FileName:  req.FileName,
		Sheet:     sheet,
		Sheets:    sheets,
		SkipRows:  skip,
		Rows:      raw.Len(),
		Columns:   append([]string(nil), raw.Columns...),
		Profiles:  profiles,
		Preview:   Preview(raw, s.cfg.PreviewRows),
		Selection: DefaultSelection(profiles, s.cfg.GroupHints, s.cfg.ValueHints),
		ExpiresAt: now.Add(s.cfg.DatasetTTL),
	}

	s.mu.Lock()
	s.datasets[insp.DatasetID] = &dataset{inspection: insp, raw: raw, createdAt: now}
	s.mu.Unlock()
	s.recordStored()
	s.cfg.Recorder.ObserveInspect(profiles, raw.Len())

	logging.WithFields(ctx, "dataset_id", insp.DatasetID).Info("dataset inspected",
		"file", req.FileName,
		"sheet", sheet,
		"rows", raw.Len(),
		"columns", len(raw.Columns),
	)

	return insp, nil
}

// Dataset returns the stored inspection of a dataset.
func (s *Service) Dataset(id string) (*Inspection, error) {
	s.mu.RLock()
	ds, ok := s.datasets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrDatasetNotFound
	}
	return ds.inspection, nil
}

// Sheets lists the sheet names of a workbook.
// It takes a run slot without queueing: when every slot is busy it returns
// ErrTooManyRuns at once.
func (s *Service) Sheets(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if !s.cfg.Limiter.TryAcquire() {
		return nil, ErrTooManyRuns
	}
	defer s.cfg.Limiter.Release()

	return s.reader.SheetNames(data)
}

// GenerateRequest is the user's column selection for a dataset.
type GenerateRequest struct {
	Overrides      OverrideSet
	GroupBy        string
	Value          string
	IncludeCleaned bool
}

// RunResult is a completed roll-up.
type RunResult struct {
	RunID            string             `json:"runId"`
	DatasetID        string             `json:"datasetId"`
	Profiles         Profiles           `json:"profiles"`
	UnknownOverrides []string           `json:"unknownOverrides,omitempty"`
	Result           *AggregationResult `json:"result"`
	Ranked           []GroupTotal       `json:"ranked"`
	GrandTotal       float64            `json:"grandTotal"`
	Rows             int                `json:"rows"`
	FileName         string             `json:"fileName"`
	Duration         time.Duration      `json:"durationNs"`
}

// Generate runs the pipeline on a stored dataset and stores the export.
// A ConfigurationError is returned as-is so the caller can prompt for a new
// selection; nothing is stored in that case.
func (s *Service) Generate(ctx context.Context, datasetID string, req GenerateRequest) (*RunResult, error) {
	start := time.Now()

	s.mu.RLock()
	ds, ok := s.datasets[datasetID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrDatasetNotFound
	}

	if err := s.cfg.Limiter.Acquire(ctx); err != nil {
		s.cfg.Recorder.ObserveRun(OutcomeRejected, time.Since(start))
		return nil, err
	}
	defer s.cfg.Limiter.Release()

	runID := uuid.New().String()
	log := logging.WithFields(ctx, "dataset_id", datasetID, "run_id", runID)

	report, err := Run(ds.raw, Options{
		Overrides:    req.Overrides,
		GroupBy:      req.GroupBy,
		Value:        req.Value,
		Classifier:   s.cfg.Classifier,
		Standardizer: s.cfg.Standardizer,
	})
	if err != nil {
		outcome := OutcomeError
		if IsConfigurationError(err) {
			outcome = OutcomeConfigError
		}
		s.cfg.Recorder.ObserveRun(outcome, time.Since(start))
		log.Warn("run rejected", "group_by", req.GroupBy, "value", req.Value, "error", err)
		return nil, err
	}
	if len(report.UnknownOverrides) > 0 {
		log.Warn("overrides name unknown columns", "columns", report.UnknownOverrides)
	}

	var cleaned *CleanedTable
	if req.IncludeCleaned {
		cleaned = report.Cleaned
	}
	data, err := s.writer.WriteResult(report.Result, cleaned)
	if err != nil {
		s.cfg.Recorder.ObserveRun(OutcomeError, time.Since(start))
		return nil, fmt.Errorf("write export: %w", err)
	}

	res := &RunResult{
		RunID:            runID,
		DatasetID:        datasetID,
		Profiles:         report.Profiles,
		UnknownOverrides: report.UnknownOverrides,
		Result:           report.Result,
		Ranked:           report.Result.SortedByTotal(),
		GrandTotal:       report.Result.GrandTotal(),
		Rows:             report.Cleaned.Len(),
		FileName:         DownloadName(report.Result),
		Duration:         time.Since(start),
	}

	s.mu.Lock()
	s.runs[runID] = &storedRun{fileName: res.FileName, data: data, createdAt: s.now()}
	s.mu.Unlock()
	s.recordStored()
	s.cfg.Recorder.ObserveRun(OutcomeSuccess, res.Duration)

	log.Info("run completed",
		"group_by", req.GroupBy,
		"value", req.Value,
		"groups", report.Result.Len(),
		"rows", res.Rows,
		"duration_ms", res.Duration.Milliseconds(),
	)

	return res, nil
}

// Download returns the export file of a run.
func (s *Service) Download(runID string) (string, []byte, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return "", nil, ErrRunNotFound
	}
	return run.fileName, run.data, nil
}

// LimiterStatus returns the run limiter state.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.cfg.Limiter.Status()
}

// WaitForRuns blocks until in-flight runs finish or ctx is done.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.cfg.Limiter.WaitForDrain(ctx)
}

// Stored returns how many datasets and runs are held in memory.
func (s *Service) Stored() (datasets, runs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets), len(s.runs)
}

func (s *Service) recordStored() {
	d, r := s.Stored()
	s.cfg.Recorder.SetStored(d, r)
}

// withFileName attaches the upload name to an UnreadableWorkbookError.
func withFileName(err error, name string) error {
	var ue *UnreadableWorkbookError
	if errors.As(err, &ue) && ue.FileName == "" {
		return &UnreadableWorkbookError{FileName: name, Err: ue.Err}
	}
	return err
}

// resolveSheet returns the workbook's spelling of sheet: an exact match
// first, then a trimmed case-insensitive one. Unknown names are returned
// unchanged so the reader reports them.
func resolveSheet(sheets []string, sheet string) string {
	for _, s := range sheets {
		if s == sheet {
			return s
		}
	}
	for _, s := range sheets {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(sheet)) {
			return s
		}
	}
	return sheet
}

// Preview returns up to n rows of t as display strings in column order.
func Preview(t *RawTable, n int) [][]string {
	if n > t.Len() {
		n = t.Len()
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			row[j] = t.Rows[i][col].String()
		}
		out[i] = row
	}
	return out
}

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// DownloadName builds the export file name, "<value>_by_<group>.xlsx".
func DownloadName(r *AggregationResult) string {
	value := slug(r.ValueColumn)
	group := slug(r.GroupColumn)
	if value == "" {
		value = "totals"
	}
	if group == "" {
		group = "group"
	}
	return value + "_by_" + group + ".xlsx"
}

func slug(s string) string {
	return strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(s), "_"), "_")
}
