package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorkbook serves one fixed table per sheet name.
type fakeWorkbook struct {
	sheets  []string
	tables  map[string]*RawTable
	openErr error

	mu       sync.Mutex
	loads    []int // skip counts passed to Load
	written  []*AggregationResult
	cleaned  []*CleanedTable
	writeErr error
}

func (f *fakeWorkbook) SheetNames([]byte) ([]string, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.sheets, nil
}

func (f *fakeWorkbook) Load(_ []byte, sheet string, skip int) (*RawTable, error) {
	f.mu.Lock()
	f.loads = append(f.loads, skip)
	f.mu.Unlock()
	t, ok := f.tables[sheet]
	if !ok {
		return nil, &SheetNotFoundError{Sheet: sheet, Available: f.sheets}
	}
	return t, nil
}

func (f *fakeWorkbook) WriteResult(r *AggregationResult, cleaned *CleanedTable) ([]byte, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, r)
	f.cleaned = append(f.cleaned, cleaned)
	return []byte("xlsx:" + r.GroupColumn), nil
}

// fakeRecorder counts run outcomes.
type fakeRecorder struct {
	mu          sync.Mutex
	outcomes    []string
	inspections int
	datasets    int
	runs        int
}

func (r *fakeRecorder) ObserveInspect(Profiles, int) {
	r.mu.Lock()
	r.inspections++
	r.mu.Unlock()
}

func (r *fakeRecorder) ObserveRun(outcome string, _ time.Duration) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func (r *fakeRecorder) SetStored(datasets, runs int) {
	r.mu.Lock()
	r.datasets, r.runs = datasets, runs
	r.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *fakeWorkbook, *fakeRecorder) {
	t.Helper()
	wb := &fakeWorkbook{
		sheets: []string{"Summary", "School Info"},
		tables: map[string]*RawTable{"School Info": schoolTable()},
	}
	rec := &fakeRecorder{}
	svc := NewService(wb, wb, ServiceConfig{
		DefaultSkip: -1,
		PreviewRows: 2,
		DatasetTTL:  time.Minute,
		Recorder:    rec,
	})
	return svc, wb, rec
}

func TestService_InspectGenerateDownload(t *testing.T) {
	svc, wb, rec := newTestService(t)
	ctx := context.Background()

	insp, err := svc.Inspect(ctx, InspectRequest{FileName: "schools.xlsx", Data: []byte("wb")})
	require.NoError(t, err)

	assert.NotEmpty(t, insp.DatasetID)
	assert.Equal(t, "School Info", insp.Sheet)
	assert.Equal(t, []string{"Summary", "School Info"}, insp.Sheets)
	assert.Equal(t, DefaultSkipRows, insp.SkipRows)
	assert.Equal(t, []int{DefaultSkipRows}, wb.loads)
	assert.Equal(t, 5, insp.Rows)
	assert.Len(t, insp.Preview, 2)
	assert.Equal(t, []string{"Lincoln", "Public", "33130", "1,200", "3"}, insp.Preview[0])
	assert.Equal(t, Selection{GroupBy: "School Type", Value: "Pending"}, insp.Selection)

	got, err := svc.Dataset(insp.DatasetID)
	require.NoError(t, err)
	assert.Same(t, insp, got)

	run, err := svc.Generate(ctx, insp.DatasetID, GenerateRequest{
		GroupBy:        "School Type",
		Value:          "Students",
		IncludeCleaned: true,
	})
	require.NoError(t, err)

	assert.Equal(t, insp.DatasetID, run.DatasetID)
	assert.Equal(t, "students_by_school_type.xlsx", run.FileName)
	assert.InDelta(t, 1625.0, run.GrandTotal, 1e-9)
	assert.Equal(t, "Public", run.Ranked[0].Key)
	assert.Equal(t, 5, run.Rows)
	require.Len(t, wb.cleaned, 1)
	assert.NotNil(t, wb.cleaned[0])

	name, data, err := svc.Download(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.FileName, name)
	assert.Equal(t, []byte("xlsx:School Type"), data)

	assert.Equal(t, []string{OutcomeSuccess}, rec.outcomes)
	assert.Equal(t, 1, rec.inspections)
	assert.Equal(t, 1, rec.datasets)
	assert.Equal(t, 1, rec.runs)
}

func TestService_InspectOptions(t *testing.T) {
	svc, wb, _ := newTestService(t)
	zero := 0

	insp, err := svc.Inspect(context.Background(), InspectRequest{
		Data:     []byte("wb"),
		Sheet:    " school info ",
		SkipRows: &zero,
	})
	require.NoError(t, err)

	assert.Equal(t, "School Info", insp.Sheet, "sheet names resolve case-insensitively")
	assert.Equal(t, []int{0}, wb.loads)
}

func TestService_InspectErrors(t *testing.T) {
	negative := -1

	tests := []struct {
		name    string
		req     InspectRequest
		openErr error
		check   func(t *testing.T, err error)
	}{
		{
			name:  "no data",
			req:   InspectRequest{},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNoFile) },
		},
		{
			name:  "empty data",
			req:   InspectRequest{Data: []byte{}},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyFile) },
		},
		{
			name:  "negative skip",
			req:   InspectRequest{Data: []byte("wb"), SkipRows: &negative},
			check: func(t *testing.T, err error) { assert.True(t, IsConfigurationError(err)) },
		},
		{
			name: "missing sheet",
			req:  InspectRequest{Data: []byte("wb"), Sheet: "Schools"},
			check: func(t *testing.T, err error) {
				var sheetErr *SheetNotFoundError
				require.ErrorAs(t, err, &sheetErr)
				assert.Equal(t, "Schools", sheetErr.Sheet)
			},
		},
		{
			name:    "unreadable workbook gets the file name",
			req:     InspectRequest{FileName: "notes.txt", Data: []byte("text")},
			openErr: &UnreadableWorkbookError{Err: errors.New("zip: not a valid zip file")},
			check: func(t *testing.T, err error) {
				var ue *UnreadableWorkbookError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, "notes.txt", ue.FileName)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, wb, _ := newTestService(t)
			wb.openErr = tt.openErr

			insp, err := svc.Inspect(context.Background(), tt.req)
			assert.Nil(t, insp)
			tt.check(t, err)

			datasets, _ := svc.Stored()
			assert.Zero(t, datasets)
		})
	}
}

func TestService_GenerateConfigurationError(t *testing.T) {
	svc, wb, rec := newTestService(t)
	ctx := context.Background()

	insp, err := svc.Inspect(ctx, InspectRequest{Data: []byte("wb")})
	require.NoError(t, err)

	run, err := svc.Generate(ctx, insp.DatasetID, GenerateRequest{GroupBy: "Students", Value: "Pending"})
	assert.Nil(t, run)
	assert.True(t, IsConfigurationError(err))

	_, runs := svc.Stored()
	assert.Zero(t, runs)
	assert.Empty(t, wb.written)
	assert.Equal(t, []string{OutcomeConfigError}, rec.outcomes)

	// The dataset survives so the user can pick again.
	run, err = svc.Generate(ctx, insp.DatasetID, GenerateRequest{
		Overrides: NewOverrideSet(nil, []string{"Pending"}),
		GroupBy:   "Pending",
		Value:     "Students",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, run.Result.Len(), "every pending count is its own group")
}

func TestService_GenerateWithoutCleanedSheet(t *testing.T) {
	svc, wb, _ := newTestService(t)
	ctx := context.Background()

	insp, err := svc.Inspect(ctx, InspectRequest{Data: []byte("wb")})
	require.NoError(t, err)
	_, err = svc.Generate(ctx, insp.DatasetID, GenerateRequest{GroupBy: "School Type", Value: "Students"})
	require.NoError(t, err)

	require.Len(t, wb.cleaned, 1)
	assert.Nil(t, wb.cleaned[0])
}

func TestService_GenerateWriteError(t *testing.T) {
	svc, wb, rec := newTestService(t)
	ctx := context.Background()
	insp, err := svc.Inspect(ctx, InspectRequest{Data: []byte("wb")})
	require.NoError(t, err)

	wb.writeErr = errors.New("disk full")
	_, err = svc.Generate(ctx, insp.DatasetID, GenerateRequest{GroupBy: "School Type", Value: "Students"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "write export")
	assert.Equal(t, []string{OutcomeError}, rec.outcomes)
}

func TestService_UnknownIDs(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Dataset("missing")
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	_, err = svc.Generate(context.Background(), "missing", GenerateRequest{GroupBy: "a", Value: "b"})
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	_, _, err = svc.Download("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestService_GenerateRejectedWhenBusy(t *testing.T) {
	wb := &fakeWorkbook{sheets: []string{"School Info"}, tables: map[string]*RawTable{"School Info": schoolTable()}}
	rec := &fakeRecorder{}
	limiter := NewRunLimiter(1, 20*time.Millisecond)
	svc := NewService(wb, wb, ServiceConfig{Limiter: limiter, Recorder: rec})

	insp, err := svc.Inspect(context.Background(), InspectRequest{Data: []byte("wb")})
	require.NoError(t, err)

	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	_, err = svc.Generate(context.Background(), insp.DatasetID, GenerateRequest{GroupBy: "School Type", Value: "Students"})
	assert.ErrorIs(t, err, ErrTooManyRuns)
	assert.Equal(t, []string{OutcomeRejected}, rec.outcomes)
}

func TestService_SheetsDoesNotQueue(t *testing.T) {
	wb := &fakeWorkbook{sheets: []string{"School Info"}}
	limiter := NewRunLimiter(1, time.Minute)
	svc := NewService(wb, wb, ServiceConfig{Limiter: limiter})

	require.True(t, limiter.TryAcquire())

	start := time.Now()
	_, err := svc.Sheets([]byte("wb"))
	assert.ErrorIs(t, err, ErrTooManyRuns)
	assert.Less(t, time.Since(start), time.Second)

	limiter.Release()

	sheets, err := svc.Sheets([]byte("wb"))
	require.NoError(t, err)
	assert.Equal(t, []string{"School Info"}, sheets)
	assert.Zero(t, limiter.ActiveCount())
}

func TestService_Sweep(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	old, err := svc.Inspect(ctx, InspectRequest{Data: []byte("wb")})
	require.NoError(t, err)
	oldRun, err := svc.Generate(ctx, old.DatasetID, GenerateRequest{GroupBy: "School Type", Value: "Students"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), old.ExpiresAt)

	now = now.Add(45 * time.Second)
	fresh, err := svc.Inspect(ctx, InspectRequest{Data: []byte("wb")})
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	datasets, runs := svc.Sweep()
	assert.Equal(t, 1, datasets)
	assert.Equal(t, 1, runs)

	_, err = svc.Dataset(old.DatasetID)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	_, _, err = svc.Download(oldRun.RunID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = svc.Dataset(fresh.DatasetID)
	assert.NoError(t, err)

	assert.Equal(t, 1, rec.datasets)
	assert.Zero(t, rec.runs)
}

func TestService_StartExpirySchedulerStops(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartExpiryScheduler(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestService_ConcurrentRuns(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			insp, err := svc.Inspect(ctx, InspectRequest{Data: []byte("wb")})
			if err != nil {
				errs <- err
				return
			}
			run, err := svc.Generate(ctx, insp.DatasetID, GenerateRequest{GroupBy: "School Type", Value: "Students"})
			if err != nil {
				errs <- err
				return
			}
			if run.GrandTotal != 1625 {
				errs <- errors.New("wrong grand total")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	datasets, runs := svc.Stored()
	assert.Equal(t, 8, datasets)
	assert.Equal(t, 8, runs)
}

func TestDownloadName(t *testing.T) {
	tests := []struct {
		group, value string
		want         string
	}{
		{"School Type", "Students", "students_by_school_type.xlsx"},
		{"Region (2024)", "Pending #", "pending_by_region_2024.xlsx"},
		{"", "", "totals_by_group.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DownloadName(&AggregationResult{GroupColumn: tt.group, ValueColumn: tt.value}))
		})
	}
}

func TestPreview(t *testing.T) {
	raw := schoolTable()

	assert.Len(t, Preview(raw, 100), 5)
	assert.Empty(t, Preview(raw, 0))
	assert.Equal(t, []string{"Bayside", "", "33134", "40", "5"}, Preview(raw, 5)[4])
}
