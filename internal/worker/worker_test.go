package worker

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/importer"
	"github.com/ComputerScienceHouse/packet/internal/model"
	"github.com/ComputerScienceHouse/packet/internal/packetapi"
	"github.com/ComputerScienceHouse/packet/internal/queue"
	"github.com/ComputerScienceHouse/packet/pkg/errors"
)

type statusRepo struct {
	mu       sync.Mutex
	current  model.ImportStatus
	history  []model.ImportStatus
	message  *string
	progress model.ImportProgress
}

func (r *statusRepo) CreateImport(ctx context.Context, imp *model.Import) (int64, error) {
	return 1, nil
}

func (r *statusRepo) GetImport(ctx context.Context, importID int64) (*model.Import, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := r.current
	if status == "" {
		status = model.ImportStatusUploaded
	}
	return &model.Import{ID: importID, Status: status}, nil
}

func (r *statusRepo) UpdateImportStatus(ctx context.Context, importID int64, status model.ImportStatus, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	r.current = status
	r.history = append(r.history, status)
	r.message = errorMessage
	return nil
}

func (r *statusRepo) UpdateImportProgress(ctx context.Context, importID int64, progress model.ImportProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = progress
	return nil
}

func (r *statusRepo) ListImports(ctx context.Context, limit int) ([]model.Import, error) {
	return nil, nil
}

func (r *statusRepo) statuses() []model.ImportStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ImportStatus(nil), r.history...)
}

type memStorage map[string]string

func (s memStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s[key]
	if !ok {
		return nil, stderrors.New("no such key")
	}
	return io.NopCloser(bytes.NewBufferString(data)), nil
}

func (s memStorage) Upload(ctx context.Context, key string, data io.Reader) error {
	b, err := io.ReadAll(data)
	s[key] = string(b)
	return err
}

func (s memStorage) Delete(ctx context.Context, key string) error {
	delete(s, key)
	return nil
}

func (s memStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s[key]
	return ok, nil
}

type idleSource struct{}

func (idleSource) ConsumeIngestionQueue(ctx context.Context, handler queue.MessageHandler) error {
	<-ctx.Done()
	return nil
}

func newIngestionWorker(t *testing.T, status int, objects memStorage) (*IngestionWorker, *statusRepo) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	client := packetapi.NewClient(config.PacketAPIConfig{
		BaseURL:          srv.URL,
		PacketsEndpoint:  "/api/v1/packets",
		FreshmenEndpoint: "/api/v1/freshmen",
		FreshmenPayload:  config.FreshmenPayloadRecords,
		Timeout:          2 * time.Second,
	})
	cfg := &config.Config{}
	cfg.Workers.Ingestion.Count = 1

	repo := &statusRepo{}
	w := NewIngestionWorker(cfg, repo, objects, importer.NewImporter(client, 2*time.Second), idleSource{})
	return w, repo
}

func ingestionJob(fileName string) model.IngestionJob {
	return model.IngestionJob{
		ImportID:  7,
		S3Path:    "rosters/abc/" + fileName,
		FileName:  fileName,
		Mode:      model.ModeCreatePackets,
		StartDate: "2026-08-24",
	}
}

func TestProcessImportSubmitted(t *testing.T) {
	job := ingestionJob("freshmen.csv")
	w, repo := newIngestionWorker(t, http.StatusOK, memStorage{
		job.S3Path: "Alice,1,x,alice1\nshort\nBob,0,y,bob2\n",
	})

	require.NoError(t, w.processImport(context.Background(), job))

	assert.Equal(t, []model.ImportStatus{model.ImportStatusSubmitting, model.ImportStatusSubmitted}, repo.statuses())
	assert.Equal(t, model.ImportProgress{RecordCount: 2, SkippedCount: 2, HTTPStatus: http.StatusOK}, repo.progress)
}

func TestProcessImportRejected(t *testing.T) {
	job := ingestionJob("freshmen.csv")
	w, repo := newIngestionWorker(t, http.StatusBadRequest, memStorage{
		job.S3Path: "Alice,1,x,alice1\n",
	})

	err := w.processImport(context.Background(), job)
	require.ErrorIs(t, err, errors.ErrSubmissionRejected)

	assert.Equal(t, []model.ImportStatus{model.ImportStatusSubmitting, model.ImportStatusRejected}, repo.statuses())
	require.NotNil(t, repo.message)
	assert.Equal(t, "There was an error creating packets", *repo.message)
	assert.Equal(t, http.StatusBadRequest, repo.progress.HTTPStatus)
}

func TestProcessImportIgnoredFileName(t *testing.T) {
	job := ingestionJob("freshmen.xlsx")
	w, repo := newIngestionWorker(t, http.StatusOK, memStorage{job.S3Path: "Alice,1,x,alice1\n"})

	require.NoError(t, w.processImport(context.Background(), job))
	assert.Equal(t, []model.ImportStatus{model.ImportStatusIgnored}, repo.statuses())
}

func TestProcessImportEmptyRoster(t *testing.T) {
	job := ingestionJob("freshmen.txt")
	w, repo := newIngestionWorker(t, http.StatusOK, memStorage{job.S3Path: "nobody\n\n"})

	require.NoError(t, w.processImport(context.Background(), job))
	assert.Equal(t, []model.ImportStatus{model.ImportStatusEmpty}, repo.statuses())
	assert.Equal(t, 3, repo.progress.SkippedCount)
}

func TestProcessImportMissingObject(t *testing.T) {
	w, repo := newIngestionWorker(t, http.StatusOK, memStorage{})

	err := w.processImport(context.Background(), ingestionJob("freshmen.csv"))
	require.Error(t, err)
	assert.Equal(t, []model.ImportStatus{model.ImportStatusFailed}, repo.statuses())
	require.NotNil(t, repo.message)
	assert.Contains(t, *repo.message, "is no longer in storage")
}

func TestProcessImportSkipsFinishedImport(t *testing.T) {
	job := ingestionJob("freshmen.csv")
	w, repo := newIngestionWorker(t, http.StatusOK, memStorage{job.S3Path: "Alice,1,x,alice1\n"})
	repo.current = model.ImportStatusSubmitted

	require.NoError(t, w.processImport(context.Background(), job))
	assert.Empty(t, repo.statuses())
}

func TestQueuedJobIsMarkedFailedOnShutdown(t *testing.T) {
	job := ingestionJob("freshmen.csv")
	w, repo := newIngestionWorker(t, http.StatusOK, memStorage{job.S3Path: "Alice,1,x,alice1\n"})

	ctx, cancel := context.WithCancel(context.Background())
	w.workerPool.Start(ctx)
	cancel()

	data, err := json.Marshal(job)
	require.NoError(t, err)
	require.NoError(t, w.handleMessage(context.Background(), data))
	w.Stop()

	assert.Equal(t, []model.ImportStatus{model.ImportStatusFailed}, repo.statuses())
	require.NotNil(t, repo.message)
	assert.Contains(t, *repo.message, "stopped before the import ran")
}

func TestHandleMessageRejectsMalformedJob(t *testing.T) {
	w, _ := newIngestionWorker(t, http.StatusOK, memStorage{})
	assert.Error(t, w.handleMessage(context.Background(), []byte("{not json")))
}

func TestWorkerPoolRunsJobsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pool := NewWorkerPool(3)
	pool.Start(context.Background())

	var ran int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
			defer wg.Done()
			atomic.AddInt32(&ran, 1)
			return nil
		}))
	}
	wg.Wait()
	pool.Stop()

	assert.EqualValues(t, 10, atomic.LoadInt32(&ran))
}

func TestWorkerPoolDrainsQueueAfterCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pool := NewWorkerPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	cancel()

	var seenDone int32
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
			if ctx.Err() != nil {
				atomic.AddInt32(&seenDone, 1)
			}
			return nil
		}))
	}
	pool.Stop()

	assert.EqualValues(t, 2, atomic.LoadInt32(&seenDone))
}

func TestWorkerPoolSubmitHonorsContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pool := NewWorkerPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Nothing drains the queue; once the buffer fills Submit must report ctx.Err().
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = pool.Submit(ctx, func(context.Context) error { return nil })
	}
	assert.ErrorIs(t, err, context.Canceled)
}

type countingSyncer struct {
	calls  int32
	status int
}

func (s *countingSyncer) SyncLDAP(ctx context.Context) (*packetapi.Response, error) {
	atomic.AddInt32(&s.calls, 1)
	return &packetapi.Response{StatusCode: s.status}, nil
}

func (s *countingSyncer) count() int {
	return int(atomic.LoadInt32(&s.calls))
}

func TestLDAPSyncWorkerRunsOnStartAndOnInterval(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := &config.Config{}
	cfg.Workers.LDAPSync.Interval = 10 * time.Millisecond
	cfg.Workers.LDAPSync.RunOnStart = true

	syncer := &countingSyncer{status: http.StatusOK}
	w := NewLDAPSyncWorker(cfg, syncer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	assert.Eventually(t, func() bool { return syncer.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLDAPSyncReportsFailureStatus(t *testing.T) {
	cfg := &config.Config{}
	cfg.Workers.LDAPSync.Interval = time.Hour

	w := NewLDAPSyncWorker(cfg, &countingSyncer{status: http.StatusBadGateway})
	err := w.syncOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
