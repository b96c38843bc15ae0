package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/importer"
	"github.com/ComputerScienceHouse/packet/internal/model"
	"github.com/ComputerScienceHouse/packet/internal/packetapi"
	"github.com/ComputerScienceHouse/packet/pkg/errors"
)

const rosterText = "Alice,1,x,alice1\nBob,0,y,bob2\n"

type packetServer struct {
	*httptest.Server
	requests int32
}

func newPacketServer(t *testing.T) *packetServer {
	t.Helper()
	ps := &packetServer{}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		atomic.AddInt32(&ps.requests, 1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *packetServer) count() int {
	return int(atomic.LoadInt32(&ps.requests))
}

func testImporter(baseURL string) *importer.Importer {
	client := packetapi.NewClient(config.PacketAPIConfig{
		BaseURL:          baseURL,
		PacketsEndpoint:  "/api/v1/packets",
		FreshmenEndpoint: "/api/v1/freshmen",
		FreshmenPayload:  config.FreshmenPayloadRecords,
		Timeout:          2 * time.Second,
	})
	return importer.NewImporter(client, 2*time.Second)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseImportArgs(t *testing.T) {
	t.Cleanup(func() { startDate = "" })

	mode, err := parseImportArgs("sync-freshmen")
	require.NoError(t, err)
	assert.Equal(t, model.ModeSyncFreshmen, mode)

	_, err = parseImportArgs("delete-everyone")
	assert.ErrorIs(t, err, errors.ErrInvalidMode)

	startDate = "08/24/2026"
	_, err = parseImportArgs("create-packets")
	var verr errors.ValidationError
	require.True(t, stderrors.As(err, &verr))
	assert.Equal(t, "start-date", verr.Field)
}

func TestImportFileSubmits(t *testing.T) {
	ps := newPacketServer(t)
	path := writeFile(t, t.TempDir(), "freshmen.csv", rosterText)

	var out bytes.Buffer
	res, err := importFile(context.Background(), &out, testImporter(ps.URL), model.ModeSyncFreshmen, path)
	require.NoError(t, err)

	assert.Equal(t, importer.OutcomeSubmitted, res.Outcome)
	assert.Equal(t, 1, ps.count())
	assert.Contains(t, out.String(), "Uploading")
	assert.Contains(t, out.String(), "2 records submitted")
}

func TestImportFileIgnoresInvalidName(t *testing.T) {
	ps := newPacketServer(t)
	path := writeFile(t, t.TempDir(), "freshmen.pdf", rosterText)

	var out bytes.Buffer
	res, err := importFile(context.Background(), &out, testImporter(ps.URL), model.ModeSyncFreshmen, path)
	require.NoError(t, err)

	assert.Equal(t, importer.OutcomeIgnored, res.Outcome)
	assert.Zero(t, ps.count())
	assert.Empty(t, out.String())
}

func TestImportFileMissingIsIgnored(t *testing.T) {
	ps := newPacketServer(t)

	res, err := importFile(context.Background(), io.Discard, testImporter(ps.URL), model.ModeSyncFreshmen,
		filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Equal(t, importer.OutcomeIgnored, res.Outcome)
	assert.Zero(t, ps.count())
}

func TestRunPreviewWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "freshmen.txt", rosterText+"nobody\n")
	xlsxOut = filepath.Join(dir, "preview.xlsx")
	t.Cleanup(func() { xlsxOut = "" })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)

	require.NoError(t, runPreview(cmd, []string{path}))
	assert.Contains(t, out.String(), "alice1")
	assert.Contains(t, out.String(), "2 records, 2 skipped lines")

	f, err := excelize.OpenFile(xlsxOut)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Roster")
}

func TestRunPreviewRejectsInvalidName(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(io.Discard)

	err := runPreview(cmd, []string{"roster.xlsx"})
	assert.ErrorIs(t, err, errors.ErrInvalidFileName)
}

func TestWatchDirImportsDroppedRoster(t *testing.T) {
	ps := newPacketServer(t)
	dir := t.TempDir()

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()
	require.NoError(t, watcher.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchDir(ctx, io.Discard, watcher, testImporter(ps.URL), model.ModeSyncFreshmen)
	}()

	writeFile(t, dir, "notes.md", "not a roster")
	writeFile(t, dir, "freshmen.csv", rosterText)

	assert.Eventually(t, func() bool { return ps.count() == 1 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, 1, ps.count())
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	c, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/packets", c.PacketAPI.PacketsEndpoint)
	assert.Equal(t, 30*time.Second, c.PacketAPI.Timeout)
}
