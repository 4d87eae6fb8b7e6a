package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pdftools/internal/i18n"
	"go-pdftools/internal/job"
)

func tempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestCreateGetDelete(t *testing.T) {
	sm := NewSessionManager(Settings{})
	s := sm.CreateSession()
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, i18n.Default, s.Settings().Language)

	got, ok := sm.GetSession(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	path := tempFile(t, "a.pdf")
	s.AddFile(File{ID: "a.pdf", Kind: KindPDF, Path: path})
	sm.DeleteSession(s.ID)

	_, ok = sm.GetSession(s.ID)
	assert.False(t, ok)
	assert.NoFileExists(t, path)
}

func TestSettingsReplaced(t *testing.T) {
	sm := NewSessionManager(Settings{Language: i18n.English})
	s := sm.CreateSession()
	before := s.Settings()
	s.SetSettings(Settings{Language: i18n.Indonesian})

	assert.Equal(t, i18n.English, before.Language)
	assert.Equal(t, i18n.Indonesian, s.Settings().Language)
}

func TestSetOrder(t *testing.T) {
	s := NewSessionManager(Settings{}).CreateSession()
	s.AddFile(File{ID: "a", Kind: KindPDF})
	s.AddFile(File{ID: "img", Kind: KindImage})
	s.AddFile(File{ID: "b", Kind: KindPDF})
	s.AddFile(File{ID: "c", Kind: KindPDF})

	require.NoError(t, s.SetOrder([]string{"c", "a", "b"}))
	var ids []string
	for _, f := range s.FilesOfKind(KindPDF) {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
	assert.Len(t, s.GetFiles(), 4)

	for _, bad := range [][]string{
		nil,
		{"a", "b"},
		{"a", "b", "c", "c"},
		{"a", "b", "x"},
		{"a", "b", "c", "img"},
	} {
		assert.ErrorIs(t, s.SetOrder(bad), ErrInvalidOrder, "%v", bad)
	}
}

func TestGetAndRemoveFile(t *testing.T) {
	s := NewSessionManager(Settings{}).CreateSession()
	path := tempFile(t, "x.png")
	s.AddFile(File{ID: "x.png", Kind: KindImage, Path: path})

	_, err := s.GetFile("x.png", KindPDF)
	assert.ErrorIs(t, err, ErrFileNotFound)
	f, err := s.GetFile("x.png", "")
	require.NoError(t, err)
	assert.Equal(t, KindImage, f.Kind)

	require.NoError(t, s.RemoveFile("x.png"))
	assert.NoFileExists(t, path)
	assert.ErrorIs(t, s.RemoveFile("x.png"), ErrFileNotFound)
}

func TestOutputs(t *testing.T) {
	s := NewSessionManager(Settings{}).CreateSession()
	path := tempFile(t, "out.pdf")
	s.AddOutput(Output{Filename: "out.pdf", Path: path})

	o, ok := s.GetOutput("out.pdf")
	require.True(t, ok)
	assert.False(t, o.CreatedAt.IsZero())

	s.RemoveOutput("out.pdf")
	_, ok = s.GetOutput("out.pdf")
	assert.False(t, ok)
	assert.NoFileExists(t, path)
}

func TestStartJobExclusive(t *testing.T) {
	s := NewSessionManager(Settings{}).CreateSession()
	assert.Nil(t, s.Job())

	j, ctx, err := s.StartJob(context.Background(), "merge")
	require.NoError(t, err)
	require.NotNil(t, ctx)
	assert.True(t, s.JobRunning())

	_, _, err = s.StartJob(context.Background(), "split")
	assert.ErrorIs(t, err, ErrJobRunning)

	j.Finish(errors.New("boom"))
	assert.Equal(t, job.StatusFailed, j.Snapshot().Status)

	j2, _, err := s.StartJob(context.Background(), "split")
	require.NoError(t, err)
	assert.Same(t, j2, s.Job())
	j2.Finish(nil)
}

func TestSweep(t *testing.T) {
	sm := NewSessionManager(Settings{})
	idle := sm.CreateSession()
	busy := sm.CreateSession()
	fresh := sm.CreateSession()

	path := tempFile(t, "idle.pdf")
	idle.AddFile(File{ID: "idle.pdf", Path: path})
	old := time.Now().Add(-time.Hour)
	idle.lastSeen = old
	busy.lastSeen = old
	j, _, err := busy.StartJob(context.Background(), "compress")
	require.NoError(t, err)

	assert.Equal(t, 1, sm.Sweep(30*time.Minute))
	assert.Equal(t, 2, sm.Len())
	assert.NoFileExists(t, path)
	_, ok := sm.GetSession(fresh.ID)
	assert.True(t, ok)

	j.Finish(nil)
	busy.lastSeen = old
	assert.Equal(t, 1, sm.Sweep(30*time.Minute))
}
