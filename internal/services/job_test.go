package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/DevN0mad/FreedcampMCP/internal/models"
)

type sentFile struct {
	path    string
	caption string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentFile
	err  error
	hits chan struct{}
}

func (f *fakeSender) SendFile(_ context.Context, path, caption string) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentFile{path: path, caption: caption})
	f.mu.Unlock()
	if f.hits != nil {
		select {
		case f.hits <- struct{}{}:
		default:
		}
	}
	return f.err
}

type fakeSaver struct {
	report *Report
	err    error
}

func (f *fakeSaver) SaveXLSX(context.Context) (string, *Report, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return "/tmp/report.xlsx", f.report, nil
}

func newTestJob(t *testing.T, sender Sender, saver ReportSaver, opts DigestOpts, now time.Time) *DigestJobService {
	t.Helper()
	job, err := NewDigestJobService(sender, saver, opts, quietLogger())
	require.NoError(t, err)
	job.now = func() time.Time { return now }
	return job
}

func TestNewDigestJobValidation(t *testing.T) {
	_, err := NewDigestJobService(nil, &fakeSaver{}, DigestOpts{}, quietLogger())
	assert.Error(t, err)
	_, err = NewDigestJobService(&fakeSender{}, nil, DigestOpts{}, quietLogger())
	assert.Error(t, err)
	_, err = NewDigestJobService(&fakeSender{}, &fakeSaver{}, DigestOpts{Timezone: "Mars/Olympus"}, quietLogger())
	assert.Error(t, err)
}

func TestNextRunTime(t *testing.T) {
	opts := DigestOpts{Hour: 9, Minute: 30, Timezone: "Europe/Moscow"}
	msk, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before today", time.Date(2024, 3, 10, 8, 0, 0, 0, msk), time.Date(2024, 3, 10, 9, 30, 0, 0, msk)},
		{"exactly at", time.Date(2024, 3, 10, 9, 30, 0, 0, msk), time.Date(2024, 3, 11, 9, 30, 0, 0, msk)},
		{"after today", time.Date(2024, 3, 10, 22, 0, 0, 0, msk), time.Date(2024, 3, 11, 9, 30, 0, 0, msk)},
		{"utc input", time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 9, 30, 0, 0, msk)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := newTestJob(t, &fakeSender{}, &fakeSaver{}, opts, tc.now)
			assert.True(t, tc.want.Equal(job.nextRunTime()), "got %s", job.nextRunTime())
		})
	}
}

func TestRunOnceSendsDigestCaption(t *testing.T) {
	sender := &fakeSender{}
	saver := &fakeSaver{report: &Report{
		GeneratedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		Tasks:       sampleTasks(),
	}}
	job := newTestJob(t, sender, saver, DigestOpts{Scope: "Freedcamp", Timezone: "UTC"}, time.Now())

	require.NoError(t, job.RunOnce(context.Background()))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "/tmp/report.xlsx", sender.sent[0].path)
	assert.Contains(t, sender.sent[0].caption, "📋 Tasks in Freedcamp (4)")
	assert.Contains(t, sender.sent[0].caption, "🚨 OVERDUE")
}

func TestRunOnceErrors(t *testing.T) {
	job := newTestJob(t, &fakeSender{}, &fakeSaver{err: errors.New("upstream down")}, DigestOpts{}, time.Now())
	assert.ErrorContains(t, job.RunOnce(context.Background()), "build report")

	saver := &fakeSaver{report: &Report{Tasks: []models.Task{}}}
	job = newTestJob(t, &fakeSender{err: errors.New("chat not found")}, saver, DigestOpts{}, time.Now())
	assert.ErrorContains(t, job.RunOnce(context.Background()), "deliver report")
}

func TestStartFiresAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sender := &fakeSender{hits: make(chan struct{}, 1)}
	saver := &fakeSaver{report: &Report{Tasks: sampleTasks()}}
	// до запуска остается 10ms
	now := time.Date(2024, 3, 10, 8, 59, 59, 990_000_000, time.UTC)
	job := newTestJob(t, sender, saver, DigestOpts{Hour: 9, Timezone: "UTC"}, now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	select {
	case <-sender.hits:
	case <-time.After(5 * time.Second):
		t.Fatal("digest was not sent")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not stop")
	}
}
