package capture

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/record"
	"github.com/SlpAus/omikuji-record-backend/internal/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuota struct {
	mu      sync.Mutex
	allowed int
	calls   int
	err     error
	now     time.Time
}

func (q *fakeQuota) TryConsume(ctx context.Context, userID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.err != nil {
		return false, q.err
	}
	if q.allowed <= 0 {
		return false, nil
	}
	q.allowed--
	return true, nil
}

func (q *fakeQuota) Now() time.Time { return q.now }

type fakeExtractor struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	ctx   context.Context
	img   *CanonicalImage
}

func (f *fakeExtractor) Extract(ctx context.Context, img *CanonicalImage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ctx = ctx
	f.img = img
	return f.text, f.err
}

func newFakes(text string) (*fakeQuota, *fakeExtractor) {
	return &fakeQuota{allowed: 10, now: time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC)},
		&fakeExtractor{text: text}
}

func TestService_Capture(t *testing.T) {
	quota, ext := newFakes(`{"result":"中吉","恋愛":"誠意を持て"}`)
	svc := NewService(quota, ext, time.Second)

	draft, err := svc.Capture(context.Background(), "u1", encodePNG(t, 4, 4, color.White))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-03", draft.Date)
	assert.Equal(t, record.Chukichi, draft.Outcome)
	assert.True(t, draft.OutcomeDetected)
	assert.Equal(t, record.Categories{"恋愛": "誠意を持て"}, draft.Categories)

	require.NotNil(t, ext.img)
	assert.Equal(t, MinSide, ext.img.Width)
	assert.Equal(t, 1, quota.calls)
}

func TestService_CaptureDefaultsOutcome(t *testing.T) {
	quota, ext := newFakes(`{"健康":"養生せよ"}`)
	svc := NewService(quota, ext, time.Second)

	draft, err := svc.Capture(context.Background(), "u1", encodePNG(t, 4, 4, color.White))
	require.NoError(t, err)
	assert.Equal(t, record.DefaultOutcome, draft.Outcome)
	assert.False(t, draft.OutcomeDetected)
}

func TestService_QuotaExhaustedSkipsExtraction(t *testing.T) {
	quota, ext := newFakes(`{}`)
	quota.allowed = 0
	svc := NewService(quota, ext, time.Second)

	_, err := svc.Capture(context.Background(), "u1", encodePNG(t, 4, 4, color.White))
	assert.ErrorIs(t, err, usage.ErrQuotaExceeded)
	assert.Equal(t, 0, ext.calls)
}

func TestService_StoreUnavailable(t *testing.T) {
	quota, ext := newFakes(`{}`)
	quota.err = usage.ErrStoreUnavailable
	svc := NewService(quota, ext, time.Second)

	_, err := svc.Capture(context.Background(), "u1", encodePNG(t, 4, 4, color.White))
	assert.ErrorIs(t, err, usage.ErrStoreUnavailable)
	assert.Equal(t, 0, ext.calls)
}

func TestService_DecodeErrorStillConsumesQuota(t *testing.T) {
	quota, ext := newFakes(`{}`)
	svc := NewService(quota, ext, time.Second)

	_, err := svc.Capture(context.Background(), "u1", []byte("garbage"))
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, 1, quota.calls)
	assert.Equal(t, 9, quota.allowed)
	assert.Equal(t, 0, ext.calls)
}

func TestService_ExtractionErrors(t *testing.T) {
	quota, ext := newFakes("")
	ext.err = &ExtractionError{Provider: "fake", Err: errors.New("boom")}
	svc := NewService(quota, ext, time.Second)

	_, err := svc.Capture(context.Background(), "u1", encodePNG(t, 4, 4, color.White))
	assert.ErrorIs(t, err, ErrExtraction)

	ext.err = nil
	ext.text = "読めませんでした"
	_, err = svc.Capture(context.Background(), "u1", encodePNG(t, 4, 4, color.White))
	assert.ErrorIs(t, err, ErrMalformedExtraction)
}

func TestService_ExtractionDetachedFromCaller(t *testing.T) {
	quota, ext := newFakes(`{}`)
	svc := NewService(quota, ext, time.Minute)

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	_, err := svc.Capture(ctx, "u1", encodePNG(t, 4, 4, color.White))
	require.NoError(t, err)

	require.NotNil(t, ext.ctx)
	assert.Equal(t, "v", ext.ctx.Value(ctxKey{}))
	deadline, ok := ext.ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}
