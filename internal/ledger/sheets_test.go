package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"orderledger/internal/order"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeSheets emulates the two Sheets endpoints the writer uses. A non-zero
// failStatus makes every call fail with that HTTP status.
type fakeSheets struct {
	failStatus int
	appends    []sheets.ValueRange
	updates    []sheets.ValueRange
}

func (f *fakeSheets) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.failStatus != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.failStatus)
			fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, f.failStatus, http.StatusText(f.failStatus))
			return
		}

		var vr sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		switch r.Method {
		case http.MethodPost:
			f.appends = append(f.appends, vr)
			json.NewEncoder(w).Encode(&sheets.AppendValuesResponse{})
		case http.MethodPut:
			f.updates = append(f.updates, vr)
			json.NewEncoder(w).Encode(&sheets.UpdateValuesResponse{})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func newTestWriter(t *testing.T, fake *fakeSheets) *Writer {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(srv.URL),
	)
	require.NoError(t, err)

	return NewWriterWithService(svc, "test-spreadsheet", "Orders", testLogger())
}

func TestAppend(t *testing.T) {
	fake := &fakeSheets{}
	w := newTestWriter(t, fake)

	o := order.Order{
		ID:         "123",
		Number:     7,
		Customer:   order.Customer{Email: "a@b.c", Name: "A B"},
		LineItems:  []order.LineItem{},
		ReceivedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EventTopic: "orders/create",
	}

	err := w.Append(context.Background(), o)
	require.NoError(t, err)

	require.Len(t, fake.appends, 1)
	require.Len(t, fake.appends[0].Values, 1)
	row := fake.appends[0].Values[0]
	assert.Len(t, row, len(Headers))
	assert.Equal(t, "123", row[0])
	assert.Equal(t, "orders/create", row[len(row)-1])
}

func TestAppend_RateLimitIsTransient(t *testing.T) {
	w := newTestWriter(t, &fakeSheets{failStatus: http.StatusTooManyRequests})

	err := w.Append(context.Background(), order.Order{ID: "1", EventTopic: "orders/create"})
	require.Error(t, err)
	assert.True(t, IsTransient(err), "429 should classify as transient, got %v", err)
}

func TestAppend_ServerErrorIsTransient(t *testing.T) {
	w := newTestWriter(t, &fakeSheets{failStatus: http.StatusServiceUnavailable})

	err := w.Append(context.Background(), order.Order{ID: "1", EventTopic: "orders/create"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestAppend_AuthFailureIsPermanent(t *testing.T) {
	w := newTestWriter(t, &fakeSheets{failStatus: http.StatusForbidden})

	err := w.Append(context.Background(), order.Order{ID: "1", EventTopic: "orders/create"})
	require.Error(t, err)
	assert.False(t, IsTransient(err), "403 should classify as permanent, got %v", err)
}

func TestEnsureHeaders(t *testing.T) {
	fake := &fakeSheets{}
	w := newTestWriter(t, fake)

	err := w.EnsureHeaders(context.Background())
	require.NoError(t, err)

	require.Len(t, fake.updates, 1)
	require.Len(t, fake.updates[0].Values, 1)
	got := fake.updates[0].Values[0]
	require.Len(t, got, len(Headers))
	assert.Equal(t, Headers[0], got[0])
	assert.Equal(t, Headers[len(Headers)-1], got[len(got)-1])
}

func TestRanges(t *testing.T) {
	w := NewWriterWithService(nil, "sid", "Orders", testLogger())
	assert.Equal(t, "Orders!A:U", w.dataRange())
	assert.Equal(t, "Orders!A1:U1", w.headerRange())
}
