package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/tradertime/internal/alarm"
	"github.com/julianstephens/tradertime/internal/app"
	"github.com/julianstephens/tradertime/internal/delivery"
	"github.com/julianstephens/tradertime/internal/models"
)

func newTestClient(t *testing.T, s *Server) *Client {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return NewClient(strings.TrimPrefix(ts.URL, "http://"))
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	fa := &fakeAlarms{granted: true, ringing: &alarm.Ringing{
		Alarm:     alarm.Alarm{ID: models.UserID("cpi"), Label: "CPI", At: sundayEvening},
		StartedAt: sundayEvening,
	}}
	s, _, coord := newTestServer(t, WithAlarms(fa))
	coord.occ = []app.Occurrence{{
		Alert: models.Alert{ID: models.FixedID(3), Label: "London Open", Fixed: true, Enabled: true},
		At:    sundayEvening.Add(time.Hour),
		Path:  delivery.PathExactAlarm,
	}}
	c := newTestClient(t, s)

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Running || st.Market != "closed-sunday-pre-open" {
		t.Errorf("Status() = %+v", st)
	}

	lr, err := c.SetRunning(ctx, true)
	if err != nil || !lr.Running || !lr.Changed {
		t.Fatalf("SetRunning(true) = %+v, %v", lr, err)
	}

	perm, err := c.Permission(ctx)
	if err != nil || !perm.Available || !perm.Granted {
		t.Errorf("Permission() = %+v, %v", perm, err)
	}

	cur, err := c.Current(ctx)
	if err != nil || !cur.Ringing || cur.Alarm == nil || cur.Alarm.ID != models.UserID("cpi") {
		t.Fatalf("Current() = %+v, %v", cur, err)
	}

	snoozed, err := c.Snooze(ctx)
	if err != nil || !snoozed.Snoozed {
		t.Fatalf("Snooze() = %+v, %v", snoozed, err)
	}
	if _, err := c.Snooze(ctx); !errors.Is(err, ErrNotRinging) {
		t.Errorf("second Snooze() error = %v, want ErrNotRinging", err)
	}

	stopped, err := c.StopAlarm(ctx)
	if err != nil || stopped {
		t.Errorf("StopAlarm() = %v, %v", stopped, err)
	}

	occ, err := c.Next(ctx, 5)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if len(occ) != 1 || occ[0].Path != delivery.PathExactAlarm || occ[0].Alert.ID != models.FixedID(3) {
		t.Errorf("Next() = %+v", occ)
	}

	sum, err := c.Resume(ctx)
	if err != nil || sum.Notifications.Armed != 3 {
		t.Errorf("Resume() = %+v, %v", sum, err)
	}
}

func TestClientWithoutAlarms(t *testing.T) {
	s, _, _ := newTestServer(t)
	c := newTestClient(t, s)

	cur, err := c.Current(context.Background())
	if err != nil || cur.Ringing {
		t.Errorf("Current() = %+v, %v", cur, err)
	}

	_, err = c.StopAlarm(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StopAlarm() error = %v, want 503 APIError", err)
	}
}

func TestClientUnreachable(t *testing.T) {
	c := NewClient("127.0.0.1:1")
	if _, err := c.Status(context.Background()); err == nil {
		t.Error("expected error for unreachable daemon")
	}
}
