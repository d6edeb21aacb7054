package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/tradertime/internal/clock"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/storage/sqlite"
)

var taken = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tradertime.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return dbPath
}

func countAlerts(t *testing.T, dbPath string) int {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer store.Close()
	alerts, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return len(alerts)
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath, WithClock(clock.NewFake(taken)))

	path, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if filepath.Dir(path) != mgr.Dir() {
		t.Errorf("snapshot written to %s, want %s", filepath.Dir(path), mgr.Dir())
	}
	if !strings.HasSuffix(path, "tradertime-20240103-100000.db") {
		t.Errorf("unexpected snapshot name %s", path)
	}
	if got, want := countAlerts(t, path), len(models.FixedAlerts()); got != want {
		t.Errorf("snapshot holds %d alerts, want %d", got, want)
	}
}

func TestCreateMissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(); err == nil {
		t.Error("expected error for a missing database")
	}
}

func TestCreateSameSecond(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath, WithClock(clock.NewFake(taken)))

	first, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first == second {
		t.Fatal("snapshots in the same second share a name")
	}

	snaps, err := mgr.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("List() returned %d snapshots, want 2", len(snaps))
	}
	if snaps[0].Path != second {
		t.Errorf("newest snapshot = %s, want %s", snaps[0].Path, second)
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupTestDB(t)
	clk := clock.NewFake(taken)
	mgr := NewManager(dbPath, WithClock(clk), WithKeep(2))

	var paths []string
	for i := 0; i < 4; i++ {
		p, err := mgr.Create()
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		paths = append(paths, p)
		clk.Advance(time.Minute)
	}

	snaps, err := mgr.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("kept %d snapshots, want 2", len(snaps))
	}
	if snaps[0].Path != paths[3] || snaps[1].Path != paths[2] {
		t.Errorf("kept %s and %s, want the two newest", snaps[0].Path, snaps[1].Path)
	}
	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Error("oldest snapshot was not removed")
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	if snaps, err := mgr.List(); err != nil || len(snaps) != 0 {
		t.Fatalf("List() on missing dir = %v, %v", snaps, err)
	}

	if err := os.MkdirAll(mgr.Dir(), 0700); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"notes.txt", "tradertime-latest.db", "tradertime-20240103-100000-x.db"} {
		if err := os.WriteFile(filepath.Join(mgr.Dir(), name), nil, 0600); err != nil {
			t.Fatal(err)
		}
	}
	snaps, err := mgr.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("List() = %v, want no snapshots", snaps)
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	clk := clock.NewFake(taken)
	mgr := NewManager(dbPath, WithClock(clk))

	snapshot, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	user := models.Alert{
		ID:        models.NewUserID(),
		Label:     "NFP",
		HourUTC:   12,
		MinuteUTC: 30,
		Enabled:   true,
		Recurrence: models.Recurrence{
			Type:     models.RecurrenceWeekdays,
			Weekdays: []time.Weekday{time.Friday},
		},
	}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	store.Close()

	clk.Advance(time.Minute)
	previous, err := mgr.Restore(snapshot)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if previous == "" {
		t.Error("current database was not snapshotted before restore")
	}
	if got, want := countAlerts(t, dbPath), len(models.FixedAlerts()); got != want {
		t.Errorf("restored database holds %d alerts, want %d", got, want)
	}
	if got, want := countAlerts(t, previous), len(models.FixedAlerts())+1; got != want {
		t.Errorf("pre-restore snapshot holds %d alerts, want %d", got, want)
	}
}

func TestRestoreRejectsInvalidFile(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	bogus := filepath.Join(t.TempDir(), "bogus.db")
	if err := os.WriteFile(bogus, []byte("not a database"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Restore(bogus); err == nil {
		t.Error("expected error restoring an invalid file")
	}
	if _, err := mgr.Restore(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Error("expected error restoring a missing file")
	}
}
