package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-can/internal/dbc"
	"github.com/nerrad567/gray-logic-can/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-can/migrations" // Registers catalog schema
)

// setupTestRepo opens a migrated temporary database.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "catalog.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

// fixedClock returns successive instants one second apart.
func fixedClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func sampleDatabase(t *testing.T) *dbc.Database {
	t.Helper()

	b := dbc.NewBuilder()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(b.AddCustomProperty(dbc.ObjectTypeSignal, dbc.CustomPropertyDefinition{Name: "GenSigStartValue", DataType: dbc.DataTypeFloat}))
	must(b.AddCustomProperty(dbc.ObjectTypeMessage, dbc.CustomPropertyDefinition{Name: "GenMsgSendType", DataType: dbc.DataTypeEnum}))
	must(b.AddCustomPropertyDefaultValue("GenMsgSendType", "Cyclic,Event"))

	b.AddNode(dbc.Node{Name: "ECU", Comment: "engine"})
	b.AddNode(dbc.Node{Name: "Dash"})
	b.AddMessage(dbc.Message{ID: 0x123, IsExtID: true, Name: "EngineData", Transmitter: "ECU", DLC: 8})
	b.AddSignal(dbc.Signal{Name: "Mux", Length: 2, Multiplexing: "M", Factor: 1})
	b.AddSignal(dbc.Signal{
		Name: "RPM", StartBit: 8, Length: 16, ByteOrder: dbc.ByteOrderIntel,
		ValueType: dbc.Unsigned, Factor: 0.25, Offset: -10, Maximum: 8000,
		Unit: "rpm", Receivers: []string{"Dash"}, Multiplexing: "m1",
	})
	b.AddMessageCycleTime(0x123, 100)
	b.AddSignalInitialValue(0x123, "RPM", 40)
	b.LinkTableValuesToSignal(0x123, "Mux", map[int]string{0: "idle", 1: "run"}, `0 "idle" 1 "run"`)
	must(b.AddSignalCustomProperty("GenSigStartValue", 0x123, "RPM", "2.5"))

	b.AddMessage(dbc.Message{ID: 0x10, Name: "Lights", DLC: 1})
	b.AddSignal(dbc.Signal{Name: "Head", StartBit: 7, Length: 1, ByteOrder: dbc.ByteOrderMotorola, Factor: 1})

	return b.Build()
}

func TestSaveAndLoadDatabase(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	want := sampleDatabase(t)

	snap, err := repo.Save(ctx, "powertrain", want)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := uuid.Parse(snap.ID); err != nil {
		t.Errorf("snapshot id %q is not a UUID: %v", snap.ID, err)
	}
	if snap.NodeCount != 2 || snap.MessageCount != 2 || snap.SignalCount != 3 {
		t.Errorf("counts = %d/%d/%d, want 2/2/3", snap.NodeCount, snap.MessageCount, snap.SignalCount)
	}

	got, err := repo.LoadDatabase(ctx, snap.ID)
	if err != nil {
		t.Fatalf("LoadDatabase() error = %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("LoadDatabase() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveNonFiniteFloatProperty(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	b := dbc.NewBuilder()
	if err := b.AddCustomProperty(dbc.ObjectTypeMessage, dbc.CustomPropertyDefinition{Name: "GenMsgLimit", DataType: dbc.DataTypeFloat}); err != nil {
		t.Fatal(err)
	}
	if err := b.AddCustomPropertyDefaultValue("GenMsgLimit", "Inf"); err != nil {
		t.Fatal(err)
	}
	b.AddMessage(dbc.Message{ID: 1, Name: "Limits", DLC: 8})
	b.AddMessage(dbc.Message{ID: 2, Name: "Floor", DLC: 8})
	if err := b.AddMessageCustomProperty("GenMsgLimit", 2, "-Inf"); err != nil {
		t.Fatal(err)
	}
	want := b.Build()

	snap, err := repo.Save(ctx, "limits", want)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := repo.LoadDatabase(ctx, snap.ID)
	if err != nil {
		t.Fatalf("LoadDatabase() error = %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("LoadDatabase() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveInvalid(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Save(ctx, "", &dbc.Database{}); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("Save(empty name) error = %v, want ErrInvalidSnapshot", err)
	}
	if _, err := repo.Save(ctx, "x", nil); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("Save(nil db) error = %v, want ErrInvalidSnapshot", err)
	}
}

func TestSaveEmptyDatabase(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	snap, err := repo.Save(ctx, "empty", dbc.NewBuilder().Build())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := repo.LoadDatabase(ctx, snap.ID)
	if err != nil {
		t.Fatalf("LoadDatabase() error = %v", err)
	}
	if len(got.Nodes) != 0 || len(got.Messages) != 0 {
		t.Errorf("LoadDatabase() = %+v, want empty", got)
	}
}

func TestLatestAndList(t *testing.T) {
	repo := setupTestRepo(t)
	repo.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := repo.Save(ctx, "powertrain", sampleDatabase(t))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	other, err := repo.Save(ctx, "body", dbc.NewBuilder().Build())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := repo.Save(ctx, "powertrain", dbc.NewBuilder().Build())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	latest, err := repo.Latest(ctx, "powertrain")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("Latest() = %s, want %s", latest.ID, second.ID)
	}
	if !latest.CreatedAt.Equal(second.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", latest.CreatedAt, second.CreatedAt)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids []string
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	if diff := cmp.Diff([]string{second.ID, other.ID, first.ID}, ids); diff != "" {
		t.Errorf("List() order mismatch (-want +got):\n%s", diff)
	}

	if _, err := repo.Latest(ctx, "chassis"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Latest(chassis) error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestGetNotFound(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Get(ctx, uuid.NewString()); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Get() error = %v, want ErrSnapshotNotFound", err)
	}
	if _, err := repo.LoadDatabase(ctx, "missing"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LoadDatabase() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	snap, err := repo.Save(ctx, "powertrain", sampleDatabase(t))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Delete(ctx, snap.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, snap.ID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("second Delete() error = %v, want ErrSnapshotNotFound", err)
	}

	for _, table := range []string{"nodes", "messages", "signals"} {
		var n int
		if err := repo.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Fatalf("count %s error = %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s rows after delete = %d, want 0", table, n)
		}
	}
}
