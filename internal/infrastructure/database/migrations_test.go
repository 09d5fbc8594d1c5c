package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func useMigrations(t *testing.T, files fstest.MapFS) {
	t.Helper()
	origFS, origDir := Migrations, MigrationsDir
	t.Cleanup(func() {
		Migrations, MigrationsDir = origFS, origDir
	})
	Migrations, MigrationsDir = files, "."
}

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_frames.up.sql":   {Data: []byte("CREATE TABLE frames (id INTEGER PRIMARY KEY);")},
		"20260101_000000_frames.down.sql": {Data: []byte("DROP TABLE frames;")},
		"20260102_000000_buses.up.sql":    {Data: []byte("CREATE TABLE buses (name TEXT PRIMARY KEY);")},
		"20260102_000000_buses.down.sql":  {Data: []byte("DROP TABLE buses;")},
		"README.md":                       {Data: []byte("not a migration")},
		"20260103_000000_orphan.down.sql": {Data: []byte("DROP TABLE nothing;")},
	}
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrations())
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	for _, table := range []string{"frames", "buses"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied = %d, pending = %d, want 2, 0", len(applied), len(pending))
	}

	// A second run is a no-op.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	useMigrations(t, testMigrations())
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='buses'").Scan(&n); err != nil {
		t.Fatalf("query error = %v", err)
	}
	if n != 0 {
		t.Error("buses table survived MigrateDown")
	}

	_, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "buses" {
		t.Errorf("pending = %+v, want [buses]", pending)
	}
}

func TestMigrateFailureKeepsEarlier(t *testing.T) {
	files := testMigrations()
	files["20260102_000000_buses.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE broken (")}
	useMigrations(t, files)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() with broken SQL succeeded")
	}
	applied, _, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || applied[0].Version != "20260101_000000" {
		t.Errorf("applied = %+v, want only 20260101_000000", applied)
	}
}

func TestMigrateWithoutFiles(t *testing.T) {
	useMigrations(t, nil)
	Migrations = nil
	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() with no migrations error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260301_120000_dbc_catalog.up.sql", "20260301_120000", "dbc_catalog", true, true},
		{"20260301_120000_dbc_catalog.down.sql", "20260301_120000", "dbc_catalog", false, true},
		{"20260301_120000.up.sql", "20260301_120000", "20260301_120000", true, true},
		{"20260301.up.sql", "", "", false, false},
		{"20260301_120000_x.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}

	for _, tt := range tests {
		version, name, up, ok := parseMigrationFilename(tt.filename)
		if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp || ok != tt.wantOK {
			t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v, %v), want (%q, %q, %v, %v)",
				tt.filename, version, name, up, ok, tt.wantVersion, tt.wantName, tt.wantUp, tt.wantOK)
		}
	}
}
