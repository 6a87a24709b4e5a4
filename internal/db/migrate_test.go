package db

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

type fakeMigrator struct {
	upErr  error
	closed bool
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Close() (error, error) {
	f.closed = true
	return nil, nil
}

func withFakeMigrator(t *testing.T, m *fakeMigrator, initErr error) {
	t.Helper()
	orig := newMigrator
	newMigrator = func(string) (migrator, error) {
		if initErr != nil {
			return nil, initErr
		}
		return m, nil
	}
	t.Cleanup(func() { newMigrator = orig })
}

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost/chat":   "pgx5://u:p@localhost/chat",
		"postgresql://u:p@localhost/chat": "pgx5://u:p@localhost/chat",
		"pgx5://u:p@localhost/chat":       "pgx5://u:p@localhost/chat",
	}
	for in, want := range cases {
		if got := MigrateURL(in); got != want {
			t.Fatalf("MigrateURL(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestMigrate_NoChangeIsSuccess(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	withFakeMigrator(t, m, nil)

	if err := Migrate("postgres://localhost/chat"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !m.closed {
		t.Fatalf("expected migrator to be closed")
	}
}

func TestMigrate_UpFailure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("dirty database")}
	withFakeMigrator(t, m, nil)

	err := Migrate("postgres://localhost/chat")
	if err == nil || !errors.Is(err, m.upErr) {
		t.Fatalf("expected wrapped up error, got %v", err)
	}
}

func TestMigrate_InitFailure(t *testing.T) {
	initErr := errors.New("unknown driver")
	withFakeMigrator(t, nil, initErr)

	if err := Migrate("postgres://localhost/chat"); !errors.Is(err, initErr) {
		t.Fatalf("expected init error, got %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected up and down migrations, got %d files", len(entries))
	}
}
