package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/session/domain"
)

// recordingConn is a stub database driver that captures the bind values of
// the last Exec so tests can assert what the repository actually sends.
type recordingConn struct {
	lastExecArgs []driver.Value
}

type recordingDriver struct {
	conn *recordingConn
}

func (d *recordingDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *recordingConn) Prepare(string) (driver.Stmt, error) { return &recordingStmt{conn: c}, nil }
func (c *recordingConn) Close() error                        { return nil }
func (c *recordingConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

type recordingStmt struct {
	conn *recordingConn
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.conn.lastExecArgs = args
	return driver.RowsAffected(1), nil
}

func (s *recordingStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, driver.ErrSkip
}

func newRecordingRepo(t *testing.T) (*PostgresRepository, *recordingConn) {
	t.Helper()
	conn := &recordingConn{}
	name := "session-recorder-" + t.Name()
	sql.Register(name, &recordingDriver{conn: conn})
	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), conn
}

// A fresh session has no deactivation reason, and the column is NOT NULL:
// Create must bind the empty string, never NULL.
func TestCreate_EmptyReasonBindsAsString(t *testing.T) {
	repo, conn := newRecordingRepo(t)
	now := time.Now().UTC()

	err := repo.Create(context.Background(), &domain.Session{
		ID:                "s1",
		UserID:            "u1",
		CurrentRefreshJTI: "jti-1",
		RefreshTokenHash:  "hash-1",
		CreatedAt:         now,
		LastActivityAt:    now,
		ExpiresAt:         now.Add(24 * time.Hour),
		IsActive:          true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(conn.lastExecArgs) != 13 {
		t.Fatalf("bind args = %d, want 13", len(conn.lastExecArgs))
	}
	reason := conn.lastExecArgs[12]
	if reason == nil {
		t.Fatal("deactivated_reason bound as NULL; the column is NOT NULL")
	}
	if got, ok := reason.(string); !ok || got != "" {
		t.Errorf("deactivated_reason = %#v, want empty string", reason)
	}
	// last_rotation_at is nullable and unset on a new session.
	if conn.lastExecArgs[9] != nil {
		t.Errorf("last_rotation_at = %#v, want NULL for a new session", conn.lastExecArgs[9])
	}
}

func TestCreate_DeactivatedReasonCarried(t *testing.T) {
	repo, conn := newRecordingRepo(t)
	now := time.Now().UTC()

	err := repo.Create(context.Background(), &domain.Session{
		ID:                "s2",
		UserID:            "u1",
		CurrentRefreshJTI: "jti-2",
		RefreshTokenHash:  "hash-2",
		CreatedAt:         now,
		LastActivityAt:    now,
		ExpiresAt:         now.Add(24 * time.Hour),
		DeactivatedReason: domain.ReasonLogout,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := conn.lastExecArgs[12]; got != "logout" {
		t.Errorf("deactivated_reason = %#v, want %q", got, "logout")
	}
}
