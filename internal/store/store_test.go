package store

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

const schema = `
CREATE TABLE session (
	id TEXT PRIMARY KEY,
	title TEXT,
	directory TEXT,
	project_id TEXT,
	version TEXT,
	time_created INTEGER,
	time_updated INTEGER,
	permission TEXT
);
CREATE TABLE message (
	id TEXT PRIMARY KEY,
	session_id TEXT,
	time_created INTEGER,
	data TEXT
);
CREATE TABLE part (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id TEXT,
	data TEXT
);
CREATE TABLE todo (
	session_id TEXT,
	position INTEGER,
	content TEXT,
	status TEXT,
	priority TEXT
);
`

func newTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opencode.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return path
}

func seedSession(t *testing.T, path string, id, directory string, timeCreated, timeUpdated int64) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	_, err = db.Exec(`INSERT INTO session (id, title, directory, project_id, version, time_created, time_updated, permission)
		VALUES (?, ?, ?, '', '1.0', ?, ?, NULL)`, id, "title-"+id, directory, timeCreated, timeUpdated)
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
}

func seedMessage(t *testing.T, path, id, sessionID string, timeCreated int64, role, finish string, inputTok, cacheRead, outputTok int64, cost float64) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	data := `{"role":"` + role + `","finish":"` + finish + `","modelID":"m","agent":"a","tokens":{"input":` +
		itoa(inputTok) + `,"cache":{"read":` + itoa(cacheRead) + `},"output":` + itoa(outputTok) + `},"cost":` + ftoa(cost) + `}`
	_, err = db.Exec(`INSERT INTO message (id, session_id, time_created, data) VALUES (?, ?, ?, ?)`, id, sessionID, timeCreated, data)
	if err != nil {
		t.Fatalf("insert message: %v", err)
	}
}

func seedTextPart(t *testing.T, path, messageID, text string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	data := `{"type":"text","text":` + quote(text) + `}`
	_, err = db.Exec(`INSERT INTO part (message_id, data) VALUES (?, ?)`, messageID, data)
	if err != nil {
		t.Fatalf("insert part: %v", err)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func TestSessionInfo_AggregatesAssistantTokens(t *testing.T) {
	path := newTestDB(t)
	seedSession(t, path, "ses_1", "/home/u/p", 1000, 2000)
	seedMessage(t, path, "m1", "ses_1", 1000, "user", "", 0, 0, 0, 0)
	seedMessage(t, path, "m2", "ses_1", 1100, "assistant", "stop", 100, 20, 50, 0)
	seedMessage(t, path, "m3", "ses_1", 1200, "assistant", "stop", 10, 0, 5, 0)
	seedTextPart(t, path, "m3", "line one\n\nlast line  \n")

	r := New(path)
	fact := r.SessionInfo("ses_1")

	if fact.SessionID != "ses_1" {
		t.Fatalf("expected session loaded, got %+v", fact)
	}
	if fact.TotalContextTokens != 130 {
		t.Errorf("TotalContextTokens = %d, want 130", fact.TotalContextTokens)
	}
	if fact.TotalOutputTokens != 55 {
		t.Errorf("TotalOutputTokens = %d, want 55", fact.TotalOutputTokens)
	}
	if fact.MessageCount != 3 {
		t.Errorf("MessageCount = %d, want 3", fact.MessageCount)
	}
	if fact.LastOutputLine != "last line" {
		t.Errorf("LastOutputLine = %q, want %q", fact.LastOutputLine, "last line")
	}
	if !fact.Interactive {
		t.Errorf("expected Interactive=true when permission is absent")
	}
}

func TestSessionInfo_TokenMonotonicity(t *testing.T) {
	path := newTestDB(t)
	seedSession(t, path, "ses_1", "/home/u/p", 1000, 2000)
	seedMessage(t, path, "m1", "ses_1", 1100, "assistant", "stop", 100, 20, 50, 0)

	r := New(path)
	a := r.SessionInfo("ses_1")
	b := r.SessionInfo("ses_1")
	if a.TotalContextTokens != b.TotalContextTokens || a.TotalOutputTokens != b.TotalOutputTokens {
		t.Errorf("expected identical token sums across repeated reads: %+v vs %+v", a, b)
	}
}

func TestSessionInfo_AbsentSessionIsEmpty(t *testing.T) {
	path := newTestDB(t)
	r := New(path)
	fact := r.SessionInfo("ses_missing")
	if fact.SessionID != "" {
		t.Errorf("expected empty SessionFact for missing session, got %+v", fact)
	}
}

func TestFindCandidateSessions_RankedByActivitySince(t *testing.T) {
	path := newTestDB(t)
	seedSession(t, path, "ses_a", "/home/u", 500, 13000)
	seedSession(t, path, "ses_b", "/home/u", 700, 11500)
	for i := 0; i < 40; i++ {
		seedMessage(t, path, "a"+strconv.Itoa(i), "ses_a", 1000+int64(i), "assistant", "stop", 1, 0, 1, 0)
	}
	for i := 0; i < 5; i++ {
		seedMessage(t, path, "b"+strconv.Itoa(i), "ses_b", 1200+int64(i), "assistant", "stop", 1, 0, 1, 0)
	}

	r := New(path)
	candidates := r.FindCandidateSessions("/home/u", 1000)
	if len(candidates) == 0 {
		t.Fatal("expected candidates")
	}
	if candidates[0].ID != "ses_a" {
		t.Errorf("expected ses_a (higher activity) to rank first, got %q", candidates[0].ID)
	}
}

func TestFindRecentSessions_OrderedByTimeUpdated(t *testing.T) {
	path := newTestDB(t)
	seedSession(t, path, "ses_old", "/home/u", 100, 500)
	seedSession(t, path, "ses_new", "/home/u", 100, 900)

	r := New(path)
	ids := r.FindRecentSessions("/home/u")
	if len(ids) != 2 || ids[0] != "ses_new" {
		t.Errorf("expected ses_new first, got %+v", ids)
	}
}

func TestReader_AbsentDatabaseDegradesEmpty(t *testing.T) {
	r := New("/nonexistent/path/opencode.db")
	if fact := r.SessionInfo("ses_1"); fact.SessionID != "" {
		t.Errorf("expected empty fact for absent db")
	}
	if candidates := r.FindCandidateSessions("/x", 0); candidates != nil {
		t.Errorf("expected nil candidates for absent db")
	}
	if agg := r.GlobalAggregate(); agg != (Aggregate{}) {
		t.Errorf("expected zero aggregate for absent db")
	}
}

// TestReader_ReadsNotBlockedByConcurrentWriterTransaction pins the
// read-only discipline property from spec.md §8: a writer holding an
// open, uncommitted WAL transaction on the same database file must
// never hold up a Reader call beyond its own query timeout budget.
func TestReader_ReadsNotBlockedByConcurrentWriterTransaction(t *testing.T) {
	path := newTestDB(t)
	seedSession(t, path, "ses_1", "/home/u", 100, 200)

	writer, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=WAL")
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer writer.Close()

	tx, err := writer.Begin()
	if err != nil {
		t.Fatalf("begin writer tx: %v", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`UPDATE session SET title = ? WHERE id = ?`, "in-flight write", "ses_1"); err != nil {
		t.Fatalf("writer update: %v", err)
	}
	// tx is intentionally left open (uncommitted) for the duration of
	// the read below, simulating the host tool mid-write.

	r := New(path)
	done := make(chan SessionFact, 1)
	go func() {
		done <- r.SessionInfo("ses_1")
	}()

	select {
	case fact := <-done:
		if fact.SessionID != "ses_1" {
			t.Errorf("expected to still read the pre-write row, got %+v", fact)
		}
	case <-time.After(queryTimeout + 1*time.Second):
		t.Fatal("Reader.SessionInfo blocked past its query timeout budget while a writer held an open transaction")
	}
}
