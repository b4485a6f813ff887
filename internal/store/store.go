// Package store provides read-only, concurrent-safe access to the host
// tool's SQLite session database. Every connection is scoped to a single
// query burst and released; the database is never written to, and no
// explicit transaction is ever begun, so the host tool's own writes (WAL
// mode) are never blocked for longer than the per-query timeout.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// queryTimeout bounds every individual query. No retries: the next
// snapshot tick retries naturally.
const queryTimeout = 2 * time.Second

// TodoStatus and TodoPriority are the closed vocabularies from
// spec.md's TodoItem.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoCancelled  TodoStatus = "cancelled"
)

type TodoPriority string

const (
	PriorityHigh   TodoPriority = "high"
	PriorityMedium TodoPriority = "medium"
	PriorityLow    TodoPriority = "low"
)

// TodoItem is one entry in a session's todo list.
type TodoItem struct {
	Content  string
	Status   TodoStatus
	Priority TodoPriority
}

// SessionFact is everything known about one session from the host
// database, per spec.md §3.
type SessionFact struct {
	SessionID            string
	Title                string
	Directory            string
	ProjectID            string
	Model                string
	Agent                string
	MessageCount         int
	TotalContextTokens   int64
	TotalOutputTokens    int64
	TotalCacheReadTokens int64
	TotalCost            float64
	LastFinish           string // "", "tool-calls", "stop", "length", or other
	LastMessageRole      string // "user", "assistant", or other
	LastMessageTimeMS    int64
	TimeCreatedMS        int64
	TimeUpdatedMS        int64
	RoundStartTimeMS     int64
	LastOutputLine       string
	Todos                []TodoItem
	Version              string
	Interactive          bool
}

// Aggregate is a count/sum rollup used for the today/global panels.
// Cost is recorded but, per spec.md §9, is known to be unreliable and
// must never be presented as authoritative.
type Aggregate struct {
	SessionCount int
	MessageCount int
	TotalCost    float64
}

// CandidateSession is one row from find_candidate_sessions: a session in
// the target cwd ranked by how much it has been used since a process
// started.
type CandidateSession struct {
	ID       string
	MsgsSince int
}

// Reader opens the host database read-only and serves the query surface
// from spec.md §4.4. Every exported method opens a short-lived
// *sql.DB-scoped connection, runs its query with a 2s budget, and
// returns an empty result (never an error) on any failure — absent
// database, lock contention, schema mismatch, or malformed JSON all
// degrade the same way, per spec.md §7.
type Reader struct {
	dbPath string
}

// New returns a Reader over the SQLite database at dbPath, opened with
// read-only + non-immutable URI semantics that coexist with a concurrent
// WAL writer.
func New(dbPath string) *Reader {
	return &Reader{dbPath: dbPath}
}

// DefaultPath is $HOME/.local/share/opencode/opencode.db, per spec.md §6.
func DefaultPath(home string) string {
	return home + "/.local/share/opencode/opencode.db"
}

func (r *Reader) open() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL&immutable=0&_busy_timeout=2000", r.dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Exists reports whether the database file is reachable at all. Used
// only at startup: spec.md §6 treats an absent database as a fatal
// precondition (exit code 1), the one case where this package's
// "always degrade, never fail" discipline does not apply.
func (r *Reader) Exists() bool {
	db, err := r.open()
	if err != nil {
		return false
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return db.PingContext(ctx) == nil
}

type tokenFields struct {
	Input     int64 `json:"input"`
	CacheRead int64 `json:"cache.read"`
	Output    int64 `json:"output"`
}

type messageData struct {
	Role    string          `json:"role"`
	Finish  string          `json:"finish"`
	ModelID string          `json:"modelID"`
	Agent   string          `json:"agent"`
	Tokens  json.RawMessage `json:"tokens"`
	Cost    float64         `json:"cost"`
}

func parseTokens(raw json.RawMessage) tokenFields {
	var t struct {
		Input int64 `json:"input"`
		Cache struct {
			Read int64 `json:"read"`
		} `json:"cache"`
		Output int64 `json:"output"`
	}
	if len(raw) == 0 {
		return tokenFields{}
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return tokenFields{}
	}
	return tokenFields{Input: t.Input, CacheRead: t.Cache.Read, Output: t.Output}
}

// SessionInfo joins the session table with its messages and returns the
// aggregated SessionFact, per spec.md §4.4 item 1.
func (r *Reader) SessionInfo(sessionID string) SessionFact {
	db, err := r.open()
	if err != nil {
		log.Printf("[store] open failed: %v", err)
		return SessionFact{}
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	fact := SessionFact{SessionID: sessionID}

	if !r.loadSessionRow(ctx, db, &fact) {
		return SessionFact{}
	}
	r.loadAssistantAggregates(ctx, db, &fact)
	r.loadLastMessage(ctx, db, &fact)
	r.loadRoundStart(ctx, db, &fact)
	r.loadLastOutputLine(ctx, db, &fact)
	fact.Todos = r.loadTodos(ctx, db, sessionID)

	return fact
}

func (r *Reader) loadSessionRow(ctx context.Context, db *sql.DB, fact *SessionFact) bool {
	row := db.QueryRowContext(ctx, `
		SELECT title, directory, project_id, version, time_created, time_updated, permission
		FROM session WHERE id = ?`, fact.SessionID)

	var title, directory, projectID, version sql.NullString
	var timeCreated, timeUpdated sql.NullInt64
	var permission sql.NullString
	if err := row.Scan(&title, &directory, &projectID, &version, &timeCreated, &timeUpdated, &permission); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("[store] session_info query failed: %v", err)
		}
		return false
	}

	fact.Title = title.String
	fact.Directory = directory.String
	fact.ProjectID = projectID.String
	fact.Version = version.String
	fact.TimeCreatedMS = timeCreated.Int64
	fact.TimeUpdatedMS = timeUpdated.Int64
	fact.Interactive = !permission.Valid || permission.String == "" || permission.String == "null"
	return true
}

func (r *Reader) loadAssistantAggregates(ctx context.Context, db *sql.DB, fact *SessionFact) {
	rows, err := db.QueryContext(ctx, `
		SELECT data FROM message WHERE session_id = ? AND json_extract(data, '$.role') = 'assistant'`, fact.SessionID)
	if err != nil {
		log.Printf("[store] assistant aggregate query failed: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			continue
		}
		var md struct {
			Tokens json.RawMessage `json:"tokens"`
			Cost   float64         `json:"cost"`
		}
		if json.Unmarshal(raw, &md) != nil {
			continue
		}
		tok := parseTokens(md.Tokens)
		fact.TotalContextTokens += tok.Input + tok.CacheRead
		fact.TotalOutputTokens += tok.Output
		fact.TotalCacheReadTokens += tok.CacheRead
		fact.TotalCost += md.Cost
	}

	fact.MessageCount = r.countAllMessages(ctx, db, fact.SessionID)
}

func (r *Reader) countAllMessages(ctx context.Context, db *sql.DB, sessionID string) int {
	row := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM message WHERE session_id = ?`, sessionID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0
	}
	return n
}

func (r *Reader) loadLastMessage(ctx context.Context, db *sql.DB, fact *SessionFact) {
	row := db.QueryRowContext(ctx, `
		SELECT data, time_created FROM message
		WHERE session_id = ? ORDER BY time_created DESC LIMIT 1`, fact.SessionID)

	var raw []byte
	var timeCreated sql.NullInt64
	if err := row.Scan(&raw, &timeCreated); err != nil {
		return
	}
	var md messageData
	if json.Unmarshal(raw, &md) != nil {
		return
	}
	fact.LastMessageRole = md.Role
	fact.LastFinish = md.Finish
	fact.LastMessageTimeMS = timeCreated.Int64
	if fact.Model == "" {
		fact.Model = md.ModelID
	}
	if fact.Agent == "" {
		fact.Agent = md.Agent
	}
}

func (r *Reader) loadRoundStart(ctx context.Context, db *sql.DB, fact *SessionFact) {
	row := db.QueryRowContext(ctx, `
		SELECT time_created FROM message
		WHERE session_id = ? AND json_extract(data, '$.role') = 'user'
		ORDER BY time_created DESC LIMIT 1`, fact.SessionID)
	var timeCreated sql.NullInt64
	if err := row.Scan(&timeCreated); err != nil {
		return
	}
	fact.RoundStartTimeMS = timeCreated.Int64
}

func (r *Reader) loadLastOutputLine(ctx context.Context, db *sql.DB, fact *SessionFact) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.data FROM part p
		JOIN message m ON m.id = p.message_id
		WHERE m.session_id = ? AND json_extract(m.data, '$.role') = 'assistant'
		  AND json_extract(p.data, '$.type') = 'text'
		ORDER BY m.time_created DESC, p.id DESC LIMIT 1`, fact.SessionID)
	if err != nil {
		log.Printf("[store] last_output_line query failed: %v", err)
		return
	}
	defer rows.Close()

	if !rows.Next() {
		return
	}
	var raw []byte
	if err := rows.Scan(&raw); err != nil {
		return
	}
	var part struct {
		Text string `json:"text"`
	}
	if json.Unmarshal(raw, &part) != nil {
		return
	}
	fact.LastOutputLine = lastNonEmptyLine(part.Text)
}

// lastNonEmptyLine returns the last non-empty, trimmed line of text,
// guaranteeing no embedded newline per spec.md invariant 5.
func lastNonEmptyLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (r *Reader) loadTodos(ctx context.Context, db *sql.DB, sessionID string) []TodoItem {
	rows, err := db.QueryContext(ctx, `
		SELECT content, status, priority FROM todo
		WHERE session_id = ? ORDER BY position ASC`, sessionID)
	if err != nil {
		log.Printf("[store] todos query failed: %v", err)
		return nil
	}
	defer rows.Close()

	var todos []TodoItem
	for rows.Next() {
		var content, status, priority string
		if err := rows.Scan(&content, &status, &priority); err != nil {
			continue
		}
		todos = append(todos, TodoItem{
			Content:  content,
			Status:   TodoStatus(status),
			Priority: TodoPriority(priority),
		})
	}
	return todos
}

// FindCandidateSessions implements tier 2 of the correlator's ladder:
// sessions in cwd with at least one message created at or after
// startTimeMS, ranked by message count since that time, descending,
// limited to 5.
func (r *Reader) FindCandidateSessions(cwd string, startTimeMS int64) []CandidateSession {
	db, err := r.open()
	if err != nil {
		return nil
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT s.id, COUNT(m.id) AS msgs_since
		FROM session s
		JOIN message m ON m.session_id = s.id AND m.time_created >= ?
		WHERE s.directory = ?
		GROUP BY s.id
		ORDER BY msgs_since DESC
		LIMIT 5`, startTimeMS, cwd)
	if err != nil {
		log.Printf("[store] find_candidate_sessions query failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []CandidateSession
	for rows.Next() {
		var c CandidateSession
		if err := rows.Scan(&c.ID, &c.MsgsSince); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FindRecentSessions implements tier 3 of the correlator's ladder:
// sessions in cwd ordered by time_updated descending, limited to 5.
func (r *Reader) FindRecentSessions(cwd string) []string {
	db, err := r.open()
	if err != nil {
		return nil
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id FROM session WHERE directory = ? ORDER BY time_updated DESC LIMIT 5`, cwd)
	if err != nil {
		log.Printf("[store] find_recent_sessions query failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// TodayAggregate computes counts/sums scoped to the current UTC
// calendar day.
func (r *Reader) TodayAggregate() Aggregate {
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour).UnixMilli()
	return r.aggregate("WHERE m.time_created >= ?", startOfDay)
}

// GlobalAggregate computes counts/sums across the entire database.
func (r *Reader) GlobalAggregate() Aggregate {
	return r.aggregate("", nil)
}

func (r *Reader) aggregate(whereClause string, arg any) Aggregate {
	db, err := r.open()
	if err != nil {
		return Aggregate{}
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := `
		SELECT COUNT(DISTINCT s.id), COUNT(m.id), COALESCE(SUM(json_extract(m.data, '$.cost')), 0)
		FROM session s LEFT JOIN message m ON m.session_id = s.id ` + whereClause

	var row *sql.Row
	if arg != nil {
		row = db.QueryRowContext(ctx, query, arg)
	} else {
		row = db.QueryRowContext(ctx, query)
	}

	var agg Aggregate
	if err := row.Scan(&agg.SessionCount, &agg.MessageCount, &agg.TotalCost); err != nil {
		log.Printf("[store] aggregate query failed: %v", err)
		return Aggregate{}
	}
	return agg
}

// RecentMessage is one message in a session's display history, with its
// joined text-part preview.
type RecentMessage struct {
	Role      string
	TimeMS    int64
	Preview   string
	Finish    string
}

// RecentMessages returns up to limit messages for sessionID, oldest
// first, each carrying as its preview the text of all its text parts,
// in part order, joined by newlines.
func (r *Reader) RecentMessages(sessionID string, limit int) []RecentMessage {
	db, err := r.open()
	if err != nil {
		return nil
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT m.data, m.time_created,
		       (SELECT group_concat(t, char(10)) FROM (
		            SELECT json_extract(p.data, '$.text') AS t FROM part p
		            WHERE p.message_id = m.id AND json_extract(p.data, '$.type') = 'text'
		            ORDER BY p.id ASC))
		FROM message m
		WHERE m.session_id = ?
		ORDER BY m.time_created DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		log.Printf("[store] recent_messages query failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []RecentMessage
	for rows.Next() {
		var raw []byte
		var timeCreated int64
		var partRaw sql.NullString
		if err := rows.Scan(&raw, &timeCreated, &partRaw); err != nil {
			continue
		}
		var md messageData
		if json.Unmarshal(raw, &md) != nil {
			continue
		}
		preview := ""
		if partRaw.Valid {
			preview = partRaw.String
		}
		out = append(out, RecentMessage{
			Role:    md.Role,
			TimeMS:  timeCreated,
			Preview: preview,
			Finish:  md.Finish,
		})
	}

	// Reverse into oldest-first display order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
