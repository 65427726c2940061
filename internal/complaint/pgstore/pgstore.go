// Package pgstore provides a PostgreSQL implementation of complaint.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/grievance/internal/complaint"
)

var tracer = otel.Tracer("github.com/linnemanlabs/grievance/internal/complaint/pgstore")

//go:embed schema.sql
var schema string

// Store persists complaints, timelines and notifications in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ complaint.Store = (*Store)(nil)

// New applies the schema on pool and returns a ready Store. The caller owns
// the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const complaintColumns = `id, title, description, category, sub_category, status, priority,
	location, is_anonymous, owner_id, votes, created_at, updated_at`

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// WithTx runs fn inside a single database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx complaint.Tx) error) error {
	ctx, span := startSpan(ctx, "pgstore.WithTx", "TRANSACTION")
	defer span.End()

	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fail(span, fmt.Errorf("begin tx: %w", err))
	}
	defer pgtx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	if err := fn(&tx{tx: pgtx}); err != nil {
		return fail(span, err)
	}

	if err := pgtx.Commit(ctx); err != nil {
		return fail(span, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// GetComplaint retrieves a complaint by ID.
func (s *Store) GetComplaint(ctx context.Context, id string) (*complaint.Complaint, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetComplaint", "SELECT")
	defer span.End()

	c, err := scanComplaint(s.pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id))
	if err != nil {
		return nil, false, fail(span, err)
	}
	return c, c != nil, nil
}

// ListComplaints returns matching complaints, newest first.
func (s *Store) ListComplaints(ctx context.Context, f complaint.Filter) ([]*complaint.Complaint, error) {
	ctx, span := startSpan(ctx, "pgstore.ListComplaints", "SELECT")
	defer span.End()

	query, args := listQuery(f)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query complaints: %w", err))
	}
	defer rows.Close()

	out := make([]*complaint.Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fail(span, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate complaints: %w", err))
	}
	return out, nil
}

func listQuery(f complaint.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", string(f.Category))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + complaintColumns + ` FROM complaints`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

// ListTimeline returns a complaint's events, oldest first.
func (s *Store) ListTimeline(ctx context.Context, complaintID string) ([]*complaint.TimelineEvent, error) {
	ctx, span := startSpan(ctx, "pgstore.ListTimeline", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, complaint_id, actor_id, type, message, created_at
		 FROM timeline_events WHERE complaint_id = $1 ORDER BY created_at, id`,
		complaintID,
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query timeline: %w", err))
	}
	defer rows.Close()

	out := make([]*complaint.TimelineEvent, 0)
	for rows.Next() {
		var (
			ev  complaint.TimelineEvent
			typ string
		)
		if err := rows.Scan(&ev.ID, &ev.ComplaintID, &ev.ActorID, &typ, &ev.Message, &ev.CreatedAt); err != nil {
			return nil, fail(span, fmt.Errorf("scan timeline event: %w", err))
		}
		ev.Type = complaint.EventType(typ)
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate timeline: %w", err))
	}
	return out, nil
}

// QueryOpenComplaintsByCategory returns the text of open complaints in category.
func (s *Store) QueryOpenComplaintsByCategory(ctx context.Context, category complaint.Category) ([]complaint.ComplaintText, error) {
	ctx, span := startSpan(ctx, "pgstore.QueryOpenComplaintsByCategory", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description FROM complaints
		 WHERE category = $1 AND status NOT IN ($2, $3)
		 ORDER BY created_at, id`,
		string(category), string(complaint.StatusResolved), string(complaint.StatusClosed),
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query open complaints: %w", err))
	}
	defer rows.Close()

	var out []complaint.ComplaintText
	for rows.Next() {
		var ct complaint.ComplaintText
		if err := rows.Scan(&ct.ID, &ct.Title, &ct.Description); err != nil {
			return nil, fail(span, fmt.Errorf("scan open complaint: %w", err))
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate open complaints: %w", err))
	}
	return out, nil
}

// IncrementVotes adds one vote in a single atomic statement.
func (s *Store) IncrementVotes(ctx context.Context, id string) (int64, error) {
	ctx, span := startSpan(ctx, "pgstore.IncrementVotes", "UPDATE")
	defer span.End()

	var votes int64
	err := s.pool.QueryRow(ctx,
		`UPDATE complaints SET votes = votes + 1 WHERE id = $1 RETURNING votes`, id,
	).Scan(&votes)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("complaint %s: %w", id, complaint.ErrNotFound)
	}
	if err != nil {
		return 0, fail(span, fmt.Errorf("increment votes: %w", err))
	}
	return votes, nil
}

// ListNotifications returns userID's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*complaint.Notification, error) {
	ctx, span := startSpan(ctx, "pgstore.ListNotifications", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, message, type, is_read, related_link, created_at
		 FROM notifications
		 WHERE user_id = $1 AND ($2::boolean = FALSE OR is_read = FALSE)
		 ORDER BY created_at DESC, id DESC`,
		userID, unreadOnly,
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query notifications: %w", err))
	}
	defer rows.Close()

	out := make([]*complaint.Notification, 0)
	for rows.Next() {
		var (
			n   complaint.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &typ, &n.IsRead, &n.RelatedLink, &n.CreatedAt); err != nil {
			return nil, fail(span, fmt.Errorf("scan notification: %w", err))
		}
		n.Type = complaint.NotificationType(typ)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate notifications: %w", err))
	}
	return out, nil
}

// UpdateNotificationRead marks one of userID's notifications read.
func (s *Store) UpdateNotificationRead(ctx context.Context, id, userID string) error {
	ctx, span := startSpan(ctx, "pgstore.UpdateNotificationRead", "UPDATE")
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return fail(span, fmt.Errorf("mark notification read: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, complaint.ErrNotFound)
	}
	return nil
}

// UpdateAllNotificationsRead marks all of userID's unread notifications read.
func (s *Store) UpdateAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	ctx, span := startSpan(ctx, "pgstore.UpdateAllNotificationsRead", "UPDATE")
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID,
	)
	if err != nil {
		return 0, fail(span, fmt.Errorf("mark all notifications read: %w", err))
	}
	return tag.RowsAffected(), nil
}

// Summary counts complaints by lifecycle bucket.
func (s *Store) Summary(ctx context.Context) (*complaint.Summary, error) {
	ctx, span := startSpan(ctx, "pgstore.Summary", "SELECT")
	defer span.End()

	var sum complaint.Summary
	err := s.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status IN ($2, $3))
		 FROM complaints`,
		string(complaint.StatusResolved), string(complaint.StatusSubmitted), string(complaint.StatusInProgress),
	).Scan(&sum.Total, &sum.Resolved, &sum.Pending)
	if err != nil {
		return nil, fail(span, fmt.Errorf("summary: %w", err))
	}
	return &sum, nil
}

// Trends counts complaints per UTC creation month.
func (s *Store) Trends(ctx context.Context) ([]complaint.MonthCount, error) {
	ctx, span := startSpan(ctx, "pgstore.Trends", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT to_char(date_trunc('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month, COUNT(*)
		 FROM complaints
		 GROUP BY month
		 ORDER BY month`,
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("trends: %w", err))
	}
	defer rows.Close()

	var out []complaint.MonthCount
	for rows.Next() {
		var m complaint.MonthCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, fail(span, fmt.Errorf("scan trend: %w", err))
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("trends: %w", err))
	}
	return out, nil
}

// tx implements complaint.Tx on an open pgx transaction.
type tx struct {
	tx pgx.Tx
}

func (t *tx) InsertComplaint(ctx context.Context, c *complaint.Complaint) error {
	c.ID = ulid.Make().String()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO complaints (`+complaintColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.Title, c.Description, string(c.Category), c.SubCategory, string(c.Status),
		string(c.Priority), c.Location, c.IsAnonymous, c.OwnerID, c.Votes, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	return nil
}

func (t *tx) LockComplaint(ctx context.Context, id string) (*complaint.Complaint, bool, error) {
	c, err := scanComplaint(t.tx.QueryRow(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		return nil, false, err
	}
	return c, c != nil, nil
}

func (t *tx) UpdateComplaintStatus(ctx context.Context, id string, status complaint.Status, updatedAt time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE complaints SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complaint %s: %w", id, complaint.ErrNotFound)
	}
	return nil
}

func (t *tx) AppendTimelineEvent(ctx context.Context, ev *complaint.TimelineEvent) error {
	ev.ID = ulid.Make().String()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO timeline_events (id, complaint_id, actor_id, type, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.ComplaintID, ev.ActorID, string(ev.Type), ev.Message, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert timeline event: %w", err)
	}
	return nil
}

func (t *tx) InsertNotification(ctx context.Context, n *complaint.Notification) error {
	n.ID = ulid.Make().String()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO notifications (id, user_id, message, type, is_read, related_link, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Message, string(n.Type), n.IsRead, n.RelatedLink, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// scanComplaint scans a single row. Returns (nil, nil) when no row is found.
func scanComplaint(row pgx.Row) (*complaint.Complaint, error) {
	var (
		c                          complaint.Complaint
		category, status, priority string
	)
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &category, &c.SubCategory, &status, &priority,
		&c.Location, &c.IsAnonymous, &c.OwnerID, &c.Votes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan complaint: %w", err)
	}
	c.Category = complaint.Category(category)
	c.Status = complaint.Status(status)
	c.Priority = complaint.Priority(priority)
	return &c, nil
}
