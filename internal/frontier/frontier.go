/*
Responsibilities

- Hold the durable, per-project priority queue of discovered-but-unfetched URLs
- Guarantee at most one non-Completed row per (project, normalized_key)
- Hand out the next Queued item atomically: two workers never dequeue the
  same row
- Track an in-memory, approximate queued-size counter for progress events

Durability lives in sqlite (internal/db's crawl_queue table); the atomicity
guarantee is a single UPDATE ... RETURNING statement rather than a
hand-rolled lock, since sqlite already serializes writers against one
database file.
*/
package frontier

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/wraithcrawl/seoscan/internal/metadata"
)

// Frontier is the durable, priority-ordered crawl queue for one sqlite
// database. A single Frontier is shared by every worker in a run.
type Frontier struct {
	db   *sql.DB
	sink metadata.MetadataSink

	// queueSizeApprox is incremented on an accepted Enqueue and decremented
	// on a successful GetNext. It is a best-effort figure for the progress
	// reporter, not a source of truth; CountQueued always re-derives the
	// exact value from the table.
	queueSizeApprox int64
}

// NewFrontier builds a Frontier backed by database, recording failures
// through sink.
func NewFrontier(database *sql.DB, sink metadata.MetadataSink) *Frontier {
	return &Frontier{db: database, sink: sink}
}

// CountQueued returns the exact number of Queued rows for project.
func (f *Frontier) CountQueued(ctx context.Context, projectID int64) (int, error) {
	var count int
	err := f.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM crawl_queue WHERE project_id = ? AND state = ?`,
		projectID, StateQueued,
	).Scan(&count)
	if err != nil {
		return 0, f.recordAndWrap("CountQueued", err, true)
	}
	return count, nil
}

// CountDiscovered returns the number of Url rows ever seen for project,
// independent of their current frontier state — the basis for this
// repository's resumed-total-discovered decision (see SPEC_FULL.md).
func (f *Frontier) CountDiscovered(ctx context.Context, projectID int64) (int, error) {
	var count int
	err := f.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM urls WHERE project_id = ?`, projectID,
	).Scan(&count)
	if err != nil {
		return 0, f.recordAndWrap("CountDiscovered", err, true)
	}
	return count, nil
}

// Enqueue inserts input as a new Queued item, unless a non-Completed row
// already exists for (project_id, normalized_key), in which case it is a
// no-op: enqueued reports whether a row was actually inserted.
func (f *Frontier) Enqueue(ctx context.Context, input EnqueueInput) (enqueued bool, err error) {
	result, execErr := f.db.ExecContext(ctx,
		`INSERT INTO crawl_queue (project_id, address, normalized_key, priority, depth, host_key, state, enqueued_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, normalized_key) WHERE state <> 'Completed' DO NOTHING`,
		input.ProjectID, input.Address, input.NormalizedKey, input.Priority, input.Depth,
		input.HostKey, StateQueued, time.Now(),
	)
	if execErr != nil {
		return false, f.recordAndWrap("Enqueue", execErr, true)
	}

	rows, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return false, f.recordAndWrap("Enqueue", rowsErr, true)
	}

	if rows > 0 {
		atomic.AddInt64(&f.queueSizeApprox, 1)
		return true, nil
	}
	return false, nil
}

// GetNext atomically claims and returns the Queued item with the highest
// priority (ties broken by lowest id), advancing it to InProgress in the
// same statement. Returns (nil, nil) when the queue is empty.
func (f *Frontier) GetNext(ctx context.Context, projectID int64) (*Item, error) {
	row := f.db.QueryRowContext(ctx,
		`UPDATE crawl_queue
		 SET state = ?
		 WHERE id = (
		   SELECT id FROM crawl_queue
		   WHERE project_id = ? AND state = ?
		   ORDER BY priority DESC, id ASC
		   LIMIT 1
		 )
		 RETURNING id, project_id, address, normalized_key, host_key, priority, depth, enqueued_at`,
		StateInProgress, projectID, StateQueued,
	)

	var item Item
	var state = StateInProgress
	scanErr := row.Scan(&item.ID, &item.ProjectID, &item.Address, &item.NormalizedKey,
		&item.HostKey, &item.Priority, &item.Depth, &item.EnqueuedAt)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, nil
	}
	if scanErr != nil {
		return nil, f.recordAndWrap("GetNext", scanErr, true)
	}

	item.State = state
	if current := atomic.AddInt64(&f.queueSizeApprox, -1); current < 0 {
		atomic.CompareAndSwapInt64(&f.queueSizeApprox, current, 0)
	}
	return &item, nil
}

// Update writes a new state for item id. Used by workers to mark a claimed
// item Completed or Failed once its fetch attempt concludes.
func (f *Frontier) Update(ctx context.Context, id int64, state State) error {
	_, err := f.db.ExecContext(ctx,
		`UPDATE crawl_queue SET state = ? WHERE id = ?`, state, id,
	)
	if err != nil {
		return f.recordAndWrap("Update", err, true)
	}
	return nil
}

// RevertInProgress reverts every InProgress row for project back to Queued.
// Called once at the start of Controller.Start, implementing this
// repository's decision on Open Question 3 (see DESIGN.md): an item left
// InProgress by a prior, cancelled run is eligible to be re-dequeued rather
// than stuck forever.
func (f *Frontier) RevertInProgress(ctx context.Context, projectID int64) (int, error) {
	result, err := f.db.ExecContext(ctx,
		`UPDATE crawl_queue SET state = ? WHERE project_id = ? AND state = ?`,
		StateQueued, projectID, StateInProgress,
	)
	if err != nil {
		return 0, f.recordAndWrap("RevertInProgress", err, true)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, f.recordAndWrap("RevertInProgress", err, true)
	}
	return int(rows), nil
}

// QueueSizeApprox returns the in-memory, eventually-consistent queued-size
// counter the progress reporter reads every tick.
func (f *Frontier) QueueSizeApprox() int64 {
	return atomic.LoadInt64(&f.queueSizeApprox)
}

// SeedQueueSizeApprox sets the approximation counter from an authoritative
// count, used once at Controller.Start to seed it from CountQueued on
// resume rather than starting from zero.
func (f *Frontier) SeedQueueSizeApprox(count int64) {
	atomic.StoreInt64(&f.queueSizeApprox, count)
}

func (f *Frontier) recordAndWrap(action string, err error, retryable bool) error {
	fe := &FrontierError{Message: err.Error(), Retryable: retryable, Cause: ErrCauseQueueUnavailable}
	if f.sink != nil {
		f.sink.RecordError(
			time.Now(), "frontier", action,
			metadata.CauseStorageFailure, fe.Error(), nil,
		)
	}
	return fe
}
