package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

// ErrEventNotOpen is returned when a transition targets an event that is no longer pending or active.
var ErrEventNotOpen = errors.New("care event is not open")

const careEventColumns = `id, owner_user_id, subject_id, event_type, event_data, natural_key, title, scheduled_time,
       status, priority, priority_adjusted_at, completed_at, points_earned, experience_earned, created_at, updated_at`

// suppressingStatuses block re-creation of an occurrence the user already acted on.
var suppressingStatuses = []string{
	string(models.EventStatusActive),
	string(models.EventStatusCompleted),
	string(models.EventStatusCancelled),
}

// occupyingStatuses are the rows that can stop an occurrence from being inserted.
var occupyingStatuses = append([]string{string(models.EventStatusPending)}, suppressingStatuses...)

// CareEventRepository persists care events and their state transitions.
type CareEventRepository struct {
	db      *sqlx.DB
	effects map[models.EventType]completionEffect
}

// NewCareEventRepository constructs the repository.
func NewCareEventRepository(db *sqlx.DB) *CareEventRepository {
	return &CareEventRepository{db: db, effects: defaultCompletionEffects()}
}

// UpsertIfAbsent inserts a pending event unless its occurrence is already pending or was acted on.
// The suppression check and the insert run as one statement.
func (r *CareEventRepository) UpsertIfAbsent(ctx context.Context, candidate models.CareEventCandidate) (*models.UpsertResult, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	event := candidate.Event()
	subjectKey := event.SubjectKey()

	now := time.Now().UTC()
	event.ID = uuid.NewString()
	event.CreatedAt = now
	event.UpdatedAt = now

	insertQuery := `INSERT INTO care_events
	(id, owner_user_id, subject_id, event_type, event_data, natural_key, title, scheduled_time, status, priority,
	 points_earned, experience_earned, created_at, updated_at)
	SELECT $1::text, $2::text, $3::text, $4::text, $5::jsonb, $6::text, $7::text, $8::timestamptz, $9::text, $10::text,
	       0, 0, $11::timestamptz, $11::timestamptz
	WHERE NOT EXISTS (
		SELECT 1 FROM care_events
		WHERE owner_user_id = $2 AND COALESCE(subject_id, '') = $12 AND event_type = $4 AND natural_key = $6
		  AND status = ANY($13)
	)
	ON CONFLICT (owner_user_id, COALESCE(subject_id, ''), event_type, natural_key) WHERE status = 'pending' DO NOTHING
	RETURNING ` + careEventColumns

	var inserted models.CareEvent
	err := r.db.GetContext(ctx, &inserted, insertQuery,
		event.ID, event.OwnerUserID, event.SubjectID, event.EventType, event.EventData, event.NaturalKey,
		event.Title, event.ScheduledTime, event.Status, event.Priority, now, subjectKey, pq.Array(suppressingStatuses))
	if err == nil {
		return &models.UpsertResult{Created: true, Event: &inserted}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insert care event: %w", err)
	}

	existing, err := r.findByKey(ctx, event.OwnerUserID, subjectKey, event.EventType, event.NaturalKey, occupyingStatuses)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("care event %s was not inserted but no existing row was found", event.NaturalKey)
	}
	return &models.UpsertResult{Created: false, Event: existing}, nil
}

func (r *CareEventRepository) findByKey(ctx context.Context, ownerID, subjectKey string, eventType models.EventType, naturalKey string, statuses []string) (*models.CareEvent, error) {
	query := `SELECT ` + careEventColumns + ` FROM care_events
	WHERE owner_user_id = $1 AND COALESCE(subject_id, '') = $2 AND event_type = $3 AND natural_key = $4 AND status = ANY($5)
	ORDER BY updated_at DESC LIMIT 1`
	var event models.CareEvent
	if err := r.db.GetContext(ctx, &event, query, ownerID, subjectKey, eventType, naturalKey, pq.Array(statuses)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find care event by key: %w", err)
	}
	return &event, nil
}

// GetForOwner fetches an event owned by ownerID; foreign events are reported as sql.ErrNoRows.
func (r *CareEventRepository) GetForOwner(ctx context.Context, id, ownerID string) (*models.CareEvent, error) {
	query := `SELECT ` + careEventColumns + ` FROM care_events WHERE id = $1 AND owner_user_id = $2`
	var event models.CareEvent
	if err := r.db.GetContext(ctx, &event, query, id, ownerID); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListPending returns open events for an owner, soonest first.
func (r *CareEventRepository) ListPending(ctx context.Context, filter models.CareEventFilter) ([]models.CareEvent, error) {
	if filter.OwnerUserID == "" {
		return nil, fmt.Errorf("owner is required")
	}
	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []models.EventStatus{models.EventStatusPending}
	}
	statusArgs := make([]string, len(statuses))
	for i, s := range statuses {
		statusArgs[i] = string(s)
	}

	query := strings.Builder{}
	query.WriteString(`SELECT ` + careEventColumns + ` FROM care_events WHERE owner_user_id = $1 AND status = ANY($2)`)
	args := []interface{}{filter.OwnerUserID, pq.Array(statusArgs)}
	if filter.SubjectID != nil {
		args = append(args, *filter.SubjectID)
		fmt.Fprintf(&query, " AND COALESCE(subject_id, '') = $%d", len(args))
	}
	if filter.EventType != "" {
		args = append(args, filter.EventType)
		fmt.Fprintf(&query, " AND event_type = $%d", len(args))
	}
	query.WriteString(" ORDER BY scheduled_time ASC, id ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	fmt.Fprintf(&query, " LIMIT %d", limit)

	var events []models.CareEvent
	if err := r.db.SelectContext(ctx, &events, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list pending care events: %w", err)
	}
	return events, nil
}

// ListPendingOlderThan returns open events of the given types scheduled before cutoff.
func (r *CareEventRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, types []models.EventType, limit int) ([]models.CareEvent, error) {
	if len(types) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}
	typeArgs := make([]string, len(types))
	for i, t := range types {
		typeArgs[i] = string(t)
	}
	query := `SELECT ` + careEventColumns + ` FROM care_events
	WHERE status IN ('pending', 'active') AND scheduled_time < $1 AND event_type = ANY($2)
	ORDER BY scheduled_time ASC LIMIT $3`
	var events []models.CareEvent
	if err := r.db.SelectContext(ctx, &events, query, cutoff, pq.Array(typeArgs), limit); err != nil {
		return nil, fmt.Errorf("list overdue care events: %w", err)
	}
	return events, nil
}

// MarkMissed moves still-open events to missed and returns how many changed.
func (r *CareEventRepository) MarkMissed(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE care_events SET status = 'missed', updated_at = $1
	WHERE id = ANY($2) AND status IN ('pending', 'active')`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("mark care events missed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark care events missed rows: %w", err)
	}
	return affected, nil
}

// ExpireAlerts cancels open alert events whose source alert has expired.
func (r *CareEventRepository) ExpireAlerts(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE care_events SET status = 'cancelled', updated_at = $1
	WHERE event_type = 'public_health_alert' AND status IN ('pending', 'active')
	  AND event_data->'data'->>'expires_at' IS NOT NULL
	  AND (event_data->'data'->>'expires_at')::timestamptz <= $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("expire alert events: %w", err)
	}
	return result.RowsAffected()
}

// Activate moves a pending event to active.
func (r *CareEventRepository) Activate(ctx context.Context, id, ownerID string) (*models.CareEvent, error) {
	return r.transition(ctx, id, ownerID, models.EventStatusActive, []string{string(models.EventStatusPending)})
}

// Cancel moves a pending or active event to cancelled.
func (r *CareEventRepository) Cancel(ctx context.Context, id, ownerID string) (*models.CareEvent, error) {
	return r.transition(ctx, id, ownerID, models.EventStatusCancelled,
		[]string{string(models.EventStatusPending), string(models.EventStatusActive)})
}

func (r *CareEventRepository) transition(ctx context.Context, id, ownerID string, to models.EventStatus, from []string) (*models.CareEvent, error) {
	query := `UPDATE care_events SET status = $1, updated_at = $2
	WHERE id = $3 AND owner_user_id = $4 AND status = ANY($5)
	RETURNING ` + careEventColumns
	var event models.CareEvent
	if err := r.db.GetContext(ctx, &event, query, to, time.Now().UTC(), id, ownerID, pq.Array(from)); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transition care event to %s: %w", to, err)
		}
		// Distinguish a missing event from one in the wrong state.
		if _, getErr := r.GetForOwner(ctx, id, ownerID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrEventNotOpen
	}
	return &event, nil
}

// HasOpenFeeding reports whether a schedule already has a pending or active feeding event.
func (r *CareEventRepository) HasOpenFeeding(ctx context.Context, ownerID, scheduleID string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM care_events
	WHERE owner_user_id = $1 AND event_type = 'feeding' AND status IN ('pending', 'active') AND natural_key LIKE $2
)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, ownerID, models.FeedingKeyPrefix(scheduleID)+"%"); err != nil {
		return false, fmt.Errorf("check open feeding: %w", err)
	}
	return exists, nil
}

// LatestFeedingAnchor returns the most recent missed or cancelled feeding event of a schedule, if any.
func (r *CareEventRepository) LatestFeedingAnchor(ctx context.Context, ownerID, scheduleID string) (*models.FeedingAnchor, error) {
	const query = `SELECT $2::text AS schedule_id, status, scheduled_time FROM care_events
	WHERE owner_user_id = $1 AND event_type = 'feeding' AND status IN ('missed', 'cancelled') AND natural_key LIKE $3
	ORDER BY scheduled_time DESC LIMIT 1`
	var anchor models.FeedingAnchor
	if err := r.db.GetContext(ctx, &anchor, query, ownerID, scheduleID, models.FeedingKeyPrefix(scheduleID)+"%"); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest feeding anchor: %w", err)
	}
	return &anchor, nil
}

// ListResolvedSince returns terminal events resolved at or after since.
func (r *CareEventRepository) ListResolvedSince(ctx context.Context, ownerID string, since time.Time) ([]models.ResolvedEvent, error) {
	const query = `SELECT id, owner_user_id, subject_id, event_type, status, COALESCE(completed_at, updated_at) AS resolved_at
	FROM care_events
	WHERE owner_user_id = $1 AND status IN ('completed', 'missed', 'cancelled') AND updated_at >= $2
	ORDER BY updated_at ASC`
	var events []models.ResolvedEvent
	if err := r.db.SelectContext(ctx, &events, query, ownerID, since); err != nil {
		return nil, fmt.Errorf("list resolved care events: %w", err)
	}
	return events, nil
}

// ApplyPriorityAdjustment rewrites the priority of a still-pending event and records the change.
// It reports false when the event moved on (no longer pending, or priority changed) in the meantime.
func (r *CareEventRepository) ApplyPriorityAdjustment(ctx context.Context, adj *models.PriorityAdjustment) (applied bool, err error) {
	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}
	if adj.AdjustedAt.IsZero() {
		adj.AdjustedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin priority adjustment: %w", err)
	}
	defer func() {
		if err != nil || !applied {
			_ = tx.Rollback()
		}
	}()

	const updateQuery = `UPDATE care_events SET priority = $1, priority_adjusted_at = $2, updated_at = $2
	WHERE id = $3 AND status = 'pending' AND priority = $4`
	result, err := tx.ExecContext(ctx, updateQuery, adj.NewPriority, adj.AdjustedAt, adj.EventID, adj.OldPriority)
	if err != nil {
		return false, fmt.Errorf("update care event priority: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update care event priority rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	const insertQuery = `INSERT INTO priority_adjustments (id, event_id, old_priority, new_priority, reason, adjusted_at)
	VALUES (:id, :event_id, :old_priority, :new_priority, :reason, :adjusted_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, adj); err != nil {
		return false, fmt.Errorf("record priority adjustment: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit priority adjustment: %w", err)
	}
	return true, nil
}

// CompleteParams drives the completion transaction.
type CompleteParams struct {
	EventID     string
	OwnerUserID string
	CompletedAt time.Time
	// Reward resolves the points and experience once the locked event is known.
	Reward func(*models.CareEvent) models.Reward
}

// CompletionOutcome is the committed result of Complete.
type CompletionOutcome struct {
	Event         *models.CareEvent
	Reward        models.Reward
	Progress      models.UserProgress
	PreviousLevel int
}

// Complete finalises an open event, applies its type-specific effects and credits user progress in one transaction.
// A missing or foreign event yields sql.ErrNoRows; a terminal one yields ErrEventNotOpen.
func (r *CareEventRepository) Complete(ctx context.Context, params CompleteParams) (outcome *CompletionOutcome, err error) {
	if params.CompletedAt.IsZero() {
		params.CompletedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin completion: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var event models.CareEvent
	lockQuery := `SELECT ` + careEventColumns + ` FROM care_events WHERE id = $1 AND owner_user_id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &event, lockQuery, params.EventID, params.OwnerUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock care event: %w", err)
	}
	if !event.Status.Open() {
		err = ErrEventNotOpen
		return nil, err
	}

	reward := models.DefaultRewards[event.EventType]
	if params.Reward != nil {
		reward = params.Reward(&event)
	}

	const completeQuery = `UPDATE care_events
	SET status = 'completed', completed_at = $1, points_earned = $2, experience_earned = $3, updated_at = $1
	WHERE id = $4 AND status IN ('pending', 'active')`
	result, err := tx.ExecContext(ctx, completeQuery, params.CompletedAt, reward.Points, reward.Experience, event.ID)
	if err != nil {
		return nil, fmt.Errorf("complete care event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("complete care event rows: %w", err)
	}
	if affected == 0 {
		err = ErrEventNotOpen
		return nil, err
	}

	if effect, ok := r.effects[event.EventType]; ok {
		if err = effect(ctx, tx, &event, params.CompletedAt); err != nil {
			return nil, err
		}
	}

	progress, previousLevel, err := incrementProgress(ctx, tx, event.OwnerUserID, reward, params.CompletedAt)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}

	completedAt := params.CompletedAt
	event.Status = models.EventStatusCompleted
	event.CompletedAt = &completedAt
	event.PointsEarned = reward.Points
	event.ExperienceEarned = reward.Experience
	event.UpdatedAt = completedAt

	return &CompletionOutcome{
		Event:         &event,
		Reward:        reward,
		Progress:      *progress,
		PreviousLevel: previousLevel,
	}, nil
}

func incrementProgress(ctx context.Context, tx *sqlx.Tx, userID string, reward models.Reward, at time.Time) (*models.UserProgress, int, error) {
	previousLevel := 1
	if err := tx.GetContext(ctx, &previousLevel, `SELECT level FROM user_progress WHERE user_id = $1 FOR UPDATE`, userID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("lock user progress: %w", err)
		}
		previousLevel = 1
	}

	const upsertQuery = `INSERT INTO user_progress (user_id, total_points, total_experience, level, events_completed, updated_at)
	VALUES ($1, $2, $3, 1, 1, $4)
	ON CONFLICT (user_id) DO UPDATE SET
		total_points = user_progress.total_points + EXCLUDED.total_points,
		total_experience = user_progress.total_experience + EXCLUDED.total_experience,
		events_completed = user_progress.events_completed + 1,
		updated_at = EXCLUDED.updated_at
	RETURNING user_id, total_points, total_experience, level, events_completed, updated_at`
	var progress models.UserProgress
	if err := tx.GetContext(ctx, &progress, upsertQuery, userID, reward.Points, reward.Experience, at); err != nil {
		return nil, 0, fmt.Errorf("increment user progress: %w", err)
	}

	level := models.LevelForExperience(progress.TotalExperience)
	if level != progress.Level {
		if _, err := tx.ExecContext(ctx, `UPDATE user_progress SET level = $1 WHERE user_id = $2`, level, userID); err != nil {
			return nil, 0, fmt.Errorf("update user level: %w", err)
		}
		progress.Level = level
	}
	return &progress, previousLevel, nil
}

// ListHistory returns events for an owner scheduled in [from, to), optionally for one subject.
func (r *CareEventRepository) ListHistory(ctx context.Context, ownerID string, subjectID *string, from, to time.Time) ([]models.CareEvent, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + careEventColumns + ` FROM care_events
	WHERE owner_user_id = $1 AND scheduled_time >= $2 AND scheduled_time < $3`)
	args := []interface{}{ownerID, from, to}
	if subjectID != nil {
		args = append(args, *subjectID)
		fmt.Fprintf(&query, " AND COALESCE(subject_id, '') = $%d", len(args))
	}
	query.WriteString(" ORDER BY scheduled_time ASC, id ASC")

	var events []models.CareEvent
	if err := r.db.SelectContext(ctx, &events, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list care event history: %w", err)
	}
	return events, nil
}
