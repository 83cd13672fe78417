package repository

import (
	"context"
	"errors"
	"time"

	"ticketing/internal/domain/event"
	"ticketing/internal/infra"
	"ticketing/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type EventRepository struct{}

func NewEventRepository() *EventRepository {
	return &EventRepository{}
}

const findEventByIDSQL = `
SELECT id, name, price_cents, capacity, available, start_date, end_date, status
FROM events
WHERE id = $1`

func (r *EventRepository) FindByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*event.Event, error) {
	var (
		name                string
		priceCents          int64
		capacity, available int32
		startDate, endDate  time.Time
		status              string
	)

	err := tx.QueryRow(ctx, findEventByIDSQL, id).
		Scan(&id, &name, &priceCents, &capacity, &available, &startDate, &endDate, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("event not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find event", err)
	}

	return event.ReconstructEvent(id, name, priceCents, capacity, available, startDate, endDate, event.Status(status))
}

const reserveCapacitySQL = `
UPDATE events
SET available = available - $2, updated_at = now()
WHERE id = $1
  AND status = 'ACTIVE'
  AND start_date > $3
  AND available >= $2`

// ReserveCapacity は available の条件付きデクリメント。
// WHERE 句の再検査が同時予約時の oversell を防ぐ唯一の防壁（アプリ層での read-modify-write 禁止）。
// 条件を満たす行がなければ false を返し、原因の切り分けは呼び出し側が行う。
func (r *EventRepository) ReserveCapacity(ctx context.Context, tx db.DBTX, eventID uuid.UUID, quantity int32, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, reserveCapacitySQL, eventID, quantity, now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to reserve capacity", err)
	}
	return tag.RowsAffected() == 1, nil
}

const restoreCapacitySQL = `
UPDATE events
SET available = available + $2, updated_at = now()
WHERE id = $1`

// RestoreCapacity は取り消し時の在庫戻し。予約ステータスの条件付き UPDATE と
// 同一トランザクション内で、そちらが 1 行更新できた場合にだけ呼ぶこと（二重戻し防止）。
func (r *EventRepository) RestoreCapacity(ctx context.Context, tx db.DBTX, eventID uuid.UUID, quantity int32) error {
	tag, err := tx.Exec(ctx, restoreCapacitySQL, eventID, quantity)
	if err != nil {
		return infra.WrapRepoErr("failed to restore capacity", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("event not found for capacity restore", nil, infra.KindNotFound)
	}
	return nil
}
