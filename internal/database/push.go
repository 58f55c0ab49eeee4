package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CreatePushSubscriptionParams struct {
	UserID    uuid.UUID
	Endpoint  string
	P256DHKey string
	AuthKey   string
}

func (db *Database) CreatePushSubscription(ctx context.Context, params CreatePushSubscriptionParams) (PushSubscription, error) {
	subscription := PushSubscription{
		ID:        uuid.New(),
		UserID:    params.UserID,
		Endpoint:  params.Endpoint,
		P256DHKey: params.P256DHKey,
		AuthKey:   params.AuthKey,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	// A browser endpoint identifies one push channel. Re-subscribing
	// refreshes the keys and moves the endpoint to the caller, so the row
	// always belongs to whoever registered it last.
	err := db.Pool.QueryRow(ctx, `INSERT INTO tbl_push_subscription (id, user_id, endpoint, p256dh_key, auth_key, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (endpoint) DO UPDATE SET user_id = EXCLUDED.user_id, p256dh_key = EXCLUDED.p256dh_key, auth_key = EXCLUDED.auth_key, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		subscription.ID, subscription.UserID, subscription.Endpoint, subscription.P256DHKey, subscription.AuthKey, subscription.CreatedAt, subscription.UpdatedAt).
		Scan(&subscription.ID, &subscription.CreatedAt)
	if err != nil {
		return subscription, fmt.Errorf("database: failed to upsert push subscription (user_id=%s): %w", subscription.UserID, err)
	}
	return subscription, nil
}

func (db *Database) ListPushSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]PushSubscription, error) {
	var subscriptions []PushSubscription

	rows, err := db.Pool.Query(ctx, `SELECT id, user_id, endpoint, p256dh_key, auth_key, created_at, updated_at FROM tbl_push_subscription WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list push subscriptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var subscription PushSubscription
		if err := rows.Scan(&subscription.ID, &subscription.UserID, &subscription.Endpoint, &subscription.P256DHKey, &subscription.AuthKey, &subscription.CreatedAt, &subscription.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan push subscription: %w", err)
		}
		subscriptions = append(subscriptions, subscription)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate push subscriptions: %w", err)
	}

	return subscriptions, nil
}

func (db *Database) DeletePushSubscription(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_push_subscription WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("database: failed to delete push subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPushSubscriptionNotFound
	}
	return nil
}
