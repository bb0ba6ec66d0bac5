package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
)

// RecordStore keeps application records as JSONB rows. Change callbacks fire
// in-process after each committed mutation so data-change triggers see every
// write that flows through the engine.
type RecordStore struct {
	db *sql.DB

	mu        sync.RWMutex
	callbacks []persistence.ChangeCallback
}

func (s *RecordStore) OnChange(callback persistence.ChangeCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callbacks = append(s.callbacks, callback)
}

func (s *RecordStore) notify(table, operation string, record map[string]any) {
	s.mu.RLock()
	callbacks := make([]persistence.ChangeCallback, len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.RUnlock()

	for _, callback := range callbacks {
		callback(table, operation, record)
	}
}

func (s *RecordStore) InsertRecord(ctx context.Context, table string, record map[string]any) (map[string]any, error) {
	if record == nil {
		record = map[string]any{}
	}

	id, _ := record["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}

	record["id"] = id

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (table_name, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)`,
		table, id, data, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	s.notify(table, "insert", record)

	return record, nil
}

func (s *RecordStore) UpdateRecord(ctx context.Context, table, id string, patch map[string]any) (map[string]any, error) {
	record, err := s.RecordByID(ctx, table, id)
	if err != nil {
		return nil, err
	}

	for key, value := range patch {
		if key == "id" {
			continue
		}

		record[key] = value
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE records SET data = $3, updated_at = $4
		WHERE table_name = $1 AND id = $2`,
		table, id, data, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	s.notify(table, "update", record)

	return record, nil
}

func (s *RecordStore) DeleteRecord(ctx context.Context, table, id string) (map[string]any, error) {
	record, err := s.RecordByID(ctx, table, id)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		"DELETE FROM records WHERE table_name = $1 AND id = $2", table, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete record: %w", err)
	}

	s.notify(table, "delete", record)

	return record, nil
}

func (s *RecordStore) RecordByID(ctx context.Context, table, id string) (map[string]any, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM records WHERE table_name = $1 AND id = $2", table, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrRecordNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return record, nil
}
