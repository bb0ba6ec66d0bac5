// Package memory provides the in-memory persistence backend used by tests
// and single-process deployments.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
)

// Persistence implements persistence.Persistence with plain maps guarded by
// per-store locks, so unrelated stores never contend.
type Persistence struct {
	workflows *WorkflowRepository
	bindings  *BindingRepository
	ledger    *ExecutionLedger
	records   *RecordStore
}

func NewPersistence() *Persistence {
	return &Persistence{
		workflows: &WorkflowRepository{items: make(map[string]*models.Workflow)},
		bindings: &BindingRepository{
			webhooks:    make(map[string]*models.WebhookBinding),
			schedules:   make(map[string]*models.ScheduleBinding),
			dataChanges: make(map[string]*models.DataChangeBinding),
		},
		ledger:  &ExecutionLedger{},
		records: &RecordStore{tables: make(map[string]map[string]map[string]any)},
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository { return p.workflows }
func (p *Persistence) BindingRepository() persistence.BindingRepository   { return p.bindings }
func (p *Persistence) ExecutionLedger() persistence.ExecutionLedger       { return p.ledger }
func (p *Persistence) RecordStore() persistence.RecordStore               { return p.records }

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }
func (p *Persistence) Close(_ context.Context) error       { return nil }

// deepCopy round-trips through JSON so callers never share memory with the
// store.
func deepCopy[T any](src *T) *T {
	data, err := json.Marshal(src)
	if err != nil {
		return src
	}

	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return src
	}

	return out
}

// WorkflowRepository is the in-memory workflow store.
type WorkflowRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Workflow
}

func (r *WorkflowRepository) Workflows(_ context.Context) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(r.items))
	for _, workflow := range r.items {
		workflows = append(workflows, deepCopy(workflow))
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *WorkflowRepository) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow, ok := r.items[id]
	if !ok {
		return nil, persistence.NewWorkflowError("Get", id, persistence.ErrWorkflowNotFound)
	}

	return deepCopy(workflow), nil
}

func (r *WorkflowRepository) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[workflow.ID] = deepCopy(workflow)

	return nil
}

func (r *WorkflowRepository) DeleteWorkflow(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	delete(r.items, id)

	return nil
}

func (r *WorkflowRepository) RecordRun(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, ok := r.items[id]
	if !ok {
		return persistence.NewWorkflowError("RecordRun", id, persistence.ErrWorkflowNotFound)
	}

	workflow.ExecutionCount++
	workflow.LastExecutedAt = &at

	return nil
}

// BindingRepository is the in-memory trigger binding store.
type BindingRepository struct {
	mu          sync.RWMutex
	webhooks    map[string]*models.WebhookBinding
	schedules   map[string]*models.ScheduleBinding
	dataChanges map[string]*models.DataChangeBinding
}

func (r *BindingRepository) SaveWebhookBinding(_ context.Context, binding *models.WebhookBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.webhooks[binding.ID] = deepCopy(binding)

	return nil
}

func (r *BindingRepository) WebhookBindingByID(_ context.Context, id string) (*models.WebhookBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	binding, ok := r.webhooks[id]
	if !ok {
		return nil, persistence.ErrBindingNotFound
	}

	return deepCopy(binding), nil
}

func (r *BindingRepository) DeleteWebhookBindings(_ context.Context, workflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, binding := range r.webhooks {
		if binding.WorkflowID == workflowID {
			delete(r.webhooks, id)
		}
	}

	return nil
}

func (r *BindingRepository) SaveScheduleBinding(_ context.Context, binding *models.ScheduleBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schedules[binding.ID] = deepCopy(binding)

	return nil
}

func (r *BindingRepository) ScheduleBindingsByWorkflow(_ context.Context, workflowID string) ([]*models.ScheduleBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bindings []*models.ScheduleBinding

	for _, binding := range r.schedules {
		if binding.WorkflowID == workflowID {
			bindings = append(bindings, deepCopy(binding))
		}
	}

	return bindings, nil
}

func (r *BindingRepository) DueScheduleBindings(_ context.Context, now time.Time) ([]*models.ScheduleBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*models.ScheduleBinding

	for _, binding := range r.schedules {
		if binding.IsDue(now) {
			due = append(due, deepCopy(binding))
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRunAt.Before(due[j].NextRunAt)
	})

	return due, nil
}

func (r *BindingRepository) DeleteScheduleBindings(_ context.Context, workflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, binding := range r.schedules {
		if binding.WorkflowID == workflowID {
			delete(r.schedules, id)
		}
	}

	return nil
}

func (r *BindingRepository) SaveDataChangeBinding(_ context.Context, binding *models.DataChangeBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dataChanges[binding.ID] = deepCopy(binding)

	return nil
}

func (r *BindingRepository) DataChangeBindingsByTable(_ context.Context, table string) ([]*models.DataChangeBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bindings []*models.DataChangeBinding

	for _, binding := range r.dataChanges {
		if binding.Table == table {
			bindings = append(bindings, deepCopy(binding))
		}
	}

	return bindings, nil
}

func (r *BindingRepository) DeleteDataChangeBindings(_ context.Context, workflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, binding := range r.dataChanges {
		if binding.WorkflowID == workflowID {
			delete(r.dataChanges, id)
		}
	}

	return nil
}

// ExecutionLedger is the in-memory append-only run store.
type ExecutionLedger struct {
	mu      sync.RWMutex
	entries []*models.Execution
}

func (l *ExecutionLedger) Append(_ context.Context, execution *models.Execution) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, entry := range l.entries {
		if entry.ID != execution.ID {
			continue
		}

		if entry.Status.Terminal() {
			return persistence.ErrExecutionImmutable
		}

		// In-flight records are updated in place until they turn terminal.
		l.entries[i] = deepCopy(execution)

		return nil
	}

	l.entries = append(l.entries, deepCopy(execution))

	return nil
}

func (l *ExecutionLedger) ExecutionsByWorkflow(_ context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var executions []*models.Execution

	// Entries are kept in start order; walk backwards for newest-first
	// results.
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].WorkflowID != workflowID {
			continue
		}

		executions = append(executions, deepCopy(l.entries[i]))
		if limit > 0 && len(executions) == limit {
			break
		}
	}

	return executions, nil
}

func (l *ExecutionLedger) ClearWorkflow(_ context.Context, workflowID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.entries[:0]

	for _, entry := range l.entries {
		if entry.WorkflowID != workflowID {
			kept = append(kept, entry)
		}
	}

	l.entries = kept

	return nil
}

func (l *ExecutionLedger) ClearAll(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil

	return nil
}

// RecordStore is the in-memory table/record store. Mutations notify change
// callbacks so data-change triggers can fire in-process.
type RecordStore struct {
	mu        sync.RWMutex
	tables    map[string]map[string]map[string]any
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

func copyRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}

	return out
}

func (s *RecordStore) InsertRecord(_ context.Context, table string, record map[string]any) (map[string]any, error) {
	stored := copyRecord(record)
	if _, ok := stored["id"].(string); !ok {
		stored["id"] = uuid.New().String()
	}

	s.mu.Lock()

	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[string]map[string]any)
		s.tables[table] = rows
	}

	rows[stored["id"].(string)] = stored
	result := copyRecord(stored)
	s.mu.Unlock()

	s.notify(table, "insert", copyRecord(stored))

	return result, nil
}

func (s *RecordStore) UpdateRecord(_ context.Context, table, id string, patch map[string]any) (map[string]any, error) {
	s.mu.Lock()

	rows, ok := s.tables[table]
	if !ok {
		s.mu.Unlock()

		return nil, persistence.ErrRecordNotFound
	}

	record, ok := rows[id]
	if !ok {
		s.mu.Unlock()

		return nil, persistence.ErrRecordNotFound
	}

	for k, v := range patch {
		if k == "id" {
			continue
		}

		record[k] = v
	}

	result := copyRecord(record)
	s.mu.Unlock()

	s.notify(table, "update", copyRecord(result))

	return result, nil
}

func (s *RecordStore) DeleteRecord(_ context.Context, table, id string) (map[string]any, error) {
	s.mu.Lock()

	rows, ok := s.tables[table]
	if !ok {
		s.mu.Unlock()

		return nil, persistence.ErrRecordNotFound
	}

	record, ok := rows[id]
	if !ok {
		s.mu.Unlock()

		return nil, persistence.ErrRecordNotFound
	}

	delete(rows, id)
	result := copyRecord(record)
	s.mu.Unlock()

	s.notify(table, "delete", copyRecord(result))

	return result, nil
}

func (s *RecordStore) RecordByID(_ context.Context, table, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}

	record, ok := rows[id]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}

	return copyRecord(record), nil
}
