package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/estatetools/opsdash/internal/derive"
	"github.com/estatetools/opsdash/internal/models"
	"github.com/estatetools/opsdash/internal/sheets"
	"github.com/estatetools/opsdash/internal/storage"
	"github.com/estatetools/opsdash/internal/validation"
)

// User-facing operation failures.
var (
	// ErrDuplicateTask is returned by AddManual when the key is taken.
	ErrDuplicateTask = errors.New("a task with that apartment and due date already exists")
	// ErrUnknownApartment is returned by AddManual for codes absent from
	// the apartments table.
	ErrUnknownApartment = errors.New("apartment code not found")
	// ErrTaskNotFound is returned by Remove and Restore on a key miss.
	ErrTaskNotFound = errors.New("task not found")
)

// Store owns the active task list and the trash bin. All access goes through
// its methods; a single mutex serializes them, matching the one-editor usage
// pattern while keeping HTTP handlers safe.
//
// Mutations are in-memory only. Persistence happens on an explicit Save call,
// except that MarkChecked flips the dirty flag so callers can tell a save is
// pending.
type Store struct {
	source  sheets.Source
	mapping sheets.Mapping
	deriver *derive.Deriver
	persist storage.Store
	log     *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	list  []*models.Task
	trash []*models.Task
	dirty bool
}

// NewStore wires a store over a data source and a persistence backend.
func NewStore(source sheets.Source, mapping sheets.Mapping, persist storage.Store, log *zap.Logger) *Store {
	return &Store{
		source:  source,
		mapping: mapping,
		deriver: derive.NewDeriver(log),
		persist: persist,
		log:     log,
		now:     time.Now,
	}
}

// Load pulls the persisted document into memory. A missing or unreadable
// document starts the store empty; the error is returned for the caller's
// log but the store stays usable.
func (s *Store) Load(ctx context.Context) error {
	doc, err := s.persist.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.list = []*models.Task{}
		s.trash = []*models.Task{}
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Info("no_persisted_document_starting_empty")
			return nil
		}
		s.log.Warn("failed_to_load_document_starting_empty", zap.Error(err))
		return err
	}
	s.list = doc.TodoList
	s.trash = doc.TrashBin
	Sort(s.list)
	s.log.Info("document_loaded",
		zap.Int("active", len(s.list)),
		zap.Int("trashed", len(s.trash)),
	)
	return nil
}

// Reload forces a fresh load, bypassing any persistence-layer cache.
func (s *Store) Reload(ctx context.Context) error {
	if inv, ok := s.persist.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
	return s.Load(ctx)
}

// Save persists the current document. In-memory state is untouched on
// failure so the next Save is the retry.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	doc := &models.Document{
		TodoList: cloneTasks(s.list),
		TrashBin: cloneTasks(s.trash),
	}
	s.mu.Unlock()

	if err := s.persist.Save(ctx, doc); err != nil {
		return fmt.Errorf("save task document: %w", err)
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Dirty reports whether a checked-time update is awaiting persistence.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Generate rebuilds the active list for the inclusive window [start, end]:
// index transactions and meter readings, derive candidate tasks, reconcile
// against the current list, sort. Missing tables or required columns abort
// the pass with a log entry and leave the list unchanged; the caller never
// sees derivation errors.
func (s *Store) Generate(ctx context.Context, start, end models.Date) {
	apartments, err := s.source.Table(ctx, sheets.TableApartments)
	if err != nil {
		s.log.Warn("generate_aborted_missing_table", zap.String("table", sheets.TableApartments), zap.Error(err))
		return
	}
	money, err := s.source.Table(ctx, sheets.TableMoney)
	if err != nil {
		s.log.Warn("generate_aborted_missing_table", zap.String("table", sheets.TableMoney), zap.Error(err))
		return
	}
	utility, err := s.source.Table(ctx, sheets.TableUtility)
	if err != nil {
		s.log.Warn("generate_aborted_missing_table", zap.String("table", sheets.TableUtility), zap.Error(err))
		return
	}

	tx, err := derive.BuildTransactionIndex(money, s.mapping)
	if err != nil {
		s.log.Warn("generate_aborted_bad_money_table", zap.Error(err))
		return
	}
	readings, err := derive.BuildReadingIndex(utility, s.mapping)
	if err != nil {
		s.log.Warn("generate_aborted_bad_utility_table", zap.Error(err))
		return
	}

	derived, err := s.deriver.Derive(apartments, s.mapping, start, end, tx, readings)
	if err != nil {
		s.log.Warn("generate_aborted_bad_apartments_table", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.list = Reconcile(s.list, derived)
	Sort(s.list)
	count := len(s.list)
	s.mu.Unlock()

	s.log.Info("task_list_generated",
		zap.String("window_start", start.String()),
		zap.String("window_end", end.String()),
		zap.Int("active", count),
	)
}

// AddManual creates a user-authored task. The identity key must be free and
// the apartment must exist; realtor and last-transaction/last-reading context
// are filled in best-effort.
func (s *Store) AddManual(ctx context.Context, code string, due models.Date) (*models.Task, error) {
	realtor, err := s.lookupRealtor(ctx, code)
	if err != nil {
		return nil, err
	}

	reason := "Manually added"
	if !due.IsZero() {
		reason += fmt.Sprintf(" - Due on %s", due.Time().Format("02-Jan"))
	}
	task := models.NewTask(code, reason, due, realtor, models.TaskStatusPending)
	task.Manual = true
	s.attachContext(ctx, task)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(s.list, task.Key()) >= 0 {
		return nil, ErrDuplicateTask
	}
	s.list = append(s.list, task)
	Sort(s.list)
	s.log.Info("manual_task_added",
		zap.String("ap_code", code),
		zap.String("due_date", due.String()),
	)
	return task.Clone(), nil
}

// Remove moves the task with the given key to the trash bin. Repeated
// remove/regenerate cycles can stack several trashed entries under one key;
// Restore takes the oldest first.
func (s *Store) Remove(code string, due models.Date) error {
	key := models.TaskKey{ApCode: code, DueDate: due.String()}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(s.list, key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, key)
	}
	task := s.list[i]
	s.list = append(s.list[:i], s.list[i+1:]...)
	s.trash = append(s.trash, task)
	s.log.Info("task_trashed", zap.String("key", key.String()))
	return nil
}

// Restore moves the task with the given key from the trash bin back to the
// active list. It fails with ErrDuplicateTask when the key is occupied
// again, which happens when a regeneration re-derived the removed task; the
// trashed entry stays in the trash.
func (s *Store) Restore(code string, due models.Date) error {
	key := models.TaskKey{ApCode: code, DueDate: due.String()}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(s.trash, key)
	if i < 0 {
		return fmt.Errorf("%w: %s in trash", ErrTaskNotFound, key)
	}
	if s.findLocked(s.list, key) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, key)
	}
	task := s.trash[i]
	s.trash = append(s.trash[:i], s.trash[i+1:]...)
	s.list = append(s.list, task)
	Sort(s.list)
	s.log.Info("task_restored", zap.String("key", key.String()))
	return nil
}

// UpdateCheckbox sets one of the four checkbox flags. A key miss is a no-op;
// an unknown checkbox name is an error.
func (s *Store) UpdateCheckbox(code, name string, value bool, due models.Date) error {
	if err := validation.ValidateCheckboxName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(s.list, models.TaskKey{ApCode: code, DueDate: due.String()})
	if i < 0 {
		return nil
	}
	return s.list[i].Checked.Set(name, value)
}

// UpdateNote sets a task's note. A key miss is a no-op.
func (s *Store) UpdateNote(code, note string, due models.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(s.list, models.TaskKey{ApCode: code, DueDate: due.String()})
	if i < 0 {
		return
	}
	s.list[i].Note = note
}

// MarkChecked stamps the task's check time with the current moment and marks
// the store dirty. A key miss is a no-op.
func (s *Store) MarkChecked(code string, due models.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(s.list, models.TaskKey{ApCode: code, DueDate: due.String()})
	if i < 0 {
		return
	}
	now := s.now().UTC()
	s.list[i].CheckTime = &now
	s.dirty = true
}

// Tasks returns a copy of the active list in display order.
func (s *Store) Tasks() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.list)
}

// Trash returns a copy of the trash bin.
func (s *Store) Trash() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.trash)
}

// ActionItems returns the most urgent open Unpaid/Check-out tasks for a
// realtor, oldest due date first, capped at limit.
func (s *Store) ActionItems(realtor string, limit int) []*models.Task {
	if limit <= 0 {
		limit = 5
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Task
	for _, task := range s.list {
		if !strings.EqualFold(task.Realtor, realtor) {
			continue
		}
		if task.Status != models.TaskStatusUnpaid && task.Status != models.TaskStatusCheckOut {
			continue
		}
		if task.Complete() {
			continue
		}
		matched = append(matched, task.Clone())
	}

	// Oldest due date first; undated tasks sink to the end.
	Sort(matched)
	datedFirst := make([]*models.Task, 0, len(matched))
	var undated []*models.Task
	for _, task := range matched {
		if task.DueDate.IsZero() {
			undated = append(undated, task)
		} else {
			datedFirst = append(datedFirst, task)
		}
	}
	matched = append(datedFirst, undated...)

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// RefreshContext re-fetches the transaction and meter-reading tables and
// rewrites only the context annotations on the existing tasks, without
// touching derivation results or user fields.
func (s *Store) RefreshContext(ctx context.Context) error {
	if err := s.source.Reload(ctx, sheets.TableMoney); err != nil {
		return fmt.Errorf("reload %s: %w", sheets.TableMoney, err)
	}
	if err := s.source.Reload(ctx, sheets.TableUtility); err != nil {
		return fmt.Errorf("reload %s: %w", sheets.TableUtility, err)
	}

	money, err := s.source.Table(ctx, sheets.TableMoney)
	if err != nil {
		return err
	}
	utility, err := s.source.Table(ctx, sheets.TableUtility)
	if err != nil {
		return err
	}

	tx, err := derive.BuildTransactionIndex(money, s.mapping)
	if err != nil {
		s.log.Warn("context_refresh_skipping_transactions", zap.Error(err))
		tx = derive.TransactionIndex{}
	}
	readings, err := derive.BuildReadingIndex(utility, s.mapping)
	if err != nil {
		s.log.Warn("context_refresh_skipping_readings", zap.Error(err))
		readings = derive.ReadingIndex{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range s.list {
		if latest, ok := tx.Latest(task.ApCode); ok {
			task.LastTransactionDate = latest.Date
			task.LastTransactionType = latest.TaskType
		} else {
			task.LastTransactionDate = models.Date{}
			task.LastTransactionType = ""
		}
		task.LastUTReadingDate = readings[task.ApCode]
	}
	s.log.Info("context_refreshed", zap.Int("tasks", len(s.list)))
	return nil
}

// lookupRealtor finds the apartment's realtor in the apartments table.
func (s *Store) lookupRealtor(ctx context.Context, code string) (string, error) {
	apartments, err := s.source.Table(ctx, sheets.TableApartments)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownApartment, code)
	}
	cols, err := s.mapping.Resolve(apartments, sheets.RoleCode, sheets.RoleRealtor)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownApartment, code)
	}
	for i := range apartments.Rows {
		if apartments.Cell(i, cols[sheets.RoleCode]) == code {
			realtor := apartments.Cell(i, cols[sheets.RoleRealtor])
			if realtor == "" {
				realtor = "Unknown"
			}
			return realtor, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownApartment, code)
}

// attachContext fills in last-transaction and last-reading annotations from
// whatever tables are currently available. Failures leave the fields empty.
func (s *Store) attachContext(ctx context.Context, task *models.Task) {
	if money, err := s.source.Table(ctx, sheets.TableMoney); err == nil {
		if tx, err := derive.BuildTransactionIndex(money, s.mapping); err == nil {
			if latest, ok := tx.Latest(task.ApCode); ok {
				task.LastTransactionDate = latest.Date
				task.LastTransactionType = latest.TaskType
			}
		}
	}
	if utility, err := s.source.Table(ctx, sheets.TableUtility); err == nil {
		if readings, err := derive.BuildReadingIndex(utility, s.mapping); err == nil {
			task.LastUTReadingDate = readings[task.ApCode]
		}
	}
}

// findLocked returns the index of the task with the given key, or -1. Caller
// holds the mutex.
func (s *Store) findLocked(tasks []*models.Task, key models.TaskKey) int {
	for i, task := range tasks {
		if task.Key() == key {
			return i
		}
	}
	return -1
}

func cloneTasks(tasks []*models.Task) []*models.Task {
	out := make([]*models.Task, len(tasks))
	for i, task := range tasks {
		out[i] = task.Clone()
	}
	return out
}
