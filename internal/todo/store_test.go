package todo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/estatetools/opsdash/internal/models"
	"github.com/estatetools/opsdash/internal/sheets"
	"github.com/estatetools/opsdash/internal/storage"
)

// memStore is an in-memory persistence fake with failure injection.
type memStore struct {
	doc     *models.Document
	failure error
	saves   int
}

func (m *memStore) Load(context.Context) (*models.Document, error) {
	if m.failure != nil {
		return nil, m.failure
	}
	if m.doc == nil {
		return nil, storage.ErrNotFound
	}
	return m.doc, nil
}

func (m *memStore) Save(_ context.Context, doc *models.Document) error {
	if m.failure != nil {
		return m.failure
	}
	m.doc = doc
	m.saves++
	return nil
}

func fixtureSource() *sheets.StaticSource {
	src := sheets.NewStaticSource()
	src.SetTable(sheets.TableApartments,
		[]string{"AP CODE", "START", "END", "REALTOR", "CHECK_OUT"},
		[][]string{
			{"A1", "15-01-2024", "", "Ana", ""},
			{"A2", "", "", "Dan", "20.06.2024"},
		})
	src.SetTable(sheets.TableMoney,
		[]string{"APARTMENT CODE", "SUBMISSION DATE", "TYPE OF MONEY TASK", "SPECIFIC MONEY TASK"},
		[][]string{})
	src.SetTable(sheets.TableUtility,
		[]string{"Apartment Code", "Date of Reading"},
		[][]string{
			{"A1", "28/05/2024"},
		})
	return src
}

func newTestStore(src sheets.Source, persist storage.Store) *Store {
	return NewStore(src, sheets.DefaultMapping(), persist, zap.NewNop())
}

var (
	windowStart = models.NewDate(2024, time.June, 1)
	windowEnd   = models.NewDate(2024, time.June, 30)
)

func TestStore_GenerateScenario(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	store.Generate(context.Background(), windowStart, windowEnd)

	tasks := store.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want rent task for A1 + check-out for A2", len(tasks))
	}

	byCode := make(map[string]*models.Task)
	for _, task := range tasks {
		byCode[task.ApCode] = task
	}
	a1 := byCode["A1"]
	if a1 == nil || a1.Status != models.TaskStatusUnpaid || a1.DueDate.String() != "2024-06-15" {
		t.Errorf("A1 task = %+v, want Unpaid due 2024-06-15", a1)
	}
	if a1 != nil && !a1.LastUTReadingDate.Equal(models.NewDate(2024, time.May, 28)) {
		t.Errorf("A1 last reading = %v, want 2024-05-28", a1.LastUTReadingDate)
	}
	a2 := byCode["A2"]
	if a2 == nil || a2.Status != models.TaskStatusCheckOut || a2.DueDate.String() != "2024-06-20" {
		t.Errorf("A2 task = %+v, want Check-out due 2024-06-20", a2)
	}
}

func TestStore_GeneratePaidWhenPaymentMatches(t *testing.T) {
	t.Parallel()

	src := fixtureSource()
	src.SetTable(sheets.TableMoney,
		[]string{"APARTMENT CODE", "SUBMISSION DATE", "TYPE OF MONEY TASK", "SPECIFIC MONEY TASK"},
		[][]string{
			{"A1", "10/06/2024", "CHECK-IN", ""},
		})

	store := newTestStore(src, &memStore{})
	store.Generate(context.Background(), windowStart, windowEnd)

	for _, task := range store.Tasks() {
		if task.ApCode == "A1" {
			if task.Status != models.TaskStatusPaid {
				t.Errorf("A1 status = %q, want Paid", task.Status)
			}
			return
		}
	}
	t.Fatal("no A1 task generated")
}

func TestStore_GenerateIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	ctx := context.Background()

	store.Generate(ctx, windowStart, windowEnd)
	store.UpdateNote("A1", "first pass note", models.NewDate(2024, time.June, 15))
	first := store.Tasks()

	store.Generate(ctx, windowStart, windowEnd)
	second := store.Tasks()

	if len(first) != len(second) {
		t.Fatalf("task count changed across regenerations: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key() != second[i].Key() {
			t.Errorf("key order changed: %v vs %v", first[i].Key(), second[i].Key())
		}
		if first[i].Note != second[i].Note {
			t.Errorf("note changed across regeneration: %q vs %q", first[i].Note, second[i].Note)
		}
	}
}

func TestStore_GenerateKeysAreUnique(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	store.Generate(context.Background(), windowStart, windowEnd)
	store.Generate(context.Background(), windowStart, windowEnd)

	seen := make(map[models.TaskKey]bool)
	for _, task := range store.Tasks() {
		if seen[task.Key()] {
			t.Fatalf("duplicate key %v in active list", task.Key())
		}
		seen[task.Key()] = true
	}
}

func TestStore_GeneratePreservesMutableFields(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	ctx := context.Background()
	due := models.NewDate(2024, time.June, 15)

	store.Generate(ctx, windowStart, windowEnd)
	store.UpdateNote("A1", "tenant travelling", due)
	if err := store.UpdateCheckbox("A1", "EMAIL", true, due); err != nil {
		t.Fatal(err)
	}
	store.MarkChecked("A1", due)

	store.Generate(ctx, windowStart, windowEnd)

	for _, task := range store.Tasks() {
		if task.ApCode != "A1" {
			continue
		}
		if task.Note != "tenant travelling" {
			t.Errorf("note = %q, not preserved", task.Note)
		}
		if !task.Checked["EMAIL"] {
			t.Error("checkbox not preserved across regeneration")
		}
		if task.CheckTime == nil {
			t.Error("check_time not preserved across regeneration")
		}
		return
	}
	t.Fatal("A1 task missing after regeneration")
}

func TestStore_GenerateMissingTableLeavesListUnchanged(t *testing.T) {
	t.Parallel()

	src := sheets.NewStaticSource() // no tables at all
	store := newTestStore(src, &memStore{})
	ctx := context.Background()

	manualSrc := fixtureSource()
	seeded := newTestStore(manualSrc, &memStore{})
	seeded.Generate(ctx, windowStart, windowEnd)

	// Missing tables: generation aborts quietly, the list stays as loaded.
	store.Generate(ctx, windowStart, windowEnd)
	if len(store.Tasks()) != 0 {
		t.Error("generation against an empty source should produce nothing")
	}
	if len(seeded.Tasks()) == 0 {
		t.Error("control store should have tasks")
	}
}

func TestStore_AddManual(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	ctx := context.Background()

	task, err := store.AddManual(ctx, "A1", models.Date{})
	if err != nil {
		t.Fatalf("AddManual() error = %v", err)
	}
	if !task.Manual || task.Status != models.TaskStatusPending {
		t.Errorf("manual task = %+v, want Manual/Pending", task)
	}
	if task.Realtor != "Ana" {
		t.Errorf("realtor = %q, want fetched from apartments table", task.Realtor)
	}

	// Same apartment, same (absent) due date: rejected.
	if _, err := store.AddManual(ctx, "A1", models.Date{}); !errors.Is(err, ErrDuplicateTask) {
		t.Errorf("duplicate AddManual() error = %v, want ErrDuplicateTask", err)
	}
	// Same apartment, different due date: allowed.
	if _, err := store.AddManual(ctx, "A1", models.NewDate(2024, time.July, 1)); err != nil {
		t.Errorf("dated AddManual() error = %v", err)
	}
	// Unknown apartment: rejected.
	if _, err := store.AddManual(ctx, "ZZ", models.Date{}); !errors.Is(err, ErrUnknownApartment) {
		t.Errorf("unknown AddManual() error = %v, want ErrUnknownApartment", err)
	}
}

func TestStore_ManualTaskSurvivesRegeneration(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	ctx := context.Background()

	if _, err := store.AddManual(ctx, "A2", models.Date{}); err != nil {
		t.Fatal(err)
	}
	store.Generate(ctx, windowStart, windowEnd)
	store.Generate(ctx, windowStart, windowEnd)

	for _, task := range store.Tasks() {
		if task.ApCode == "A2" && task.Manual {
			return
		}
	}
	t.Error("manual task did not survive regeneration")
}

func TestStore_RemoveRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	ctx := context.Background()
	due := models.NewDate(2024, time.June, 15)

	store.Generate(ctx, windowStart, windowEnd)
	store.UpdateNote("A1", "call before visiting", due)

	if err := store.Remove("A1", due); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(store.Trash()) != 1 {
		t.Fatalf("trash has %d tasks, want 1", len(store.Trash()))
	}
	for _, task := range store.Tasks() {
		if task.ApCode == "A1" {
			t.Fatal("removed task still on the active list")
		}
	}

	if err := store.Restore("A1", due); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(store.Trash()) != 0 {
		t.Error("trash not emptied by restore")
	}
	for _, task := range store.Tasks() {
		if task.ApCode == "A1" {
			if task.Note != "call before visiting" {
				t.Errorf("note = %q after round trip, want preserved", task.Note)
			}
			return
		}
	}
	t.Fatal("restored task missing from active list")
}

func TestStore_RestoreRejectsOccupiedKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	ctx := context.Background()
	due := models.NewDate(2024, time.June, 15)

	store.Generate(ctx, windowStart, windowEnd)
	if err := store.Remove("A1", due); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	// Regeneration re-derives the removed task, taking its key back.
	store.Generate(ctx, windowStart, windowEnd)

	if err := store.Restore("A1", due); !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("Restore() error = %v, want ErrDuplicateTask", err)
	}
	if len(store.Trash()) != 1 {
		t.Errorf("trash has %d tasks after rejected restore, want 1", len(store.Trash()))
	}

	count := 0
	for _, task := range store.Tasks() {
		if task.Key() == (models.TaskKey{ApCode: "A1", DueDate: "2024-06-15"}) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("key A1@2024-06-15 held by %d active tasks, want 1", count)
	}
}

func TestStore_GenerateCheckoutOnDueDateKeepsKeysUnique(t *testing.T) {
	t.Parallel()

	// A1's check-out lands on its monthly rent due date, the one fixture
	// shape where two derived tasks could contend for a single key.
	src := fixtureSource()
	src.SetTable(sheets.TableApartments,
		[]string{"AP CODE", "START", "END", "REALTOR", "CHECK_OUT"},
		[][]string{
			{"A1", "15-01-2024", "", "Ana", "15.06.2024"},
		})

	store := newTestStore(src, &memStore{})
	store.Generate(context.Background(), windowStart, windowEnd)

	tasks := store.Tasks()
	seen := make(map[models.TaskKey]bool)
	for _, task := range tasks {
		if seen[task.Key()] {
			t.Fatalf("duplicate key %v in active list", task.Key())
		}
		seen[task.Key()] = true
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Status != models.TaskStatusUnpaid {
		t.Errorf("status = %q, want Unpaid", tasks[0].Status)
	}
}

func TestStore_RemoveRestoreMissingKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	if err := store.Remove("A1", models.Date{}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Remove() error = %v, want ErrTaskNotFound", err)
	}
	if err := store.Restore("A1", models.Date{}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Restore() error = %v, want ErrTaskNotFound", err)
	}
}

func TestStore_SettersNoOpOnMissingKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	due := models.NewDate(2024, time.June, 15)

	if err := store.UpdateCheckbox("A1", "EMAIL", true, due); err != nil {
		t.Errorf("UpdateCheckbox() on missing key = %v, want silent no-op", err)
	}
	store.UpdateNote("A1", "note", due)
	store.MarkChecked("A1", due)
	if store.Dirty() {
		t.Error("MarkChecked on a missing key must not dirty the store")
	}
}

func TestStore_UpdateCheckboxRejectsUnknownName(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	if err := store.UpdateCheckbox("A1", "FAX", true, models.Date{}); err == nil {
		t.Error("expected error for unknown checkbox name")
	}
}

func TestStore_DirtyTracking(t *testing.T) {
	t.Parallel()

	persist := &memStore{}
	store := newTestStore(fixtureSource(), persist)
	ctx := context.Background()
	due := models.NewDate(2024, time.June, 15)

	store.Generate(ctx, windowStart, windowEnd)

	// Routine edits do not dirty the store; they ride along on the next
	// explicit save.
	store.UpdateNote("A1", "note", due)
	if err := store.UpdateCheckbox("A1", "EMAIL", true, due); err != nil {
		t.Fatal(err)
	}
	if store.Dirty() {
		t.Error("note/checkbox edits should not set the dirty flag")
	}

	store.MarkChecked("A1", due)
	if !store.Dirty() {
		t.Error("MarkChecked should set the dirty flag")
	}

	if err := store.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if store.Dirty() {
		t.Error("successful save should clear the dirty flag")
	}
	if persist.saves != 1 {
		t.Errorf("saves = %d, want 1", persist.saves)
	}
}

func TestStore_FailedSaveKeepsStateAndRetries(t *testing.T) {
	t.Parallel()

	persist := &memStore{}
	store := newTestStore(fixtureSource(), persist)
	ctx := context.Background()
	due := models.NewDate(2024, time.June, 15)

	store.Generate(ctx, windowStart, windowEnd)
	store.MarkChecked("A1", due)

	persist.failure = errors.New("drive unavailable")
	if err := store.Save(ctx); err == nil {
		t.Fatal("expected save failure")
	}
	if !store.Dirty() {
		t.Error("failed save must leave the dirty flag set")
	}
	if len(store.Tasks()) == 0 {
		t.Error("failed save must leave in-memory state intact")
	}

	// The next explicit save is the retry.
	persist.failure = nil
	if err := store.Save(ctx); err != nil {
		t.Fatalf("retry Save() error = %v", err)
	}
	if store.Dirty() {
		t.Error("retry save should clear the dirty flag")
	}
}

func TestStore_LoadMissingDocumentStartsEmpty(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() with no document should not error, got %v", err)
	}
	if len(store.Tasks()) != 0 {
		t.Error("expected empty list")
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	persist := &memStore{}
	store := newTestStore(fixtureSource(), persist)
	ctx := context.Background()

	store.Generate(ctx, windowStart, windowEnd)
	store.UpdateNote("A1", "round trip", models.NewDate(2024, time.June, 15))
	if err := store.Save(ctx); err != nil {
		t.Fatal(err)
	}

	reloaded := newTestStore(fixtureSource(), persist)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Tasks()) != len(store.Tasks()) {
		t.Fatalf("reloaded %d tasks, want %d", len(reloaded.Tasks()), len(store.Tasks()))
	}
	for _, task := range reloaded.Tasks() {
		if task.ApCode == "A1" && task.Note != "round trip" {
			t.Errorf("note = %q after reload", task.Note)
		}
	}
}

func TestStore_RefreshContext(t *testing.T) {
	t.Parallel()

	src := fixtureSource()
	store := newTestStore(src, &memStore{})
	ctx := context.Background()

	store.Generate(ctx, windowStart, windowEnd)

	// New transaction and reading appear in the source afterwards.
	src.SetTable(sheets.TableMoney,
		[]string{"APARTMENT CODE", "SUBMISSION DATE", "TYPE OF MONEY TASK", "SPECIFIC MONEY TASK"},
		[][]string{
			{"A1", "18/06/2024", "CHECK-IN", ""},
		})
	src.SetTable(sheets.TableUtility,
		[]string{"Apartment Code", "Date of Reading"},
		[][]string{
			{"A1", "17/06/2024"},
		})

	if err := store.RefreshContext(ctx); err != nil {
		t.Fatalf("RefreshContext() error = %v", err)
	}

	for _, task := range store.Tasks() {
		if task.ApCode != "A1" {
			continue
		}
		if !task.LastTransactionDate.Equal(models.NewDate(2024, time.June, 18)) {
			t.Errorf("last_transaction_date = %v, want refreshed 2024-06-18", task.LastTransactionDate)
		}
		if task.LastTransactionType != "CHECK-IN" {
			t.Errorf("last_transaction_type = %q", task.LastTransactionType)
		}
		if !task.LastUTReadingDate.Equal(models.NewDate(2024, time.June, 17)) {
			t.Errorf("last_ut_reading_date = %v, want refreshed 2024-06-17", task.LastUTReadingDate)
		}
		// Status and reason stay untouched by a context refresh.
		if task.Status != models.TaskStatusUnpaid {
			t.Errorf("status = %q, context refresh must not rederive", task.Status)
		}
		return
	}
	t.Fatal("A1 task missing")
}

func TestStore_ActionItems(t *testing.T) {
	t.Parallel()

	store := newTestStore(fixtureSource(), &memStore{})
	store.Generate(context.Background(), windowStart, windowEnd)

	items := store.ActionItems("ana", 5)
	if len(items) != 1 {
		t.Fatalf("got %d action items for ana, want 1", len(items))
	}
	if items[0].ApCode != "A1" {
		t.Errorf("action item = %s, want A1", items[0].ApCode)
	}

	// Completed tasks drop out.
	due := models.NewDate(2024, time.June, 15)
	for _, name := range models.CheckboxNames {
		if err := store.UpdateCheckbox("A1", name, true, due); err != nil {
			t.Fatal(err)
		}
	}
	if items := store.ActionItems("ana", 5); len(items) != 0 {
		t.Errorf("completed task still listed as action item: %d", len(items))
	}
}
