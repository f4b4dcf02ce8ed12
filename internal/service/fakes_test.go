package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/realtime"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
	"github.com/svarovsky7/GarantHUB-sub002/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder — общий журнал вызовов фейков для проверки порядка.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// fakeTx выполняет fn без БД и отмечает границы транзакции.
type fakeTx struct {
	rec *recorder
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.rec != nil {
		f.rec.add("tx:begin")
	}
	if err := fn(ctx); err != nil {
		if f.rec != nil {
			f.rec.add("tx:rollback")
		}
		return err
	}
	if f.rec != nil {
		f.rec.add("tx:commit")
	}
	return nil
}

// recordingStore — MemoryStore с журналом удаления и инъекцией ошибки.
type recordingStore struct {
	*storage.MemoryStore
	rec       *recorder
	removeErr error
	uploadErr error
}

func newRecordingStore(rec *recorder) *recordingStore {
	return &recordingStore{MemoryStore: storage.NewMemoryStore("attachments"), rec: rec}
}

func (s *recordingStore) Upload(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	return s.MemoryStore.Upload(ctx, key, contentType, r, size)
}

func (s *recordingStore) Remove(ctx context.Context, keys ...string) error {
	s.rec.add("store:remove(%d)", len(keys))
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.MemoryStore.Remove(ctx, keys...)
}

// fakeAttachments — репозиторий вложений в памяти.
type fakeAttachments struct {
	mu        sync.Mutex
	rec       *recorder
	nextID    int64
	items     map[int64]*model.Attachment
	owners    map[int64][2]any
	createErr error
}

func newFakeAttachments(rec *recorder) *fakeAttachments {
	return &fakeAttachments{rec: rec, items: map[int64]*model.Attachment{}, owners: map[int64][2]any{}}
}

func (f *fakeAttachments) Create(_ context.Context, a *model.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	a.ID = f.nextID
	a.UploadedAt = time.Now()
	cp := *a
	f.items[a.ID] = &cp
	return nil
}

func (f *fakeAttachments) Link(_ context.Context, parent model.AttachmentParent, parentID, attachmentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[attachmentID] = [2]any{parent, parentID}
	return nil
}

func (f *fakeAttachments) GetByID(_ context.Context, id int64) (*model.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttachments) ListByParent(_ context.Context, parent model.AttachmentParent, parentID int64) ([]*model.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rec != nil {
		f.rec.add("repo:list")
	}
	var out []*model.Attachment
	for id, o := range f.owners {
		if o[0] == parent && o[1] == parentID {
			cp := *f.items[id]
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.Attachment) int { return int(a.ID - b.ID) })
	return out, nil
}

func (f *fakeAttachments) ParentOf(_ context.Context, id int64) (model.AttachmentParent, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.owners[id]
	if !ok {
		return "", 0, repository.ErrNotFound
	}
	return o[0].(model.AttachmentParent), o[1].(int64), nil
}

func (f *fakeAttachments) DeleteByIDs(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rec != nil {
		f.rec.add("repo:deleteByIDs(%d)", len(ids))
	}
	for _, id := range ids {
		delete(f.items, id)
		delete(f.owners, id)
	}
	return nil
}

// fakeTickets — репозиторий замечаний в памяти.
type fakeTickets struct {
	rec   *recorder
	items map[int64]*model.Ticket
}

func (f *fakeTickets) Create(_ context.Context, t *model.Ticket) error {
	t.ID = int64(len(f.items) + 1)
	f.items[t.ID] = t
	return nil
}

func (f *fakeTickets) GetByID(_ context.Context, id int64) (*model.Ticket, error) {
	t, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTickets) List(context.Context, model.TicketFilter) ([]*model.Ticket, error) {
	var out []*model.Ticket
	for _, t := range f.items {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTickets) Update(_ context.Context, id int64, _ model.TicketPatch) (*model.Ticket, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakeTickets) Delete(_ context.Context, id int64) error {
	if f.rec != nil {
		f.rec.add("repo:deleteParent")
	}
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

// fakeUnits — репозиторий объектов со счётчиком запросов.
type fakeUnits struct {
	mu          sync.Mutex
	units       []*model.Unit
	annotations map[int64]model.UnitAnnotation
	listCalls   int
}

func (f *fakeUnits) Create(_ context.Context, u *model.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = int64(len(f.units) + 100)
	f.units = append(f.units, u)
	return nil
}

func (f *fakeUnits) GetByID(_ context.Context, id int64) (*model.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.units {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUnits) List(_ context.Context, flt model.UnitFilter) ([]*model.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []*model.Unit
	for _, u := range f.units {
		if u.ProjectID != flt.ProjectID {
			continue
		}
		if flt.Building != nil && (u.Building == nil || *u.Building != *flt.Building) {
			continue
		}
		if flt.Section != nil && (u.Section == nil || *u.Section != *flt.Section) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUnits) Update(ctx context.Context, id int64, _ model.UnitPatch) (*model.Unit, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeUnits) Delete(context.Context, int64) error { return nil }

func (f *fakeUnits) Buildings(context.Context, int64) ([]string, error) { return nil, nil }

func (f *fakeUnits) Annotations(_ context.Context, ids []int64) (map[int64]model.UnitAnnotation, error) {
	out := make(map[int64]model.UnitAnnotation)
	for _, id := range ids {
		if a, ok := f.annotations[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

// fakePersons — физлица в памяти.
type fakePersons struct {
	items []*model.Person
}

func (f *fakePersons) Create(_ context.Context, p *model.Person) error {
	p.ID = int64(len(f.items) + 1)
	f.items = append(f.items, p)
	return nil
}

func (f *fakePersons) GetByID(_ context.Context, id int64) (*model.Person, error) {
	for _, p := range f.items {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePersons) List(context.Context) ([]*model.Person, error) { return f.items, nil }

func (f *fakePersons) Update(ctx context.Context, id int64, patch model.PersonPatch) (*model.Person, error) {
	p, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.PassportSeries != nil {
		p.PassportSeries = patch.PassportSeries
	}
	if patch.PassportNumber != nil {
		p.PassportNumber = patch.PassportNumber
	}
	return p, nil
}

func (f *fakePersons) Delete(context.Context, int64) error { return nil }

func (f *fakePersons) FindByPassport(_ context.Context, series, number string, excludeID int64) (*model.Person, error) {
	for _, p := range f.items {
		if p.ID == excludeID || p.PassportSeries == nil || p.PassportNumber == nil {
			continue
		}
		if *p.PassportSeries == series && *p.PassportNumber == number {
			return p, nil
		}
	}
	return nil, nil
}

// fakeContractors — подрядчики в памяти.
type fakeContractors struct {
	items []*model.Contractor
}

func (f *fakeContractors) Create(_ context.Context, c *model.Contractor) error {
	c.ID = int64(len(f.items) + 1)
	f.items = append(f.items, c)
	return nil
}

func (f *fakeContractors) GetByID(_ context.Context, id int64) (*model.Contractor, error) {
	for _, c := range f.items {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeContractors) List(context.Context) ([]*model.Contractor, error) { return f.items, nil }

func (f *fakeContractors) Update(ctx context.Context, id int64, _ model.ContractorPatch) (*model.Contractor, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeContractors) Delete(context.Context, int64) error { return nil }

func (f *fakeContractors) FindByNameINN(_ context.Context, name, inn string, excludeID int64) (*model.Contractor, error) {
	for _, c := range f.items {
		if c.ID != excludeID && c.Name == name && c.INN == inn {
			return c, nil
		}
	}
	return nil, nil
}

// fakePreferences — настройки в памяти с проверкой версии.
type fakePreferences struct {
	items map[string]*model.Preference
}

func (f *fakePreferences) Get(_ context.Context, userID, key string) (*model.Preference, error) {
	p, ok := f.items[userID+"/"+key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePreferences) List(context.Context, string) ([]*model.Preference, error) { return nil, nil }

func (f *fakePreferences) Put(_ context.Context, userID, key string, value json.RawMessage, expected *int64) (*model.Preference, error) {
	k := userID + "/" + key
	cur, exists := f.items[k]
	switch {
	case expected == nil:
	case *expected == 0 && exists:
		return nil, fmt.Errorf("%w: занято", repository.ErrConflict)
	case *expected > 0 && (!exists || cur.Version != *expected):
		return nil, fmt.Errorf("%w: версия", repository.ErrConflict)
	}
	version := int64(1)
	if exists {
		version = cur.Version + 1
	}
	p := &model.Preference{UserID: userID, Key: key, Value: bytes.Clone(value), Version: version}
	f.items[k] = p
	cp := *p
	return &cp, nil
}

func (f *fakePreferences) Delete(_ context.Context, userID, key string) error {
	if _, ok := f.items[userID+"/"+key]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, userID+"/"+key)
	return nil
}

// fakePermissions — права ролей в памяти.
type fakePermissions struct {
	items map[string]*model.RolePermission
}

func (f *fakePermissions) Get(_ context.Context, role string) (*model.RolePermission, error) {
	p, ok := f.items[role]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakePermissions) List(context.Context) ([]*model.RolePermission, error) {
	var out []*model.RolePermission
	for _, p := range f.items {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePermissions) Upsert(_ context.Context, p *model.RolePermission) error {
	f.items[p.Role] = p
	return nil
}

// eventSink собирает опубликованные события.
type eventSink struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (s *eventSink) Publish(e realtime.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// memFile — содержимое для UploadFile.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func uploadFile(name, content string) model.UploadFile {
	return model.UploadFile{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadSeekCloser, error) {
			return memFile{bytes.NewReader([]byte(content))}, nil
		},
	}
}

// fakeDefects — дефекты в памяти, журнал изменений.
type fakeDefects struct {
	rec     *recorder
	items   map[int64]*model.Defect
	rows    []*model.DefectRow
	patches []model.DefectPatch
}

func (f *fakeDefects) Create(_ context.Context, d *model.Defect) error {
	d.ID = int64(len(f.items) + 1)
	f.items[d.ID] = d
	return nil
}

func (f *fakeDefects) GetByID(_ context.Context, id int64) (*model.Defect, error) {
	d, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDefects) Update(_ context.Context, id int64, patch model.DefectPatch) (*model.Defect, error) {
	d, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if f.rec != nil {
		f.rec.add("repo:updateDefect")
	}
	f.patches = append(f.patches, patch)
	if patch.FixedAt != nil {
		d.FixedAt = patch.FixedAt
	}
	if patch.FixedBy != nil {
		d.FixedBy = patch.FixedBy
	}
	if patch.BrigadeID != nil {
		d.BrigadeID, d.ContractorID = patch.BrigadeID, nil
	}
	if patch.ContractorID != nil {
		d.ContractorID, d.BrigadeID = patch.ContractorID, nil
	}
	if patch.StatusID != nil {
		d.StatusID = patch.StatusID
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDefects) Delete(_ context.Context, id int64) error {
	delete(f.items, id)
	return nil
}

func (f *fakeDefects) ListWithRelations(context.Context, []int64) ([]*model.DefectRow, error) {
	return f.rows, nil
}

// fakeClaims — реестр претензий для проверки отображения.
type fakeClaims struct {
	repository.ClaimRepository
	rows []*model.ClaimRow
}

func (f *fakeClaims) ListWithRelations(context.Context, []int64) ([]*model.ClaimRow, error) {
	return f.rows, nil
}

// fakeCourtCases — реестр судебных дел для проверки отображения.
type fakeCourtCases struct {
	repository.CourtCaseRepository
	rows []*model.CourtCaseRow
}

func (f *fakeCourtCases) ListWithRelations(context.Context, []int64) ([]*model.CourtCaseRow, error) {
	return f.rows, nil
}

// fakeProfiles — профили в памяти.
type fakeProfiles struct {
	repository.ProfileRepository
	items map[string]*model.Profile
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Ensure(_ context.Context, p *model.Profile) (*model.Profile, error) {
	if cur, ok := f.items[p.ID]; ok {
		return cur, nil
	}
	cp := *p
	f.items[p.ID] = &cp
	return &cp, nil
}

// fakeLetters — письма в памяти.
type fakeLetters struct {
	repository.LetterRepository
	items map[int64]*model.Letter
}

func (f *fakeLetters) Create(_ context.Context, l *model.Letter) error {
	l.ID = int64(len(f.items) + 1)
	f.items[l.ID] = l
	return nil
}

func (f *fakeLetters) GetByID(_ context.Context, id int64) (*model.Letter, error) {
	l, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return l, nil
}
