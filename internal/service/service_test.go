package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/rbac"
	"github.com/svarovsky7/GarantHUB-sub002/internal/realtime"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
	"github.com/svarovsky7/GarantHUB-sub002/internal/storage"
)

type attachmentFixture struct {
	rec   *recorder
	repo  *fakeAttachments
	store *recordingStore
	svc   *AttachmentService
}

func newAttachmentFixture() *attachmentFixture {
	rec := &recorder{}
	f := &attachmentFixture{
		rec:   rec,
		repo:  newFakeAttachments(rec),
		store: newRecordingStore(rec),
	}
	f.svc = NewAttachmentService(f.repo, f.store, &fakeTx{rec: rec}, time.Hour, 1<<20, testLogger())
	f.svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return f
}

func TestAttachmentService_Upload(t *testing.T) {
	f := newAttachmentFixture()
	ctx := context.Background()

	atts, err := f.svc.Upload(ctx, model.ParentDefect, 7, "defects/5", []model.UploadFile{
		uploadFile("Фото №1.jpg", "aaa"),
		uploadFile("Фото №1.jpg", "bbb"),
	}, "user-1")
	require.NoError(t, err)
	require.Len(t, atts, 2)

	assert.Equal(t, "defects/5/1700000000000_foto_1.jpg", atts[0].StoragePath)
	assert.Equal(t, "defects/5/1700000000001_foto_1.jpg", atts[1].StoragePath, "ключи одного пакета различаются")
	assert.Equal(t, "image/jpeg", atts[0].MimeType)
	assert.Equal(t, "Фото №1.jpg", atts[0].OriginalName)
	require.NotNil(t, atts[0].UploadedBy)
	assert.Equal(t, "user-1", *atts[0].UploadedBy)

	assert.Equal(t, []string{atts[0].StoragePath, atts[1].StoragePath}, f.store.Keys())

	linked, err := f.repo.ListByParent(ctx, model.ParentDefect, 7)
	require.NoError(t, err)
	assert.Len(t, linked, 2)
}

func TestAttachmentService_UploadTooLarge(t *testing.T) {
	f := newAttachmentFixture()
	big := uploadFile("big.bin", strings.Repeat("x", 10))
	big.Size = 2 << 20

	_, err := f.svc.Upload(context.Background(), model.ParentTicket, 1, "tickets/1/0", []model.UploadFile{big}, "u")
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.store.Keys())
}

func TestAttachmentService_UploadRollbackRemovesObjects(t *testing.T) {
	f := newAttachmentFixture()
	f.repo.createErr = fmt.Errorf("%w: attachments_project_fkey", repository.ErrForeignKey)

	_, err := f.svc.Upload(context.Background(), model.ParentClaim, 3, "claims/1", []model.UploadFile{
		uploadFile("a.pdf", "1"),
		uploadFile("b.pdf", "2"),
	}, "u")
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.store.Keys(), "загруженные объекты удалены после ошибки записи")
}

func TestAttachmentService_UploadBucketMissing(t *testing.T) {
	f := newAttachmentFixture()
	f.store.uploadErr = fmt.Errorf("%w: attachments", storage.ErrBucketNotFound)

	_, err := f.svc.Upload(context.Background(), model.ParentLetter, 1, "letters/1", []model.UploadFile{
		uploadFile("a.pdf", "1"),
	}, "u")
	require.ErrorIs(t, err, ErrStorageMisconfigured)
	assert.Contains(t, err.Error(), "attachments")
}

func newTicketFixture(t *testing.T, attachments int) (*attachmentFixture, *fakeTickets, *TicketService) {
	t.Helper()
	f := newAttachmentFixture()
	tickets := &fakeTickets{rec: f.rec, items: map[int64]*model.Ticket{
		1: {ID: 1, ProjectID: 10, Title: "Протечка"},
	}}
	svc := NewTicketService(tickets, f.svc, cache.New(100, time.Minute), testLogger())

	files := make([]model.UploadFile, attachments)
	for i := range files {
		files[i] = uploadFile(fmt.Sprintf("file%d.pdf", i), "data")
	}
	if attachments > 0 {
		_, err := svc.Upload(context.Background(), nil, 1, files, "u")
		require.NoError(t, err)
	}
	f.rec.calls = nil
	return f, tickets, svc
}

func TestDelete_AttachmentsOrder(t *testing.T) {
	f, tickets, svc := newTicketFixture(t, 3)

	require.NoError(t, svc.Delete(context.Background(), nil, 1))

	assert.Equal(t, []string{
		"repo:list",
		"store:remove(3)",
		"tx:begin",
		"repo:deleteByIDs(3)",
		"repo:deleteParent",
		"tx:commit",
	}, f.rec.list())
	assert.Empty(t, f.store.Keys())
	assert.Empty(t, tickets.items)
}

func TestDelete_NoAttachments(t *testing.T) {
	f, _, svc := newTicketFixture(t, 0)

	require.NoError(t, svc.Delete(context.Background(), nil, 1))
	assert.Equal(t, []string{
		"repo:list",
		"tx:begin",
		"repo:deleteByIDs(0)",
		"repo:deleteParent",
		"tx:commit",
	}, f.rec.list(), "хранилище не вызывается без вложений")
}

func TestDelete_StorageMisconfigured(t *testing.T) {
	f, tickets, svc := newTicketFixture(t, 2)
	f.store.removeErr = fmt.Errorf("%w: garant-files", storage.ErrBucketNotFound)

	err := svc.Delete(context.Background(), nil, 1)
	require.ErrorIs(t, err, ErrStorageMisconfigured)
	assert.Contains(t, err.Error(), "garant-files")
	assert.Equal(t, []string{"repo:list", "store:remove(2)"}, f.rec.list(), "записи не удаляются")
	assert.Len(t, tickets.items, 1)
}

func TestDelete_OutOfScope(t *testing.T) {
	f, _, svc := newTicketFixture(t, 1)

	err := svc.Delete(context.Background(), Scope{99}, 1)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.rec.list())
}

func TestPartyService_Duplicates(t *testing.T) {
	persons := &fakePersons{}
	contractors := &fakeContractors{}
	svc := NewPartyService(persons, contractors, nil, cache.New(100, time.Minute), testLogger())
	ctx := context.Background()

	first, err := svc.CreatePerson(ctx, &model.Person{
		FullName: " Иванов Иван ", PassportSeries: ptr("4510"), PassportNumber: ptr("123456"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Иванов Иван", first.FullName)

	_, err = svc.CreatePerson(ctx, &model.Person{
		FullName: "Другой", PassportSeries: ptr("4510"), PassportNumber: ptr("123456"),
	})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "4510 123456")

	// без паспорта дубликаты не проверяются
	_, err = svc.CreatePerson(ctx, &model.Person{FullName: "Без паспорта"})
	require.NoError(t, err)

	second, err := svc.CreatePerson(ctx, &model.Person{
		FullName: "Петров", PassportSeries: ptr("4511"), PassportNumber: ptr("000001"),
	})
	require.NoError(t, err)
	_, err = svc.UpdatePerson(ctx, second.ID, model.PersonPatch{PassportSeries: ptr("4510"), PassportNumber: ptr("123456")})
	require.ErrorIs(t, err, ErrConflict, "изменение на занятый паспорт")

	_, err = svc.UpdatePerson(ctx, first.ID, model.PersonPatch{PassportNumber: ptr("123456")})
	require.NoError(t, err, "собственный паспорт не дубликат")

	_, err = svc.CreateContractor(ctx, &model.Contractor{Name: "ООО Ромашка", INN: "7701234567"})
	require.NoError(t, err)
	_, err = svc.CreateContractor(ctx, &model.Contractor{Name: "ООО Ромашка", INN: "7701234567"})
	require.ErrorIs(t, err, ErrConflict)
	_, err = svc.CreateContractor(ctx, &model.Contractor{Name: "ООО Ромашка", INN: "7709999999"})
	require.NoError(t, err, "другой ИНН")

	_, err = svc.CreateContractor(ctx, &model.Contractor{Name: "ООО", INN: " "})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUnitService_MatrixCachedAndAnnotated(t *testing.T) {
	b := ptr("1")
	floor := func(s string) *string { return &s }
	units := &fakeUnits{
		units: []*model.Unit{
			{ID: 1, ProjectID: 5, Building: b, Floor: floor("1"), Name: "2"},
			{ID: 2, ProjectID: 5, Building: b, Floor: floor("Цоколь"), Name: "1"},
			{ID: 3, ProjectID: 5, Building: b, Floor: floor("3"), Name: "10"},
			{ID: 4, ProjectID: 5, Building: b, Floor: floor("1"), Name: "1"},
			{ID: 5, ProjectID: 5, Building: b, Floor: floor("2"), Name: "5"},
		},
		annotations: map[int64]model.UnitAnnotation{
			3: {UnitID: 3, HasCourtCase: true},
		},
	}
	c := cache.New(100, time.Minute)
	svc := NewUnitService(units, c, testLogger())
	ctx := context.Background()

	m, err := svc.Matrix(ctx, nil, 5, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1", "Цоколь"}, m.Floors)
	require.Len(t, m.ByFloor["1"], 2)
	assert.Equal(t, "1", m.ByFloor["1"][0].Unit.Name)
	assert.True(t, m.ByFloor["3"][0].Annotation.HasCourtCase)

	_, err = svc.Matrix(ctx, nil, 5, b)
	require.NoError(t, err)
	assert.Equal(t, 1, units.listCalls, "повторный запрос из кэша")

	u, err := svc.AddUnit(ctx, nil, 5, b, nil, "1")
	require.NoError(t, err)
	assert.Equal(t, "3", u.Name)

	fl, err := svc.AddFloor(ctx, nil, 5, b, nil)
	require.NoError(t, err)
	require.NotNil(t, fl.Floor)
	assert.Equal(t, "4", *fl.Floor)
	assert.Equal(t, "11", fl.Name, "номер продолжает этаж ниже")

	m, err = svc.Matrix(ctx, nil, 5, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3", "2", "1", "Цоколь"}, m.Floors, "кэш сброшен после добавления")

	_, err = svc.Matrix(ctx, Scope{6}, 5, b)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPreferenceService(t *testing.T) {
	repo := &fakePreferences{items: map[string]*model.Preference{}}
	sink := &eventSink{}
	svc := NewPreferenceService(repo, sink, testLogger())
	ctx := context.Background()

	value := json.RawMessage(`{"projectId":5,"building":"1","section":null}`)
	p, err := svc.Put(ctx, "u1", KeyStructureSelection, value, ptr(int64(0)), "tab-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Version)

	require.Len(t, sink.events, 1)
	assert.Equal(t, realtime.Event{
		Table: realtime.TablePreferences, Op: "UPDATE", UserID: "u1",
		Key: KeyStructureSelection, Version: 1, Origin: "tab-a",
	}, sink.events[0])

	_, err = svc.Put(ctx, "u1", KeyStructureSelection, value, ptr(int64(0)), "tab-b")
	require.ErrorIs(t, err, ErrConflict, "создание поверх существующей")

	p, err = svc.Put(ctx, "u1", KeyStructureSelection, value, ptr(int64(1)), "tab-b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Version)

	_, err = svc.Put(ctx, "u1", KeyStructureSelection, value, ptr(int64(1)), "tab-a")
	require.ErrorIs(t, err, ErrConflict, "устаревшая версия")

	_, err = svc.Put(ctx, "u1", KeyStructureSelection, json.RawMessage(`{"project":1}`), nil, "")
	require.ErrorIs(t, err, ErrValidation, "неизвестное поле выбора")
	_, err = svc.Put(ctx, "u1", "bad key!", json.RawMessage(`1`), nil, "")
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Put(ctx, "u1", "theme", json.RawMessage(`{`), nil, "")
	require.ErrorIs(t, err, ErrValidation)

	// повреждённое значение заменяется значением по умолчанию
	repo.items["u1/"+KeyStructureSelection].Value = json.RawMessage(`"мусор"`)
	got, err := svc.Get(ctx, "u1", KeyStructureSelection)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(got.Value))
	assert.Equal(t, int64(2), got.Version)

	got, err = svc.Get(ctx, "u2", KeyStructureSelection)
	require.NoError(t, err, "известный ключ без значения")
	assert.JSONEq(t, `{}`, string(got.Value))
	assert.Equal(t, int64(0), got.Version)

	_, err = svc.Get(ctx, "u2", "theme")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPreferenceService_Shapes(t *testing.T) {
	repo := &fakePreferences{items: map[string]*model.Preference{}}
	svc := NewPreferenceService(repo, &eventSink{}, testLogger())
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value string
		valid bool
	}{
		{"скрыть закрытые — true", KeyClaimsHideClosed, `true`, true},
		{"скрыть закрытые — false", KeyDefectsHideClosed, `false`, true},
		{"скрыть закрытые — строка", KeyTicketsHideClosed, `"true"`, false},
		{"скрыть закрытые — null", KeyTicketsHideClosed, `null`, false},
		{"скрыть закрытые — объект", KeyClaimsHideClosed, `{"v":true}`, false},
		{"проект обращений — число", KeyTicketsProject, `12`, true},
		{"проект обращений — null", KeyTicketsProject, `null`, true},
		{"проект обращений — дробное", KeyTicketsProject, `1.5`, false},
		{"проект обращений — строка", KeyTicketsProject, `"12"`, false},
		{"произвольный ключ", "columnWidths.claims", `{"number":120}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Put(ctx, "u1", tt.key, json.RawMessage(tt.value), nil, "")
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrValidation)
			}
		})
	}

	defaults := map[string]string{
		KeyClaimsHideClosed:  `false`,
		KeyDefectsHideClosed: `false`,
		KeyTicketsHideClosed: `false`,
		KeyTicketsProject:    `null`,
	}
	for key, want := range defaults {
		p, err := svc.Get(ctx, "u2", key)
		require.NoError(t, err, key)
		assert.JSONEq(t, want, string(p.Value), key)
	}

	repo.items["u1/"+KeyClaimsHideClosed].Value = json.RawMessage(`"да"`)
	p, err := svc.Get(ctx, "u1", KeyClaimsHideClosed)
	require.NoError(t, err)
	assert.JSONEq(t, `false`, string(p.Value), "повреждённое значение заменяется значением по умолчанию")
}

func TestPermissionService_Fallback(t *testing.T) {
	repo := &fakePermissions{items: map[string]*model.RolePermission{
		rbac.RoleLawyer: {Role: rbac.RoleLawyer, Pages: []string{"claims"}},
	}}
	svc := NewPermissionService(repo, rbac.DefaultPermissions(), cache.New(100, time.Minute), testLogger())
	ctx := context.Background()

	p, err := svc.Get(ctx, "engineer")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEngineer, p.Role)
	assert.True(t, p.CanEdit(rbac.TableDefects), "права по умолчанию для роли без записи")

	p, err = svc.Get(ctx, rbac.RoleLawyer)
	require.NoError(t, err)
	assert.Equal(t, []string{"claims"}, p.Pages)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(rbac.Roles))

	_, err = svc.Get(ctx, "guest")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(ctx, &model.RolePermission{Role: "LAWYER", EditTables: []string{"nope"}})
	require.ErrorIs(t, err, ErrValidation)

	updated, err := svc.Update(ctx, &model.RolePermission{Role: "engineer", Pages: []string{"tickets"}})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEngineer, updated.Role)

	p, err = svc.Get(ctx, rbac.RoleEngineer)
	require.NoError(t, err)
	assert.Equal(t, []string{"tickets"}, p.Pages, "кэш прав сброшен после изменения")
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
		text string
	}{
		{"не найдено", repository.ErrNotFound, ErrNotFound, "претензия"},
		{"конфликт", fmt.Errorf("%w: претензия уже существует", repository.ErrConflict), ErrConflict, "претензия уже существует"},
		{"ссылка", fmt.Errorf("%w: claims_status_id_fkey", repository.ErrForeignKey), ErrValidation, "claims_status_id_fkey"},
		{"bucket", fmt.Errorf("%w: files", storage.ErrBucketNotFound), ErrStorageMisconfigured, "files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err, "претензия")
			require.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), tt.text)
		})
	}

	other := errors.New("сеть")
	assert.Same(t, other, translate(other, "x"), "прочие ошибки без изменений")
	assert.NoError(t, translate(nil, "x"))
	assert.ErrorIs(t, translateDelete(fmt.Errorf("%w: fk", repository.ErrForeignKey), "статус"), ErrConflict)
}

func TestScope(t *testing.T) {
	var all Scope
	assert.True(t, all.Allows(1))
	assert.Nil(t, all.Narrow(nil))
	assert.Equal(t, []int64{3}, all.Narrow([]int64{3}))

	s := Scope{1, 2}
	assert.True(t, s.Allows(2))
	assert.False(t, s.Allows(3))
	assert.True(t, s.AllowsPtr(nil))
	assert.False(t, s.Covers(nil), "запись без проекта видна только без ограничения")
	assert.True(t, all.Covers(nil))
	assert.True(t, s.Covers(ptr(int64(1))))
	assert.Equal(t, []int64{1, 2}, s.Narrow(nil))
	assert.Equal(t, []int64{2}, s.Narrow([]int64{2, 3}))
	assert.Equal(t, []int64{}, s.Narrow([]int64{3}))
}

func TestLetterService_ProjectlessLetters(t *testing.T) {
	repo := &fakeLetters{items: map[int64]*model.Letter{
		1: {ID: 1, Direction: model.LetterIncoming, Number: "1", Subject: "Без проекта"},
		2: {ID: 2, ProjectID: ptr(int64(5)), Direction: model.LetterOutgoing, Number: "2", Subject: "Проект 5"},
	}}
	svc := NewLetterService(repo, nil, newAttachmentFixture().svc, cache.New(100, time.Minute), testLogger())
	ctx := context.Background()

	_, err := svc.Get(ctx, nil, 1)
	require.NoError(t, err, "без ограничения письмо без проекта доступно")

	_, err = svc.Get(ctx, Scope{5}, 1)
	require.ErrorIs(t, err, ErrNotFound, "ограниченный пользователь не видит письмо без проекта")

	_, err = svc.Get(ctx, Scope{5}, 2)
	require.NoError(t, err)

	_, err = svc.Create(ctx, Scope{5}, &model.Letter{Direction: model.LetterIncoming, Number: "3", Subject: "x"}, "u")
	require.ErrorIs(t, err, ErrNotFound)

	l, err := svc.Create(ctx, Scope{5}, &model.Letter{ProjectID: ptr(int64(5)), Direction: model.LetterIncoming, Number: "3", Subject: "x"}, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(5), *l.ProjectID)
}
