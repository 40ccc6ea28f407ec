package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	identitysvc "github.com/ojodaltonico/bot-moderador/internal/services/identity"
	"github.com/ojodaltonico/bot-moderador/internal/services/strikes"
	workflowsvc "github.com/ojodaltonico/bot-moderador/internal/services/workflow"
	"github.com/ojodaltonico/bot-moderador/internal/transport/http/dto"
)

// casesBackend is an in-memory stand-in for the postgres repositories backing
// the workflow service. Wrapper types split the interfaces that would
// otherwise collide on method names.
type casesBackend struct {
	cases    map[int64]*model.Case
	messages map[int64]*model.Message
	users    map[int64]*model.User
	actions  []model.UserAction
}

func (b *casesBackend) GetByID(_ context.Context, caseID int64) (model.Case, error) {
	c, ok := b.cases[caseID]
	if !ok {
		return model.Case{}, faults.ErrNotFound
	}
	return *c, nil
}

func (b *casesBackend) NextPending(_ context.Context) (model.Case, error) {
	var best *model.Case
	for _, c := range b.cases {
		if c.Status != enums.CaseStatusPending {
			continue
		}
		if best == nil || c.Priority < best.Priority || (c.Priority == best.Priority && c.ID < best.ID) {
			best = c
		}
	}
	if best == nil {
		return model.Case{}, faults.ErrNotFound
	}
	return *best, nil
}

func (b *casesBackend) Assign(_ context.Context, caseID int64, moderatorID string) (model.Case, error) {
	c, ok := b.cases[caseID]
	if !ok {
		return model.Case{}, faults.ErrNotFound
	}
	if c.Status != enums.CaseStatusPending {
		return model.Case{}, faults.ErrConflict
	}
	c.Status = enums.CaseStatusInReview
	c.AssignedTo = &moderatorID
	return *c, nil
}

func (b *casesBackend) Resolve(_ context.Context, caseID int64, resolution, resolverID string, note *string) (model.Case, error) {
	c, ok := b.cases[caseID]
	if !ok {
		return model.Case{}, faults.ErrNotFound
	}
	if c.Status != enums.CaseStatusInReview {
		return model.Case{}, faults.ErrInvalidState
	}
	now := time.Now()
	c.Status = enums.CaseStatusResolved
	c.Resolution = &resolution
	c.ResolvedBy = &resolverID
	if note != nil {
		c.Note = note
	}
	c.ResolvedAt = &now
	return *c, nil
}

func (b *casesBackend) FindInReviewByModerator(_ context.Context, moderatorID string) (model.Case, error) {
	for _, c := range b.cases {
		if c.Status == enums.CaseStatusInReview && c.AssignedTo != nil && *c.AssignedTo == moderatorID {
			return *c, nil
		}
	}
	return model.Case{}, faults.ErrNotFound
}

func (b *casesBackend) CountPending(_ context.Context) (int, error) {
	n := 0
	for _, c := range b.cases {
		if c.Status == enums.CaseStatusPending {
			n++
		}
	}
	return n, nil
}

func (b *casesBackend) ListByCase(_ context.Context, caseID int64) ([]model.UserAction, error) {
	var out []model.UserAction
	for _, a := range b.actions {
		if a.CaseID != nil && *a.CaseID == caseID {
			out = append(out, a)
		}
	}
	return out, nil
}

type messageBackend struct{ *casesBackend }

func (b messageBackend) GetByID(_ context.Context, messageID int64) (model.Message, error) {
	m, ok := b.messages[messageID]
	if !ok {
		return model.Message{}, faults.ErrNotFound
	}
	return *m, nil
}

func (b messageBackend) MarkDeleted(_ context.Context, messageID int64) error {
	m, ok := b.messages[messageID]
	if !ok {
		return faults.ErrNotFound
	}
	m.Deleted = true
	return nil
}

type userBackend struct{ *casesBackend }

func (b userBackend) GetByID(_ context.Context, userID int64) (model.User, error) {
	u, ok := b.users[userID]
	if !ok {
		return model.User{}, faults.ErrNotFound
	}
	return *u, nil
}

func (b *casesBackend) WithinTx(_ context.Context, fn func(strikes.LedgerTx) error) error {
	return fn(ledgerBackend{b})
}

type ledgerBackend struct{ *casesBackend }

func (b ledgerBackend) UserForUpdate(_ context.Context, userID int64) (model.User, error) {
	u, ok := b.users[userID]
	if !ok {
		return model.User{}, faults.ErrNotFound
	}
	return *u, nil
}

func (b ledgerBackend) SetDiscipline(_ context.Context, userID int64, count int, status enums.UserStatus) error {
	u, ok := b.users[userID]
	if !ok {
		return faults.ErrNotFound
	}
	u.Strikes = count
	u.Status = status
	return nil
}

func (b ledgerBackend) AppendAction(_ context.Context, p strikes.ActionParams) (model.UserAction, error) {
	a := model.UserAction{
		ID:          int64(len(b.actions) + 1),
		UserID:      p.UserID,
		CaseID:      p.CaseID,
		Kind:        p.Kind,
		Note:        p.Note,
		ModeratorID: p.ModeratorID,
		CreatedAt:   time.Now(),
	}
	b.actions = append(b.actions, a)
	return a, nil
}

type fixedSigner struct{}

func (fixedSigner) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://media.test/" + key, nil
}

const modPhone = "91144443333"

func newCasesRouter(t *testing.T) (*chi.Mux, *casesBackend) {
	t.Helper()

	backend := &casesBackend{
		cases:    map[int64]*model.Case{},
		messages: map[int64]*model.Message{},
		users:    map[int64]*model.User{},
	}
	backend.users[1] = &model.User{ID: 1, Phone: "91155554444", Name: "Carla", Status: enums.UserStatusActive}
	backend.messages[10] = &model.Message{
		ID: 10, UserID: 1, ChatID: "grupo@g.us", IsGroup: true,
		Type: enums.MessageTypeText, Content: "vendo zapatillas", PlatformKey: "wamid.m10", Flagged: true,
	}
	backend.cases[100] = &model.Case{
		ID: 100, Type: enums.CaseTypeInfringement, Status: enums.CaseStatusPending,
		Priority: 1, MessageID: 10, CreatedAt: time.Now(),
	}

	mods := &stubModerators{byPhone: map[string]*model.Moderator{
		modPhone: {ID: 1, Phone: modPhone, Active: true},
	}}
	identity := identitysvc.NewService(mods, noopUsers{}, testAdminPhone)
	ledger := strikes.NewService(backend, 3)
	workflow := workflowsvc.NewService(backend, messageBackend{backend}, userBackend{backend}, ledger, fixedSigner{}, workflowsvc.Config{})

	handler := NewCasesHandler(workflow, identity, backend)
	router := chi.NewRouter()
	router.Post("/cases/next", handler.Next)
	router.Post("/cases/{id}/decision", handler.Decide)
	router.Get("/cases/{id}", handler.History)
	return router, backend
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestNextCaseClaimsForModerator(t *testing.T) {
	router, backend := newCasesRouter(t)

	rec := postJSON(t, router, "/cases/next", dto.NextCaseRequest{ModeratorID: modPhone})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var view dto.CaseViewResponse
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Case.ID != 100 || view.Case.Status != enums.CaseStatusInReview {
		t.Fatalf("case = %+v", view.Case)
	}
	if view.Message.Content != "vendo zapatillas" || view.User.Name != "Carla" {
		t.Fatalf("view = %+v", view)
	}
	if got := backend.cases[100].AssignedTo; got == nil || *got != modPhone {
		t.Fatalf("assigned_to = %v", got)
	}
}

func TestNextCaseRejectsUnknownCaller(t *testing.T) {
	router, _ := newCasesRouter(t)

	rec := postJSON(t, router, "/cases/next", dto.NextCaseRequest{ModeratorID: "91100000000"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestNextCaseEmptyQueue(t *testing.T) {
	router, backend := newCasesRouter(t)
	backend.cases = map[int64]*model.Case{}

	rec := postJSON(t, router, "/cases/next", dto.NextCaseRequest{ModeratorID: modPhone})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDecideDeleteStrike(t *testing.T) {
	router, backend := newCasesRouter(t)

	if rec := postJSON(t, router, "/cases/next", dto.NextCaseRequest{ModeratorID: modPhone}); rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d", rec.Code)
	}

	rec := postJSON(t, router, "/cases/100/decision", dto.DecisionRequest{ModeratorID: modPhone, Decision: "delete_strike"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var out dto.DecisionResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Strikes != 1 || out.UserStatus != "active" {
		t.Fatalf("strikes = %d, status = %s", out.Strikes, out.UserStatus)
	}
	if out.Case.Status != enums.CaseStatusResolved {
		t.Fatalf("case status = %s", out.Case.Status)
	}
	if !backend.messages[10].Deleted {
		t.Fatal("message not marked deleted")
	}
	if len(out.Instructions) == 0 || out.Instructions[0].Kind != enums.InstructionDeleteMessage {
		t.Fatalf("instructions = %+v", out.Instructions)
	}
}

func TestDecideUnknownDecision(t *testing.T) {
	router, _ := newCasesRouter(t)

	rec := postJSON(t, router, "/cases/100/decision", dto.DecisionRequest{ModeratorID: modPhone, Decision: "shrug"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDecideRequiresAssignment(t *testing.T) {
	router, _ := newCasesRouter(t)

	// Case 100 is still pending, nobody holds it.
	rec := postJSON(t, router, "/cases/100/decision", dto.DecisionRequest{ModeratorID: modPhone, Decision: "ignore"})
	if rec.Code == http.StatusOK {
		t.Fatal("decision on an unclaimed case succeeded")
	}
}

func TestCaseHistory(t *testing.T) {
	router, _ := newCasesRouter(t)

	if rec := postJSON(t, router, "/cases/next", dto.NextCaseRequest{ModeratorID: modPhone}); rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d", rec.Code)
	}
	if rec := postJSON(t, router, "/cases/100/decision", dto.DecisionRequest{ModeratorID: modPhone, Decision: "delete_strike"}); rec.Code != http.StatusOK {
		t.Fatalf("decide status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/cases/100", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var out dto.CaseHistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Case.ID != 100 || len(out.Actions) == 0 {
		t.Fatalf("history = %+v", out)
	}
	if out.Actions[0].Kind != enums.ActionStrike {
		t.Fatalf("action kind = %s", out.Actions[0].Kind)
	}
}
