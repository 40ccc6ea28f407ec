package chat

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/repo/postgres"
	"github.com/ojodaltonico/bot-moderador/internal/services/appeals"
	"github.com/ojodaltonico/bot-moderador/internal/services/identity"
	"github.com/ojodaltonico/bot-moderador/internal/services/strikes"
	"github.com/ojodaltonico/bot-moderador/internal/services/workflow"
)

// world is one in-memory backing store for every service the router touches.
type world struct {
	users      map[int64]*model.User
	moderators map[string]*model.Moderator
	messages   map[int64]*model.Message
	cases      map[int64]*model.Case
	sessions   map[string]appeals.Session
	actions    []strikes.ActionParams
	nextID     int64
}

func newWorld() *world {
	return &world{
		users:      map[int64]*model.User{},
		moderators: map[string]*model.Moderator{},
		messages:   map[int64]*model.Message{},
		cases:      map[int64]*model.Case{},
		sessions:   map[string]appeals.Session{},
	}
}

func (w *world) id() int64 { w.nextID++; return w.nextID }

// identity stores

func (w *world) GetOrCreateByPhone(_ context.Context, phoneNumber, name string) (model.User, error) {
	for _, u := range w.users {
		if u.Phone == phoneNumber {
			return *u, nil
		}
	}
	u := &model.User{ID: w.id(), Phone: phoneNumber, Name: name, Status: enums.UserStatusActive}
	w.users[u.ID] = u
	return *u, nil
}

func (w *world) FindActiveByHandle(_ context.Context, handles ...string) (model.Moderator, error) {
	for _, m := range w.moderators {
		if !m.Active {
			continue
		}
		for _, h := range handles {
			if h == "" {
				continue
			}
			if m.Phone == h || (m.SessionID != nil && *m.SessionID == h) {
				return *m, nil
			}
		}
	}
	return model.Moderator{}, faults.ErrNotFound
}

func (w *world) Upsert(_ context.Context, phoneNumber string) (model.Moderator, bool, error) {
	if m, ok := w.moderators[phoneNumber]; ok {
		m.Active = true
		return *m, false, nil
	}
	m := &model.Moderator{ID: w.id(), Phone: phoneNumber, Active: true}
	w.moderators[phoneNumber] = m
	return *m, true, nil
}

func (w *world) Deactivate(_ context.Context, phoneNumber string) error {
	m, ok := w.moderators[phoneNumber]
	if !ok || !m.Active {
		return faults.ErrNotFound
	}
	m.Active = false
	return nil
}

func (w *world) BindSession(_ context.Context, phoneNumber, sessionID string) (bool, error) {
	m, ok := w.moderators[phoneNumber]
	if !ok || !m.Active {
		return false, faults.ErrNotFound
	}
	if m.SessionID != nil {
		return false, nil
	}
	m.SessionID = &sessionID
	return true, nil
}

// message store

func (w *world) Create(_ context.Context, p postgres.CreateMessageParams) (model.Message, error) {
	m := &model.Message{
		ID: w.id(), UserID: p.UserID, ChatID: p.ChatID, IsGroup: p.IsGroup,
		Type: p.Type, Content: p.Content, MediaKey: p.MediaKey, PlatformKey: p.PlatformKey,
		CreatedAt: time.Now().UTC(),
	}
	w.messages[m.ID] = m
	return *m, nil
}

func (w *world) GetByID(_ context.Context, id int64) (model.Message, error) {
	m, ok := w.messages[id]
	if !ok {
		return model.Message{}, faults.ErrNotFound
	}
	return *m, nil
}

func (w *world) MarkDeleted(_ context.Context, id int64) error {
	m, ok := w.messages[id]
	if !ok {
		return faults.ErrNotFound
	}
	m.Deleted = true
	return nil
}

// caseWorld adapts the world to the case store interfaces; Create and GetByID
// collide with the message store's methods, so cases get their own receiver.
type caseWorld struct{ *world }

func (w caseWorld) Create(_ context.Context, p postgres.CreateCaseParams) (model.Case, error) {
	c := &model.Case{
		ID: w.id(), Type: p.Type, Status: enums.CaseStatusPending, Priority: p.Priority,
		MessageID: p.MessageID, Note: p.Note, CreatedAt: time.Now().UTC(),
	}
	w.cases[c.ID] = c
	return *c, nil
}

func (w caseWorld) GetByID(_ context.Context, id int64) (model.Case, error) {
	c, ok := w.cases[id]
	if !ok {
		return model.Case{}, faults.ErrNotFound
	}
	return *c, nil
}

func (w caseWorld) NextPending(_ context.Context) (model.Case, error) {
	var eligible []*model.Case
	for _, c := range w.cases {
		if c.Status != enums.CaseStatusPending {
			continue
		}
		if c.Type == enums.CaseTypeAppeal && c.Note == nil {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return model.Case{}, faults.ErrNotFound
	}
	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if (a.Type == enums.CaseTypeAppeal) != (b.Type == enums.CaseTypeAppeal) {
			return a.Type == enums.CaseTypeAppeal
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})
	return *eligible[0], nil
}

func (w caseWorld) Assign(_ context.Context, caseID int64, moderatorID string) (model.Case, error) {
	c, ok := w.cases[caseID]
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

func (w caseWorld) Resolve(_ context.Context, caseID int64, resolution, resolverID string, note *string) (model.Case, error) {
	c, ok := w.cases[caseID]
	if !ok {
		return model.Case{}, faults.ErrNotFound
	}
	now := time.Now().UTC()
	c.Status = enums.CaseStatusResolved
	c.Resolution = &resolution
	c.ResolvedBy = &resolverID
	c.ResolvedAt = &now
	if note != nil {
		c.Note = note
	}
	return *c, nil
}

func (w caseWorld) FindInReviewByModerator(_ context.Context, moderatorID string) (model.Case, error) {
	for _, c := range w.cases {
		if c.Status == enums.CaseStatusInReview && c.AssignedTo != nil && *c.AssignedTo == moderatorID {
			return *c, nil
		}
	}
	return model.Case{}, faults.ErrNotFound
}

func (w caseWorld) CountPending(_ context.Context) (int, error) {
	n := 0
	for _, c := range w.cases {
		if c.Status == enums.CaseStatusPending && !(c.Type == enums.CaseTypeAppeal && c.Note == nil) {
			n++
		}
	}
	return n, nil
}

func (w caseWorld) FindOpenAppealByUser(_ context.Context, userID int64) (model.Case, error) {
	for _, c := range w.cases {
		if c.Type != enums.CaseTypeAppeal || c.Status == enums.CaseStatusResolved {
			continue
		}
		if msg, ok := w.messages[c.MessageID]; ok && msg.UserID == userID {
			return *c, nil
		}
	}
	return model.Case{}, faults.ErrNotFound
}

func (w caseWorld) SetAppealText(_ context.Context, caseID int64, text string) (model.Case, error) {
	c, ok := w.cases[caseID]
	if !ok {
		return model.Case{}, faults.ErrNotFound
	}
	if c.Status != enums.CaseStatusPending || c.Note != nil {
		return model.Case{}, faults.ErrInvalidState
	}
	c.Note = &text
	return *c, nil
}

func (w caseWorld) ExpireStaleAppeals(_ context.Context, cutoff time.Time) ([]postgres.ExpiredAppeal, error) {
	var out []postgres.ExpiredAppeal
	for id, c := range w.cases {
		if c.Type != enums.CaseTypeAppeal || c.Status != enums.CaseStatusPending || c.Note != nil {
			continue
		}
		if c.CreatedAt.After(cutoff) {
			continue
		}
		resolution := enums.ResolutionExpired
		c.Status = enums.CaseStatusResolved
		c.Resolution = &resolution
		msg := w.messages[c.MessageID]
		user := w.users[msg.UserID]
		out = append(out, postgres.ExpiredAppeal{CaseID: id, UserID: user.ID, Phone: user.Phone})
	}
	return out, nil
}

// appeal session store

type sessionWorld struct{ *world }

func (w sessionWorld) Open(_ context.Context, phone string, s appeals.Session, _ time.Duration) error {
	if _, ok := w.sessions[phone]; ok {
		return faults.ErrConflict
	}
	w.sessions[phone] = s
	return nil
}

func (w sessionWorld) Get(_ context.Context, phone string) (appeals.Session, error) {
	s, ok := w.sessions[phone]
	if !ok {
		return appeals.Session{}, faults.ErrNotFound
	}
	return s, nil
}

func (w sessionWorld) Delete(_ context.Context, phone string) error {
	delete(w.sessions, phone)
	return nil
}

// strike ledger

func (w *world) WithinTx(_ context.Context, fn func(strikes.LedgerTx) error) error {
	return fn(w)
}

func (w *world) UserForUpdate(_ context.Context, userID int64) (model.User, error) {
	u, ok := w.users[userID]
	if !ok {
		return model.User{}, faults.ErrNotFound
	}
	return *u, nil
}

func (w *world) SetDiscipline(_ context.Context, userID int64, count int, status enums.UserStatus) error {
	u := w.users[userID]
	u.Strikes = count
	u.Status = status
	return nil
}

func (w *world) AppendAction(_ context.Context, p strikes.ActionParams) (model.UserAction, error) {
	w.actions = append(w.actions, p)
	return model.UserAction{ID: int64(len(w.actions)), UserID: p.UserID, CaseID: p.CaseID, Kind: p.Kind, Note: p.Note, ModeratorID: p.ModeratorID, CreatedAt: time.Now().UTC()}, nil
}

func (w *world) ListDisciplinaryByUser(_ context.Context, userID int64, limit int) ([]model.UserAction, error) {
	var out []model.UserAction
	for i := len(w.actions) - 1; i >= 0 && len(out) < limit; i-- {
		p := w.actions[i]
		if p.UserID == userID && p.Kind.Disciplinary() {
			out = append(out, model.UserAction{ID: int64(i + 1), UserID: p.UserID, Kind: p.Kind, CreatedAt: time.Now().UTC()})
		}
	}
	return out, nil
}

const adminPhone = "5491122334455"

func newRouter(w *world) *Service {
	ids := identity.NewService(w, w, adminPhone)
	ledger := strikes.NewService(w, 3)
	ap := appeals.NewService(sessionWorld{w}, caseWorld{w}, w, w, 5*time.Minute, 5)
	wf := workflow.NewService(caseWorld{w}, w, userWorld{w}, ledger, nil, workflow.Config{AssignRetries: 3, BanThreshold: 3})
	return NewService(ids, ap, wf, nil)
}

// userWorld exposes the user map under workflow's UserStore; the world's own
// GetByID belongs to messages.
type userWorld struct{ *world }

func (w userWorld) GetByID(_ context.Context, id int64) (model.User, error) {
	u, ok := w.users[id]
	if !ok {
		return model.User{}, faults.ErrNotFound
	}
	return *u, nil
}

func seedUserWithStrike(t *testing.T, w *world, phone string) *model.User {
	t.Helper()
	u, err := w.GetOrCreateByPhone(context.Background(), phone, "Ana")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	stored := w.users[u.ID]
	stored.Strikes = 1
	stored.Status = enums.UserStatusWarned
	return stored
}

func seedCase(w *world, userPhone string) *model.Case {
	u, _ := w.GetOrCreateByPhone(context.Background(), userPhone, "Ana")
	msg, _ := w.Create(context.Background(), postgres.CreateMessageParams{
		UserID: u.ID, ChatID: "grupo@g.us", IsGroup: true,
		Type: enums.MessageTypeText, Content: "vendo cosas", PlatformKey: "KEY",
	})
	c, _ := caseWorld{w}.Create(context.Background(), postgres.CreateCaseParams{
		Type: enums.CaseTypeInfringement, Priority: 1, MessageID: msg.ID,
	})
	return w.cases[c.ID]
}

func handle(t *testing.T, svc *Service, in Inbound) []model.Instruction {
	t.Helper()
	out, err := svc.HandleInbound(context.Background(), in)
	if err != nil {
		t.Fatalf("handle %q: %v", in.Text, err)
	}
	return out
}

func onlyReply(t *testing.T, out []model.Instruction) model.Instruction {
	t.Helper()
	if len(out) != 1 || out[0].Kind != enums.InstructionSendMessage {
		t.Fatalf("expected a single reply, got %+v", out)
	}
	return out[0]
}

func TestStrikesCommand(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)
	seedUserWithStrike(t, w, "91111111111")

	reply := onlyReply(t, handle(t, svc, Inbound{Phone: "91111111111", Text: "strikes"}))
	if !strings.Contains(reply.Text, "1 strike") {
		t.Fatalf("reply = %q", reply.Text)
	}
	if reply.To != "91111111111" {
		t.Fatalf("reply to %q", reply.To)
	}
}

func TestReplyPrefersPlatformIdentifier(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)

	reply := onlyReply(t, handle(t, svc, Inbound{Phone: "91111111111", ReplyTo: "1234567890@s.net", Text: "reglas"}))
	if reply.To != "1234567890@s.net" {
		t.Fatalf("reply to %q, want platform identifier", reply.To)
	}
}

func TestAdminManagesModerators(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)

	reply := onlyReply(t, handle(t, svc, Inbound{Phone: adminPhone, Text: "agregar mod 91155554444"}))
	if !strings.Contains(reply.Text, "alta") {
		t.Fatalf("reply = %q", reply.Text)
	}
	if _, ok := w.moderators["91155554444"]; !ok {
		t.Fatal("moderator not created")
	}

	reply = onlyReply(t, handle(t, svc, Inbound{Phone: adminPhone, Text: "quitar mod 91155554444"}))
	if !strings.Contains(reply.Text, "baja") {
		t.Fatalf("reply = %q", reply.Text)
	}
	if w.moderators["91155554444"].Active {
		t.Fatal("moderator still active")
	}
}

func TestNonAdminCannotManageModerators(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)

	reply := onlyReply(t, handle(t, svc, Inbound{Phone: "91111111111", Text: "agregar mod 91155554444"}))
	if _, ok := w.moderators["91155554444"]; ok {
		t.Fatal("non-admin created a moderator")
	}
	// The command falls through to the user menu.
	if !strings.Contains(reply.Text, "Comandos") {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestEstoyBindsSessionAndPresentsCase(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)
	if _, _, err := w.Upsert(context.Background(), "91155554444"); err != nil {
		t.Fatalf("seed moderator: %v", err)
	}
	seedCase(w, "91111111111")

	out := handle(t, svc, Inbound{Phone: "91155554444", SessionID: "9999999999999999999", Text: "estoy"})
	reply := onlyReply(t, out)
	if !strings.Contains(reply.Text, "Caso #") {
		t.Fatalf("reply = %q", reply.Text)
	}
	mod := w.moderators["91155554444"]
	if mod.SessionID == nil || *mod.SessionID != "9999999999999999999" {
		t.Fatalf("session not bound: %v", mod.SessionID)
	}
}

func TestEstoyOnEmptyQueue(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)
	if _, _, err := w.Upsert(context.Background(), "91155554444"); err != nil {
		t.Fatalf("seed moderator: %v", err)
	}

	reply := onlyReply(t, handle(t, svc, Inbound{Phone: "91155554444", Text: "estoy"}))
	if reply.Text != emptyQueueText {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestChatDecisionDeleteStrike(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)
	if _, _, err := w.Upsert(context.Background(), "91155554444"); err != nil {
		t.Fatalf("seed moderator: %v", err)
	}
	c := seedCase(w, "91111111111")

	handle(t, svc, Inbound{Phone: "91155554444", Text: "estoy"})
	out := handle(t, svc, Inbound{Phone: "91155554444", Text: "2"})

	if c.Status != enums.CaseStatusResolved {
		t.Fatalf("case status = %s", c.Status)
	}
	var sawDelete bool
	for _, ins := range out {
		if ins.Kind == enums.InstructionDeleteMessage && ins.MessageKey == "KEY" {
			sawDelete = true
		}
	}
	if !sawDelete {
		t.Fatalf("no delete instruction: %+v", out)
	}
	var target *model.User
	for _, u := range w.users {
		if u.Phone == "91111111111" {
			target = u
		}
	}
	if target.Strikes != 1 {
		t.Fatalf("strikes = %d", target.Strikes)
	}
}

func TestAppealFlowThroughChat(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)
	user := seedUserWithStrike(t, w, "91111111111")
	if _, _, err := w.Upsert(context.Background(), "91155554444"); err != nil {
		t.Fatalf("seed moderator: %v", err)
	}

	reply := onlyReply(t, handle(t, svc, Inbound{Phone: user.Phone, Text: "/apelar"}))
	if !strings.Contains(reply.Text, "Apelación abierta") {
		t.Fatalf("reply = %q", reply.Text)
	}
	if _, ok := w.sessions[user.Phone]; !ok {
		t.Fatal("no session opened")
	}

	reply = onlyReply(t, handle(t, svc, Inbound{Phone: user.Phone, Text: "fue un malentendido, no vendo nada"}))
	if reply.Text != appealReceivedText {
		t.Fatalf("reply = %q", reply.Text)
	}
	if _, ok := w.sessions[user.Phone]; ok {
		t.Fatal("session survived submission")
	}

	// The appeal is now at the head of the moderator queue.
	modReply := onlyReply(t, handle(t, svc, Inbound{Phone: "91155554444", Text: "estoy"}))
	if !strings.Contains(modReply.Text, "apelación") {
		t.Fatalf("moderator view = %q", modReply.Text)
	}

	// Accept it: the strike comes off.
	out := handle(t, svc, Inbound{Phone: "91155554444", Text: "1"})
	if len(out) == 0 {
		t.Fatal("no instructions from accept")
	}
	if w.users[user.ID].Strikes != 0 {
		t.Fatalf("strikes = %d after accepted appeal", w.users[user.ID].Strikes)
	}
}

func TestAppealTextThatLooksLikeCommand(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)
	user := seedUserWithStrike(t, w, "91111111111")

	handle(t, svc, Inbound{Phone: user.Phone, Text: "/apelar"})

	// An explanation that happens to be a command word is still the
	// explanation while the session waits for text.
	reply := onlyReply(t, handle(t, svc, Inbound{Phone: user.Phone, Text: "reglas"}))
	if reply.Text != appealReceivedText {
		t.Fatalf("reply = %q, want appeal confirmation", reply.Text)
	}
	if _, ok := w.sessions[user.Phone]; ok {
		t.Fatal("session survived submission")
	}

	var appeal *model.Case
	for _, c := range w.cases {
		if c.Type == enums.CaseTypeAppeal {
			appeal = c
		}
	}
	if appeal == nil || appeal.Note == nil || *appeal.Note != "reglas" {
		t.Fatalf("appeal text not captured: %+v", appeal)
	}
}

func TestApelarDuringOpenSessionReportsInFlight(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)
	user := seedUserWithStrike(t, w, "91111111111")

	handle(t, svc, Inbound{Phone: user.Phone, Text: "/apelar"})
	reply := onlyReply(t, handle(t, svc, Inbound{Phone: user.Phone, Text: "/apelar"}))
	if !strings.Contains(reply.Text, "en curso") {
		t.Fatalf("reply = %q", reply.Text)
	}
	if _, ok := w.sessions[user.Phone]; !ok {
		t.Fatal("open session was dropped")
	}
}

func TestApelarWithoutStrikes(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)

	reply := onlyReply(t, handle(t, svc, Inbound{Phone: "91111111111", Text: "/apelar"}))
	if !strings.Contains(reply.Text, "No tenés strikes") {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestFallbackMenusByRole(t *testing.T) {
	w := newWorld()
	svc := newRouter(w)
	if _, _, err := w.Upsert(context.Background(), "91155554444"); err != nil {
		t.Fatalf("seed moderator: %v", err)
	}

	userReply := onlyReply(t, handle(t, svc, Inbound{Phone: "91111111111", Text: "hola"}))
	if !strings.Contains(userReply.Text, "/apelar") {
		t.Fatalf("user menu = %q", userReply.Text)
	}

	modReply := onlyReply(t, handle(t, svc, Inbound{Phone: "91155554444", Text: "hola"}))
	if !strings.Contains(modReply.Text, "estoy") {
		t.Fatalf("moderator menu = %q", modReply.Text)
	}

	adminReply := onlyReply(t, handle(t, svc, Inbound{Phone: adminPhone, Text: "hola"}))
	if !strings.Contains(adminReply.Text, "agregar mod") {
		t.Fatalf("admin menu = %q", adminReply.Text)
	}
}
