package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/services/appeals"
)

const appealSessionPrefix = "appeal_session:"

// AppealSessionRepo holds the explicit "awaiting appeal text" state, one
// session per phone, expired by redis TTL instead of being inferred from
// case-row timestamps.
type AppealSessionRepo struct {
	client *goredis.Client
}

func NewAppealSessionRepo(client *goredis.Client) *AppealSessionRepo {
	return &AppealSessionRepo{client: client}
}

func (r *AppealSessionRepo) Open(ctx context.Context, phone string, session appeals.Session, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	phone = strings.TrimSpace(phone)
	if phone == "" || session.CaseID <= 0 || ttl <= 0 {
		return fmt.Errorf("invalid appeal session payload")
	}

	key := sessionKey(phone)
	ok, err := r.client.SetNX(ctx, key, encodeSession(session), ttl).Result()
	if err != nil {
		return fmt.Errorf("open appeal session: %w", err)
	}
	if !ok {
		return faults.ErrConflict
	}
	return nil
}

func (r *AppealSessionRepo) Get(ctx context.Context, phone string) (appeals.Session, error) {
	if r.client == nil {
		return appeals.Session{}, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, sessionKey(strings.TrimSpace(phone))).Result()
	if err == goredis.Nil {
		return appeals.Session{}, faults.ErrNotFound
	}
	if err != nil {
		return appeals.Session{}, fmt.Errorf("get appeal session: %w", err)
	}

	session, err := decodeSession(raw)
	if err != nil {
		return appeals.Session{}, err
	}
	return session, nil
}

func (r *AppealSessionRepo) Delete(ctx context.Context, phone string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.client.Del(ctx, sessionKey(strings.TrimSpace(phone))).Err(); err != nil {
		return fmt.Errorf("delete appeal session: %w", err)
	}
	return nil
}

func sessionKey(phone string) string {
	return appealSessionPrefix + phone
}

func encodeSession(s appeals.Session) string {
	return strconv.FormatInt(s.CaseID, 10) + "|" + strconv.FormatInt(s.OpenedAt.Unix(), 10)
}

func decodeSession(raw string) (appeals.Session, error) {
	parts := strings.SplitN(raw, "|", 2)
	if len(parts) != 2 {
		return appeals.Session{}, fmt.Errorf("malformed appeal session value %q", raw)
	}
	caseID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return appeals.Session{}, fmt.Errorf("parse appeal session case id: %w", err)
	}
	openedAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return appeals.Session{}, fmt.Errorf("parse appeal session opened at: %w", err)
	}
	return appeals.Session{CaseID: caseID, OpenedAt: time.Unix(openedAt, 0).UTC()}, nil
}
