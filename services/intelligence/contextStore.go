// File: services/intelligence/contextStore.go
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"harold/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	aiContextPrefix = "ai:ctx:"
	// Five exchanges.
	historyLimit = 10
)

// unlockScript deletes the lock only if it still carries our token.
const unlockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// renewScript extends the lock only if it still carries our token.
const renewScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("PEXPIRE", KEYS[1], ARGV[2]) else return 0 end`

type RedisContextStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	// lockTTL only bounds how long a crashed holder blocks the conversation;
	// a live holder renews it every lockTTL/3.
	lockTTL   time.Duration
	lockWait  time.Duration
	lockRetry time.Duration
	newToken  func() string
	newTicker func(time.Duration) (<-chan time.Time, func())
}

func systemTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func NewRedisContextStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisContextStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisContextStore{
		client:    client,
		ttl:       ttl,
		logger:    logger,
		lockTTL:   15 * time.Second,
		lockWait:  5 * time.Second,
		lockRetry: 50 * time.Millisecond,
		newToken:  uuid.NewString,
		newTicker: systemTicker,
	}
}

func stateKey(id string) string    { return aiContextPrefix + id + ":state" }
func entitiesKey(id string) string { return aiContextPrefix + id + ":entities" }
func historyKey(id string) string  { return aiContextPrefix + id + ":history" }
func lockKey(id string) string     { return aiContextPrefix + id + ":lock" }

func (s *RedisContextStore) LoadState(ctx context.Context, conversationID string) (*models.ConversationState, error) {
	data, err := s.client.Get(ctx, stateKey(conversationID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	var st models.ConversationState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		s.logger.Warn("Dropping corrupt conversation state",
			zap.String("conversationId", conversationID),
			zap.Error(err),
		)
		return nil, nil
	}
	return &st, nil
}

func (s *RedisContextStore) SaveState(ctx context.Context, conversationID string, state models.ConversationState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, stateKey(conversationID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *RedisContextStore) LoadEntities(ctx context.Context, conversationID string) (models.BookingEntities, error) {
	var e models.BookingEntities
	raw, err := s.client.HGetAll(ctx, entitiesKey(conversationID)).Result()
	if err != nil {
		return e, fmt.Errorf("load entities: %w", err)
	}

	var corrupt []string
	for key, value := range raw {
		f, ok := models.FieldByKey(key)
		if !ok {
			corrupt = append(corrupt, key)
			continue
		}
		if f != models.FieldRoomTypes {
			e.Set(f, value)
			continue
		}
		var types []string
		if err := json.Unmarshal([]byte(value), &types); err != nil {
			corrupt = append(corrupt, key)
			continue
		}
		e.SetRoomTypes(types)
	}

	if len(corrupt) > 0 {
		s.logger.Warn("Dropping corrupt entity fields",
			zap.String("conversationId", conversationID),
			zap.Strings("fields", corrupt),
		)
		if err := s.client.HDel(ctx, entitiesKey(conversationID), corrupt...).Err(); err != nil {
			s.logger.Warn("Failed to delete corrupt entity fields", zap.Error(err))
		}
	}
	return e, nil
}

// entityArgs flattens the present fields of e in declared order.
func entityArgs(e models.BookingEntities) ([]interface{}, error) {
	var args []interface{}
	for f := models.FieldCheckInDate; f <= models.FieldContactNumber; f++ {
		if f == models.FieldRoomTypes {
			types := models.NormalizeRoomTypes(e.RoomTypes)
			if len(types) == 0 {
				continue
			}
			b, err := json.Marshal(types)
			if err != nil {
				return nil, err
			}
			args = append(args, f.Key(), string(b))
			continue
		}
		if v := e.Value(f); v != "" {
			args = append(args, f.Key(), v)
		}
	}
	return args, nil
}

func (s *RedisContextStore) SaveEntities(ctx context.Context, conversationID string, e models.BookingEntities) error {
	args, err := entityArgs(e)
	if err != nil {
		return err
	}
	key := entitiesKey(conversationID)
	if len(args) == 0 {
		return s.client.Expire(ctx, key, s.ttl).Err()
	}
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, args...)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save entities: %w", err)
	}
	return nil
}

func (s *RedisContextStore) ClearEntityFields(ctx context.Context, conversationID string, fields ...models.Field) error {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key()
	}
	if err := s.client.HDel(ctx, entitiesKey(conversationID), keys...).Err(); err != nil {
		return fmt.Errorf("clear entity fields: %w", err)
	}
	return nil
}

func (s *RedisContextStore) Clear(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, stateKey(conversationID), entitiesKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}

func (s *RedisContextStore) AppendHistory(ctx context.Context, conversationID string, msgs ...models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		values = append(values, string(b))
	}
	key := historyKey(conversationID)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, -historyLimit, -1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *RedisContextStore) History(ctx context.Context, conversationID string) ([]models.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, historyKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	msgs := make([]models.ChatMessage, 0, len(raw))
	for _, r := range raw {
		var m models.ChatMessage
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisContextStore) Lock(ctx context.Context, conversationID string) (func(), error) {
	key := lockKey(conversationID)
	token := s.newToken()
	deadline := time.Now().Add(s.lockWait)

	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire conversation lock: %w", err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, ErrConversationBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.lockRetry):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.keepAlive(ctx, conversationID, key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			s.release(ctx, conversationID, key, token)
		})
	}, nil
}

// keepAlive extends the lock while the turn runs. It stops when the turn
// releases the lock or when the lock is no longer ours.
func (s *RedisContextStore) keepAlive(ctx context.Context, conversationID, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	tick, stopTicker := s.newTicker(s.lockTTL / 3)
	defer stopTicker()

	for {
		select {
		case <-stop:
			return
		case <-tick:
		}
		renewCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		n, err := s.client.Eval(renewCtx, renewScript, []string{key}, token, s.lockTTL.Milliseconds()).Int64()
		cancel()
		if err != nil {
			s.logger.Warn("Failed to renew conversation lock",
				zap.String("conversationId", conversationID),
				zap.Error(err),
			)
			continue
		}
		if n == 0 {
			s.logger.Warn("Conversation lock lost before the turn finished",
				zap.String("conversationId", conversationID),
			)
			return
		}
	}
}

func (s *RedisContextStore) release(ctx context.Context, conversationID, key, token string) {
	// The turn context may already be canceled; the lock must still go.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	err := s.client.Eval(releaseCtx, unlockScript, []string{key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("Failed to release conversation lock",
			zap.String("conversationId", conversationID),
			zap.Error(err),
		)
	}
}
