package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"care-relay/internal/domain"
)

// ErrConversationStoreUnavailable indica que el store no esta
// configurado o no responde; el orquestador degrada en lugar de abortar.
var ErrConversationStoreUnavailable = errors.New("conversation store unavailable")

// ConversationStore guarda el log ordenado de mensajes por sesion.
// List siempre devuelve los mensajes del mas viejo al mas nuevo,
// sin importar el orden fisico de escritura.
type ConversationStore interface {
	Append(ctx context.Context, sessionID string, msg domain.Message) error
	List(ctx context.Context, sessionID string) ([]domain.Message, error)
	Len(ctx context.Context, sessionID string) (int64, error)
	Delete(ctx context.Context, sessionID string) error
}

type redisConversationStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisConversationStore crea el store sobre Redis. Cada sesion es
// una lista chat:<session_id> con LPUSH al escribir y reverse al leer.
// El TTL se renueva en cada append.
func NewRedisConversationStore(client *redis.Client, ttl time.Duration) ConversationStore {
	if client == nil {
		return NewDisabledConversationStore()
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &redisConversationStore{
		client: client,
		ttl:    ttl,
		prefix: "chat:",
	}
}

func (s *redisConversationStore) Append(ctx context.Context, sessionID string, msg domain.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := s.prefix + sessionID
	if err := s.client.LPush(ctx, key, payload).Err(); err != nil {
		return errors.Join(ErrConversationStoreUnavailable, err)
	}
	// Renovar la ventana de retencion de la conversacion completa.
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return errors.Join(ErrConversationStoreUnavailable, err)
	}
	return nil
}

func (s *redisConversationStore) List(ctx context.Context, sessionID string) ([]domain.Message, error) {
	raw, err := s.client.LRange(ctx, s.prefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, errors.Join(ErrConversationStoreUnavailable, err)
	}

	// LPUSH deja el mas nuevo primero; se recorre al reves para
	// devolver orden cronologico.
	messages := make([]domain.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg domain.Message
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *redisConversationStore) Len(ctx context.Context, sessionID string) (int64, error) {
	n, err := s.client.LLen(ctx, s.prefix+sessionID).Result()
	if err != nil {
		return 0, errors.Join(ErrConversationStoreUnavailable, err)
	}
	return n, nil
}

func (s *redisConversationStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.prefix+sessionID).Err(); err != nil {
		return errors.Join(ErrConversationStoreUnavailable, err)
	}
	return nil
}

type memoryConversationStore struct {
	mu   sync.Mutex
	logs map[string][]domain.Message
}

// NewMemoryConversationStore sirve para tests y corridas locales sin Redis.
func NewMemoryConversationStore() ConversationStore {
	return &memoryConversationStore{
		logs: make(map[string][]domain.Message),
	}
}

func (s *memoryConversationStore) Append(_ context.Context, sessionID string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[sessionID] = append(s.logs[sessionID], msg)
	return nil
}

func (s *memoryConversationStore) List(_ context.Context, sessionID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[sessionID]
	out := make([]domain.Message, len(log))
	copy(out, log)
	return out, nil
}

func (s *memoryConversationStore) Len(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.logs[sessionID])), nil
}

func (s *memoryConversationStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, sessionID)
	return nil
}

type disabledConversationStore struct{}

// NewDisabledConversationStore devuelve un store que falla siempre con
// ErrConversationStoreUnavailable. Evita chequeos de nil dispersos: la
// indisponibilidad es un estado tipado.
func NewDisabledConversationStore() ConversationStore {
	return disabledConversationStore{}
}

func (disabledConversationStore) Append(context.Context, string, domain.Message) error {
	return ErrConversationStoreUnavailable
}

func (disabledConversationStore) List(context.Context, string) ([]domain.Message, error) {
	return nil, ErrConversationStoreUnavailable
}

func (disabledConversationStore) Len(context.Context, string) (int64, error) {
	return 0, ErrConversationStoreUnavailable
}

func (disabledConversationStore) Delete(context.Context, string) error {
	return ErrConversationStoreUnavailable
}
