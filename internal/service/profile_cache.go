package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"qrlink/internal/domain"
)

// ProfileCache guarda lecturas de cuentas por uuid de perfil.
//
// Cada Invalidate incrementa la generacion del uuid. Quien llena el cache
// toma la generacion antes de leer el store y Fill descarta la escritura si
// cambio en el medio; asi una lectura vieja nunca pisa una invalidacion.
type ProfileCache interface {
	Get(ctx context.Context, uuid string) (domain.Account, bool, error)
	Generation(ctx context.Context, uuid string) (int64, error)
	Fill(ctx context.Context, account domain.Account, generation int64) (bool, error)
	Invalidate(ctx context.Context, uuid string) error
}

type noopProfileCache struct{}

// NoopProfileCache se usa cuando no hay Redis configurado.
func NoopProfileCache() ProfileCache {
	return noopProfileCache{}
}

func (noopProfileCache) Get(context.Context, string) (domain.Account, bool, error) {
	return domain.Account{}, false, nil
}

func (noopProfileCache) Generation(context.Context, string) (int64, error) { return 0, nil }

func (noopProfileCache) Fill(context.Context, domain.Account, int64) (bool, error) {
	return false, nil
}

func (noopProfileCache) Invalidate(context.Context, string) error { return nil }

// KEYS[1]=entrada, KEYS[2]=generacion; ARGV[1]=generacion esperada,
// ARGV[2]=valor, ARGV[3]=ttl en ms.
const redisProfileFillScript = `
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

// KEYS[1]=entrada, KEYS[2]=generacion; ARGV[1]=ttl de la generacion en ms.
const redisProfileInvalidateScript = `
redis.call("INCR", KEYS[2])
redis.call("PEXPIRE", KEYS[2], ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`

// La generacion vive mucho mas que cualquier lectura en curso.
const generationTTL = 24 * time.Hour

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisProfileCache struct {
	client redisKV
	ttl    time.Duration
	prefix string
}

func NewRedisProfileCache(client *redis.Client, ttl time.Duration) ProfileCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisProfileCache{
		client: client,
		ttl:    ttl,
		prefix: "qr:profile:",
	}
}

func (c *redisProfileCache) entryKey(uuid string) string { return c.prefix + uuid }

func (c *redisProfileCache) generationKey(uuid string) string { return c.prefix + "gen:" + uuid }

func (c *redisProfileCache) Get(ctx context.Context, uuid string) (domain.Account, bool, error) {
	if strings.TrimSpace(uuid) == "" {
		return domain.Account{}, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	b, err := c.client.Get(ctx, c.entryKey(uuid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, err
	}
	var account domain.Account
	if err := json.Unmarshal(b, &account); err != nil {
		return domain.Account{}, false, err
	}
	return account, true, nil
}

func (c *redisProfileCache) Generation(ctx context.Context, uuid string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	gen, err := c.client.Get(ctx, c.generationKey(uuid)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *redisProfileCache) Fill(ctx context.Context, account domain.Account, generation int64) (bool, error) {
	uuid := account.Profile.UUID
	if strings.TrimSpace(uuid) == "" {
		return false, nil
	}
	b, err := json.Marshal(account)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	stored, err := c.client.Eval(ctx, redisProfileFillScript,
		[]string{c.entryKey(uuid), c.generationKey(uuid)},
		generation, string(b), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *redisProfileCache) Invalidate(ctx context.Context, uuid string) error {
	if strings.TrimSpace(uuid) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return c.client.Eval(ctx, redisProfileInvalidateScript,
		[]string{c.entryKey(uuid), c.generationKey(uuid)},
		generationTTL.Milliseconds(),
	).Err()
}
