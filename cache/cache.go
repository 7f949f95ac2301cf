// Package cache implements the cache-aside tier in front of the pessoas
// store. One namespace holds two envelope shapes keyed by opaque strings:
// a record id maps to a single serialized view, a raw search term maps to
// a {"data":[...]} collection of raw rows. Reads fail open to the store,
// writes are detached and never fail the caller.
package cache

import (
	"context"
	"errors"
	"log"

	jsoniter "github.com/json-iterator/go"

	"pessoas/db"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	// ErrMiss signals an absent key. Store implementations must return it
	// instead of their client's own miss sentinel.
	ErrMiss = errors.New("cache: miss")
)

// Store is the underlying shared key value tier.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
}

// Cache is the sole read path into the cache tier and the write-back path
// after store queries.
type Cache struct {
	store Store
}

func New(store Store) *Cache {
	return &Cache{store: store}
}

// Value is what a lookup can yield: exactly one of Single or Many is set,
// depending on the envelope shape found under the key.
type Value struct {
	Single *db.PessoaView
	Many   []db.PessoaView
}

// envelope wraps a cached collection. Its data field doubles as the
// discriminant between the two shapes sharing the namespace.
type envelope struct {
	Data []db.Pessoa `json:"data"`
}

type envelopeProbe struct {
	Data jsoniter.RawMessage `json:"data"`
}

// Lookup returns the decoded value under key, or nil on a miss. Any store
// failure or undecodable payload is logged and treated as a miss so the
// caller falls open to the database.
func (c *Cache) Lookup(ctx context.Context, key string) *Value {
	raw, err := c.store.Get(ctx, key)

	if errors.Is(err, ErrMiss) {
		return nil
	}

	if err != nil {
		log.Printf("cache read %s failed: %v", key, err)
		return nil
	}

	return decode(key, raw)
}

func decode(key string, raw string) *Value {
	var probe envelopeProbe
	if err := json.UnmarshalFromString(raw, &probe); err != nil {
		log.Printf("cache entry %s undecodable: %v", key, err)
		return nil
	}

	if probe.Data != nil {
		var pessoas []db.Pessoa
		if err := json.Unmarshal(probe.Data, &pessoas); err != nil {
			log.Printf("cache entry %s undecodable: %v", key, err)
			return nil
		}

		views := make([]db.PessoaView, 0, len(pessoas))
		for _, pessoa := range pessoas {
			views = append(views, db.Serialize(pessoa))
		}
		return &Value{Many: views}
	}

	var pessoa db.Pessoa
	if err := json.UnmarshalFromString(raw, &pessoa); err != nil {
		log.Printf("cache entry %s undecodable: %v", key, err)
		return nil
	}

	view := db.Serialize(pessoa)
	return &Value{Single: &view}
}

// StorePessoa caches one record under key as its serialized view. The write
// is detached: it runs on its own goroutine under a background context and
// its failure is only logged.
func (c *Cache) StorePessoa(key string, pessoa db.Pessoa) {
	payload, err := json.Marshal(db.Serialize(pessoa))
	if err != nil {
		log.Printf("cache encode %s failed: %v", key, err)
		return
	}

	c.detach(key, payload)
}

// StorePessoas caches a result set under key as a collection envelope. The
// rows go in raw, without a codec pass; decoding applies it on the way out.
// Detached like StorePessoa.
func (c *Cache) StorePessoas(key string, pessoas []db.Pessoa) {
	payload, err := json.Marshal(envelope{Data: pessoas})
	if err != nil {
		log.Printf("cache encode %s failed: %v", key, err)
		return
	}

	c.detach(key, payload)
}

// detach runs under context.Background so a cancelled request cannot abort
// a write already on its way.
func (c *Cache) detach(key string, payload []byte) {
	go func() {
		if err := c.store.Set(context.Background(), key, string(payload)); err != nil {
			log.Printf("cache write %s failed: %v", key, err)
		}
	}()
}
