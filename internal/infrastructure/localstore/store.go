// Package localstore implementa la persistencia local de la terminal sobre SQLite.
//
// Cada colección (productos, ventas, carrito, cola de sincronización, estado de la app)
// se guarda como un único documento JSON bajo una clave con espacio de nombres,
// p. ej. "nordia-products". Todas las escrituras son lectura-modificación-escritura
// de la colección completa, serializadas por un mutex del proceso.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Collection nombre lógico de una colección persistida.
type Collection string

const (
	CollectionProducts   Collection = "products"
	CollectionSales      Collection = "sales"
	CollectionCart       Collection = "cart"
	CollectionSyncQueue  Collection = "sync-queue"
	CollectionAppState   Collection = "app-state"
	CollectionDeadLetter Collection = "sync-dead-letter"
)

// Collections todas las colecciones, en el orden en que se reportan en Stats.
func Collections() []Collection {
	return []Collection{
		CollectionProducts,
		CollectionSales,
		CollectionCart,
		CollectionSyncQueue,
		CollectionAppState,
		CollectionDeadLetter,
	}
}

// DefaultNamespace prefijo de claves compatible con los datos ya guardados por la terminal web.
const DefaultNamespace = "nordia"

const dbFileName = "nordia-pos.db"

// Options parámetros opcionales del store.
type Options struct {
	Namespace string
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Store persistencia local best-effort: las lecturas corruptas se registran y devuelven vacío.
type Store struct {
	db        *sql.DB
	namespace string
	log       zerolog.Logger
	now       func() time.Time
	mu        sync.Mutex
}

// Open abre (o crea) la base SQLite dentro de dataDir.
func Open(ctx context.Context, dataDir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("crear directorio de datos: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("abrir sqlite: %w", err)
	}
	// SQLite admite un solo escritor.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s, err := New(ctx, db, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New construye el store sobre una conexión ya abierta y crea el esquema si falta.
func New(ctx context.Context, db *sql.DB, opts Options) (*Store, error) {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return nil, fmt.Errorf("aplicar %q: %w", p, err)
		}
	}
	const schema = `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("crear esquema kv: %w", err)
	}
	return &Store{
		db:        db,
		namespace: opts.Namespace,
		log:       opts.Logger.With().Str("component", "localstore").Logger(),
		now:       opts.Now,
	}, nil
}

// Close cierra la base.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key devuelve la clave física de una colección.
func (s *Store) Key(c Collection) string {
	return s.namespace + "-" + string(c)
}

func (s *Store) getRaw(ctx context.Context, c Collection) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, s.Key(c)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("leer %s: %w", s.Key(c), err)
	}
	return value, true, nil
}

func (s *Store) setRaw(ctx context.Context, c Collection, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.Key(c), value, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("escribir %s: %w", s.Key(c), err)
	}
	return nil
}

func (s *Store) deleteRaw(ctx context.Context, c Collection) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, s.Key(c)); err != nil {
		return fmt.Errorf("borrar %s: %w", s.Key(c), err)
	}
	return nil
}

// load decodifica la colección en out. Si el JSON está corrupto lo registra y deja out en cero.
func (s *Store) load(ctx context.Context, c Collection, out any) error {
	raw, ok, err := s.getRaw(ctx, c)
	if err != nil || !ok {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Error().Err(err).Str("key", s.Key(c)).Msg("colección corrupta, se lee como vacía")
	}
	return nil
}

func (s *Store) save(ctx context.Context, c Collection, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("serializar %s: %w", s.Key(c), err)
	}
	return s.setRaw(ctx, c, string(data))
}

// loadList lee una colección de tipo arreglo; ante error devuelve vacío y lo registra.
func loadList[T any](ctx context.Context, s *Store, c Collection) []T {
	var list []T
	if err := s.load(ctx, c, &list); err != nil {
		s.log.Error().Err(err).Str("collection", string(c)).Msg("error leyendo colección")
		return []T{}
	}
	if list == nil {
		return []T{}
	}
	return list
}

// mutateList lectura-modificación-escritura de una colección completa bajo el mutex.
func mutateList[T any](ctx context.Context, s *Store, c Collection, fn func([]T) ([]T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []T
	if err := s.load(ctx, c, &list); err != nil {
		return err
	}
	next, err := fn(list)
	if err != nil {
		return err
	}
	if next == nil {
		next = []T{}
	}
	if err := s.save(ctx, c, next); err != nil {
		s.log.Error().Err(err).Str("collection", string(c)).Msg("error guardando colección")
		return err
	}
	return nil
}
