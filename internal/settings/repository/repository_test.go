package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/example/phone-mailer/internal/config"
)

func TestMemoryGetUpsert(t *testing.T) {
	ctx := context.Background()
	seed := map[string]map[string]string{"default": {"enabled": "1"}}
	m := NewMemory(seed)
	seed["default"]["enabled"] = "0"

	v, ok, err := m.Get(ctx, "default", "enabled")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v, "seed must be copied")

	_, ok, _ = m.Get(ctx, "store-2", "enabled")
	require.False(t, ok)

	require.NoError(t, m.Upsert(ctx, "store-2", "enabled", "0"))
	v, ok, _ = m.Get(ctx, "store-2", "enabled")
	require.True(t, ok)
	require.Equal(t, "0", v)
}

func TestFileLoadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := `scopes:
  default:
    enabled: true
    domain.mode: custom
    domain.custom: shop.example.com
    messaging.templates:
      welcome: "Hi {{customer_name}}"
  store-2:
    store.name: Second Store
    count: 3
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	f, err := OpenFile(path)
	require.NoError(t, err)

	ctx := context.Background()
	v, ok, _ := f.Get(ctx, "default", "enabled")
	require.True(t, ok)
	require.Equal(t, "true", v)

	v, _, _ = f.Get(ctx, "default", "messaging.templates")
	require.JSONEq(t, `{"welcome":"Hi {{customer_name}}"}`, v)

	v, _, _ = f.Get(ctx, "store-2", "count")
	require.Equal(t, "3", v)
}

func TestFileUpsertPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	f, err := OpenFile(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, f.Upsert(ctx, "default", "store.name", "Main Store"))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	v, ok, _ := reopened.Get(ctx, "default", "store.name")
	require.True(t, ok)
	require.Equal(t, "Main Store", v)
}

func TestFileRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scopes: [unterminated"), 0o600))

	_, err := OpenFile(path)
	require.Error(t, err)
}

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.value
	return nil
}

type fakeDB struct {
	row      fakeRow
	execSQL  []string
	execArgs [][]any
	execErr  error
}

func (d *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row { return d.row }

func (d *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execSQL = append(d.execSQL, sql)
	d.execArgs = append(d.execArgs, args)
	return pgconn.NewCommandTag("INSERT 0 1"), d.execErr
}

func TestPostgresGet(t *testing.T) {
	ctx := context.Background()

	v, ok, err := NewPostgres(&fakeDB{row: fakeRow{value: "custom"}}).Get(ctx, "default", "domain.mode")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "custom", v)

	_, ok, err = NewPostgres(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}}).Get(ctx, "default", "domain.mode")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = NewPostgres(&fakeDB{row: fakeRow{err: errors.New("conn reset")}}).Get(ctx, "default", "domain.mode")
	require.ErrorContains(t, err, "conn reset")
}

func TestPostgresUpsertAndMigrate(t *testing.T) {
	db := &fakeDB{}
	store := NewPostgres(db)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Upsert(context.Background(), "store-2", "store.name", "Second"))

	require.Len(t, db.execSQL, 2)
	require.Equal(t, Schema, db.execSQL[0])
	require.Equal(t, []any{"store-2", "store.name", "Second"}, db.execArgs[1])
}

type fakeRedis struct {
	hash map[string]map[string]string
	err  error
}

func (f *fakeRedis) HGet(_ context.Context, key, field string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.hash[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	if f.hash[key] == nil {
		f.hash[key] = map[string]string{}
	}
	f.hash[key][values[0].(string)] = values[1].(string)
	return redis.NewIntResult(1, nil)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	rc := &fakeRedis{hash: map[string]map[string]string{}}
	store := NewRedis(rc)

	_, ok, err := store.Get(ctx, "default", "enabled")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Upsert(ctx, "default", "enabled", "1"))
	require.Equal(t, "1", rc.hash["phonemailer:settings:default"]["enabled"])

	v, ok, err := store.Get(ctx, "default", "enabled")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	rc.err = errors.New("i/o timeout")
	_, _, err = store.Get(ctx, "default", "enabled")
	require.ErrorContains(t, err, "i/o timeout")
}

func TestOpenFileBackend(t *testing.T) {
	store, closeFn, err := Open(context.Background(), config.SettingsConfig{
		Backend: config.BackendFile,
		File:    filepath.Join(t.TempDir(), "missing.yaml"),
	})
	require.NoError(t, err)
	defer closeFn()
	_, ok, err := store.Get(context.Background(), "default", "enabled")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = Open(context.Background(), config.SettingsConfig{Backend: "etcd"})
	require.Error(t, err)
}
