package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, found, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Set(ctx, "k", []byte("v1")))
	require.NoError(t, kv.Set(ctx, "k", []byte("v2")))

	value, found, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", string(value))

	require.NoError(t, SetJSON(ctx, kv, "rec", record{Name: "alpha", Count: 3}))

	var got record
	found, err = GetJSON(ctx, kv, "rec", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, record{Name: "alpha", Count: 3}, got)

	found, err = GetJSON(ctx, kv, "nope", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, found, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, kv.Delete(ctx, "never-set"))
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	defer kv.Close()

	exerciseKV(t, kv)
	assert.Equal(t, 1, kv.Size())
}

func TestMemoryKVCopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", buf))
	buf[0] = 'z'

	value, _, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(value))

	value[1] = 'z'
	again, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestGetJSONDecodeError(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "bad", []byte("{not json")))

	var got record
	found, err := GetJSON(ctx, kv, "bad", &got)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.False(t, found)

	_, err = GetJSON(ctx, kv, "missing", &got)
	assert.NotErrorIs(t, err, ErrCorrupt)
}

func TestSQLiteKV(t *testing.T) {
	kv, err := NewSQLiteKV(t.TempDir())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer kv.Close()

	exerciseKV(t, kv)
}

func TestSQLiteKVPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	kv, err := NewSQLiteKV(dir)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	require.NoError(t, kv.Set(ctx, "k", []byte("kept")))
	require.NoError(t, kv.Close())

	kv, err = NewSQLiteKV(dir)
	require.NoError(t, err)
	defer kv.Close()

	value, found, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "kept", string(value))
}

func TestNewRedisClientWithoutAddr(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.False(t, client.IsEnabled())
	assert.Error(t, client.HealthCheck(context.Background()))
	assert.Equal(t, map[string]interface{}{"enabled": false}, client.GetPoolStats())
	assert.NoError(t, client.Close())
}

func TestNew(t *testing.T) {
	disabled := &RedisClient{}

	tests := []struct {
		name    string
		driver  string
		wantErr bool
		want    string
	}{
		{name: "default", driver: "", want: "*storage.MemoryKV"},
		{name: "memory", driver: DriverMemory, want: "*storage.MemoryKV"},
		{name: "redis unavailable degrades", driver: DriverRedis, want: "*storage.MemoryKV"},
		{name: "unknown", driver: "etcd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := New(tt.driver, disabled, t.TempDir())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, typeName(kv))
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *MemoryKV:
		return "*storage.MemoryKV"
	case *RedisKV:
		return "*storage.RedisKV"
	case *SQLiteKV:
		return "*storage.SQLiteKV"
	default:
		return "unknown"
	}
}
