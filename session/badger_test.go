package session

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStorage_SaveLoadClear(t *testing.T) {
	storage, err := OpenBadgerStorage("", zerolog.Nop())
	require.NoError(t, err)
	defer storage.Close()

	ctx := context.Background()

	rec, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)

	want := Record{Token: "t1", User: []byte(`{"username":"alice","user_id":7}`)}
	require.NoError(t, storage.Save(ctx, want))

	rec, err = storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, rec)

	require.NoError(t, storage.Clear(ctx))
	require.NoError(t, storage.Clear(ctx))

	rec, err = storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}

func TestBadgerStorage_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	storage, err := OpenBadgerStorage(dir, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, storage.Save(ctx, Record{Token: "t1", User: []byte(`{"username":"alice","user_id":7}`)}))
	require.NoError(t, storage.Close())

	storage, err = OpenBadgerStorage(dir, zerolog.Nop())
	require.NoError(t, err)
	defer storage.Close()

	store := NewStore(nil, storage, zerolog.Nop())
	sess := store.LoadPersisted(ctx)
	require.NotNil(t, sess)
	assert.Equal(t, "t1", sess.Token)
	assert.Equal(t, User{ID: 7, Username: "alice"}, sess.User)
}

func TestBadgerStorage_LoginLogoutRoundTrip(t *testing.T) {
	storage, err := OpenBadgerStorage("", zerolog.Nop())
	require.NoError(t, err)
	defer storage.Close()

	store, _ := newTestStore(t, storage)
	ctx := context.Background()
	store.LoadPersisted(ctx)

	before, err := storage.Load(ctx)
	require.NoError(t, err)

	_, err = store.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	during, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", during.Token)

	require.NoError(t, store.Logout(ctx))

	after, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBadgerStorage_SharedDirectory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := OpenBadgerStorage(dir, zerolog.Nop())
	require.NoError(t, err)
	defer first.Close()

	second, err := OpenBadgerStorage(dir, zerolog.Nop())
	require.NoError(t, err, "a second process must be able to open the session")
	defer second.Close()

	want := Record{Token: "t1", User: []byte(`{"username":"alice","user_id":7}`)}
	require.NoError(t, first.Save(ctx, want))

	rec, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, rec)

	require.NoError(t, second.Clear(ctx))

	rec, err = first.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}

func TestBadgerStorage_WaitsForLock(t *testing.T) {
	dir := t.TempDir()

	held, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)

	released := make(chan struct{})
	go func() {
		defer close(released)
		time.Sleep(100 * time.Millisecond)
		assert.NoError(t, held.Close())
	}()

	storage, err := OpenBadgerStorage(dir, zerolog.Nop())
	require.NoError(t, err)

	rec, err := storage.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
	<-released
}

func TestBadgerStorage_LockedContextCancelled(t *testing.T) {
	dir := t.TempDir()

	held, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	defer held.Close()

	storage, err := OpenBadgerStorage(dir, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = storage.Save(ctx, Record{Token: "t1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
