package store

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/DaanHessen/glass-bridge/internal/narration"
	"github.com/DaanHessen/glass-bridge/internal/util"
)

func TestCompressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("ID3 fake mp3 frame "), 200)
	packed := compress(raw)
	if len(packed) >= len(raw) {
		t.Fatalf("packed %d bytes from %d", len(packed), len(raw))
	}
	out, err := decompress(packed, len(raw))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatal("round trip changed the audio")
	}
	if _, err := decompress(packed, len(raw)+1); err == nil {
		t.Fatal("size mismatch should fail")
	}
}

func TestOpenWithoutDSN(t *testing.T) {
	if _, err := Open(context.Background(), util.Config{}); err != ErrNoDSN {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewMigrator(""); err != ErrNoDSN {
		t.Fatalf("err = %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 || len(entries)%2 != 0 {
		t.Fatalf("want up/down pairs, got %d files", len(entries))
	}
}

// Needs a disposable database: DATABASE_URL=postgres://... go test ./internal/store
func TestAudioCacheRepo(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	mig, err := NewMigrator(dsn)
	if err != nil {
		t.Fatal(err)
	}
	if err := mig.Up(ctx); err != nil && err != ErrNoChange {
		t.Fatalf("migrate: %v", err)
	}
	db, err := Open(ctx, util.Config{DSN: dsn})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewAudioCacheRepo(db)

	v := narration.DefaultVoiceParams()
	key := narration.CacheKey("test clip "+time.Now().String(), v)
	if _, ok, err := repo.Get(ctx, key); err != nil || ok {
		t.Fatalf("empty get: ok=%v err=%v", ok, err)
	}
	audio := []byte("some audio bytes")
	if err := repo.Put(ctx, key, "test clip", v, audio); err != nil {
		t.Fatal(err)
	}
	if err := repo.Put(ctx, key, "test clip", v, audio); err != nil {
		t.Fatalf("second put should upsert: %v", err)
	}
	got, ok, err := repo.Get(ctx, key)
	if err != nil || !ok || !bytes.Equal(got, audio) {
		t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
	}
	n, err := repo.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil || n < 1 {
		t.Fatalf("prune = %d %v", n, err)
	}
}
