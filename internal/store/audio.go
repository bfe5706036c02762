package store

import (
	"context"
	errs "errors"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DaanHessen/glass-bridge/internal/narration"
)

// AudioClip is one cached synthesis result. Audio is zstd compressed.
type AudioClip struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CacheKey   string    `gorm:"uniqueIndex"`
	Text       string
	Voice      string
	Language   string
	Rate       float64
	Pitch      float64
	Audio      []byte
	RawSize    int
	CreatedAt  time.Time
	LastUsedAt time.Time
}

func (AudioClip) TableName() string { return "audio_clips" }

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

func compress(raw []byte) []byte { return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)) }

func decompress(packed []byte, size int) ([]byte, error) {
	out, err := decoder.DecodeAll(packed, make([]byte, 0, size))
	if err != nil {
		return nil, errors.Wrap(err, "decompress audio")
	}
	if len(out) != size {
		return nil, errors.Errorf("decompressed %d bytes, want %d", len(out), size)
	}
	return out, nil
}

// AudioCacheRepo persists synthesized narration. It implements
// narration.AudioCache.
type AudioCacheRepo struct{ db *DB }

func NewAudioCacheRepo(db *DB) *AudioCacheRepo { return &AudioCacheRepo{db: db} }

var _ narration.AudioCache = (*AudioCacheRepo)(nil)

// Get returns the audio for key and marks it used. Load and touch share a
// transaction so a concurrent prune cannot drop the clip in between.
func (r *AudioCacheRepo) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var clip AudioClip
	found := true
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		err := tx.Where("cache_key = ?", key).Take(&clip).Error
		if errs.Is(err, gorm.ErrRecordNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "load audio clip")
		}
		return errors.Wrap(tx.Model(&AudioClip{}).Where("id = ?", clip.ID).
			Update("last_used_at", time.Now().UTC()).Error, "touch audio clip")
	})
	if err != nil || !found {
		return nil, false, err
	}
	audio, err := decompress(clip.Audio, clip.RawSize)
	if err != nil {
		return nil, false, err
	}
	return audio, true, nil
}

// Put stores audio under key, replacing an existing clip.
func (r *AudioCacheRepo) Put(ctx context.Context, key, text string, voice narration.VoiceParams, audio []byte) error {
	v := voice.Normalize()
	now := time.Now().UTC()
	clip := AudioClip{
		ID:         uuid.New(),
		CacheKey:   key,
		Text:       text,
		Voice:      v.Voice,
		Language:   v.Language,
		Rate:       v.Rate,
		Pitch:      v.Pitch,
		Audio:      compress(audio),
		RawSize:    len(audio),
		CreatedAt:  now,
		LastUsedAt: now,
	}
	err := r.db.gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"audio", "raw_size", "last_used_at"}),
	}).Create(&clip).Error
	return errors.Wrap(err, "store audio clip")
}

// Prune deletes clips not used since before and reports how many went.
func (r *AudioCacheRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.gorm.WithContext(ctx).Where("last_used_at < ?", before).Delete(&AudioClip{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "prune audio clips")
	}
	return res.RowsAffected, nil
}
