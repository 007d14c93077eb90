package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/cognify/internal/logger"
)

// maxSummaries bounds the per-learner summary list.
const maxSummaries = 50

// redisClient is the subset of go-redis used by RedisStore.
type redisClient interface {
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...any) *goredis.IntCmd
	SMembers(ctx context.Context, key string) *goredis.StringSliceCmd
	SAdd(ctx context.Context, key string, members ...any) *goredis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *goredis.IntCmd
	LPush(ctx context.Context, key string, values ...any) *goredis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *goredis.StatusCmd
}

// RedisStore keeps memory in Redis: a profile hash, a weak-concept set and
// a capped list of summaries per learner. A concept joins the weak set
// after an incorrect low-CMS attempt and leaves it after a correct
// high-CMS one.
type RedisStore struct {
	rdb   redisClient
	close func() error
	log   *logger.Logger
}

// NewRedisStore connects to redisURL and pings it.
func NewRedisStore(log *logger.Logger, redisURL string) (*RedisStore, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	st := newRedisStore(log, rdb)
	st.close = rdb.Close
	return st, nil
}

func newRedisStore(log *logger.Logger, rdb redisClient) *RedisStore {
	return &RedisStore{rdb: rdb, log: logger.OrNop(log).With("client", "RedisMemory")}
}

// Close releases the connection pool.
func (r *RedisStore) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func profileKey(userID int64) string   { return fmt.Sprintf("cognify:learner:%d", userID) }
func weakKey(userID int64) string      { return fmt.Sprintf("cognify:learner:%d:weak", userID) }
func summariesKey(userID int64) string { return fmt.Sprintf("cognify:learner:%d:summaries", userID) }

func (r *RedisStore) GetState(ctx context.Context, userID int64) (State, error) {
	st := DefaultState()
	profile, err := r.rdb.HGetAll(ctx, profileKey(userID)).Result()
	if err != nil {
		return st, fmt.Errorf("redis profile: %w", err)
	}
	if v, ok := profile["slow_solver"]; ok {
		st.SlowSolver, _ = strconv.ParseBool(v)
	}
	if v := profile["hint_dependency"]; v != "" {
		st.HintDependency = v
	}
	weak, err := r.rdb.SMembers(ctx, weakKey(userID)).Result()
	if err != nil {
		return st, fmt.Errorf("redis weak concepts: %w", err)
	}
	sort.Strings(weak)
	st.WeakConcepts = weak
	return normalize(st), nil
}

type storedSummary struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	At       time.Time         `json:"at"`
}

func (r *RedisStore) WriteSummary(ctx context.Context, userID int64, text string, metadata map[string]string) error {
	raw, err := json.Marshal(storedSummary{Text: text, Metadata: metadata, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	key := summariesKey(userID)
	if err := r.rdb.LPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("redis push summary: %w", err)
	}
	if err := r.rdb.LTrim(ctx, key, 0, maxSummaries-1).Err(); err != nil {
		return fmt.Errorf("redis trim summaries: %w", err)
	}

	concept := metadata["concept"]
	if concept == "" {
		return nil
	}
	correct, _ := strconv.ParseBool(metadata["is_correct"])
	cms, _ := strconv.ParseFloat(metadata["cms"], 64)
	switch {
	case !correct && cms < 0.5:
		err = r.rdb.SAdd(ctx, weakKey(userID), concept).Err()
	case correct && cms >= 0.8:
		err = r.rdb.SRem(ctx, weakKey(userID), concept).Err()
	}
	if err != nil {
		return fmt.Errorf("redis weak concepts: %w", err)
	}
	return r.rdb.HSet(ctx, profileKey(userID), "updated_at", time.Now().UTC().Format(time.RFC3339)).Err()
}
