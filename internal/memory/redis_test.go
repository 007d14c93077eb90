package memory

import (
	"context"
	"errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"
)

// fakeRedis implements redisClient over plain maps.
type fakeRedis struct {
	hashes map[string]map[string]string
	sets   map[string]map[string]bool
	lists  map[string][]string
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		hashes: map[string]map[string]string{},
		sets:   map[string]map[string]bool{},
		lists:  map[string][]string{},
	}
}

func (f *fakeRedis) HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd {
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return goredis.NewMapStringStringResult(out, f.err)
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values ...any) *goredis.IntCmd {
	h := f.hashes[key]
	if h == nil {
		h = map[string]string{}
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1].(string)
	}
	return goredis.NewIntResult(int64(len(values)/2), f.err)
}

func (f *fakeRedis) SMembers(ctx context.Context, key string) *goredis.StringSliceCmd {
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return goredis.NewStringSliceResult(out, f.err)
}

func (f *fakeRedis) SAdd(ctx context.Context, key string, members ...any) *goredis.IntCmd {
	s := f.sets[key]
	if s == nil {
		s = map[string]bool{}
		f.sets[key] = s
	}
	for _, m := range members {
		s[m.(string)] = true
	}
	return goredis.NewIntResult(int64(len(members)), f.err)
}

func (f *fakeRedis) SRem(ctx context.Context, key string, members ...any) *goredis.IntCmd {
	for _, m := range members {
		delete(f.sets[key], m.(string))
	}
	return goredis.NewIntResult(int64(len(members)), f.err)
}

func (f *fakeRedis) LPush(ctx context.Context, key string, values ...any) *goredis.IntCmd {
	for _, v := range values {
		f.lists[key] = append([]string{string(v.([]byte))}, f.lists[key]...)
	}
	return goredis.NewIntResult(int64(len(f.lists[key])), f.err)
}

func (f *fakeRedis) LTrim(ctx context.Context, key string, start, stop int64) *goredis.StatusCmd {
	if l := f.lists[key]; int64(len(l)) > stop+1 {
		f.lists[key] = l[start : stop+1]
	}
	return goredis.NewStatusResult("OK", f.err)
}

func TestRedisStore_WeakConceptsFollowSummaries(t *testing.T) {
	rdb := newFakeRedis()
	s := newRedisStore(nil, rdb)
	ctx := context.Background()

	write := func(concept string, correct bool, cms float64) {
		t.Helper()
		sum := Summary{UserID: 3, Concept: concept, Difficulty: 2, IsCorrect: correct, CMS: cms}
		if err := s.WriteSummary(ctx, 3, sum.Text(), sum.Metadata()); err != nil {
			t.Fatal(err)
		}
	}
	write("vectors", false, 0.1)
	write("limits", false, 0.2)
	write("matrices", false, 0.7)

	st, err := s.GetState(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.WeakConcepts) != 2 || st.WeakConcepts[0] != "limits" || st.WeakConcepts[1] != "vectors" {
		t.Errorf("weak = %v, want [limits vectors]", st.WeakConcepts)
	}

	write("limits", true, 0.9)
	st, _ = s.GetState(ctx, 3)
	if len(st.WeakConcepts) != 1 || st.WeakConcepts[0] != "vectors" {
		t.Errorf("weak = %v, want [vectors]", st.WeakConcepts)
	}
	if len(rdb.lists[summariesKey(3)]) != 4 {
		t.Errorf("summaries = %d, want 4", len(rdb.lists[summariesKey(3)]))
	}
}

func TestRedisStore_CapsSummaries(t *testing.T) {
	rdb := newFakeRedis()
	s := newRedisStore(nil, rdb)
	for range maxSummaries + 5 {
		if err := s.WriteSummary(context.Background(), 1, "x", nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(rdb.lists[summariesKey(1)]); n != maxSummaries {
		t.Errorf("list length = %d, want %d", n, maxSummaries)
	}
}

func TestRedisStore_GetStateDefaultsAndErrors(t *testing.T) {
	rdb := newFakeRedis()
	s := newRedisStore(nil, rdb)
	st, err := s.GetState(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if st.HintDependency != "low" || st.WeakConcepts == nil {
		t.Errorf("state = %+v", st)
	}

	rdb.err = errors.New("connection refused")
	if _, err := s.GetState(context.Background(), 5); err == nil {
		t.Error("expected error")
	}
}
