package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore 纯内存实现，供测试和本地运行使用
// 结构上与 Postgres 实现等价：同样的 append-only 语义和版本规则
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string][]Document // DocID → 按版本升序的全部版本
	lastTS time.Time
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]Document),
		now:  time.Now,
	}
}

// tick 生成严格递增的记录时间，保证同一进程内写入顺序可排序
// 调用方必须持有写锁
func (s *MemoryStore) tick() time.Time {
	t := s.now()
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Nanosecond)
	}
	s.lastTS = t
	return t
}

func (s *MemoryStore) Put(ctx context.Context, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.docs[doc.DocID]
	latest := int64(len(versions))

	if doc.Version == 0 && latest > 0 {
		return Document{}, ErrDocExists
	}
	if doc.Version > 0 && doc.Version != latest {
		return Document{}, ErrVersionConflict
	}

	stored := Document{
		DocID:      doc.DocID,
		Version:    latest + 1,
		Kind:       doc.Kind,
		Body:       append(json.RawMessage(nil), doc.Body...),
		RecordedAt: s.tick(),
	}
	s.docs[doc.DocID] = append(versions, stored)
	return stored, nil
}

func (s *MemoryStore) GetLatest(ctx context.Context, docID string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.docs[docID]
	if len(versions) == 0 {
		return Document{}, ErrDocNotFound
	}
	return versions[len(versions)-1], nil
}

func (s *MemoryStore) GetAt(ctx context.Context, docID string, t time.Time) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.docs[docID]
	// 版本按时间升序，从后往前找第一个不晚于 t 的
	for i := len(versions) - 1; i >= 0; i-- {
		if !versions[i].RecordedAt.After(t) {
			return versions[i], nil
		}
	}
	return Document{}, ErrDocNotFound
}

func (s *MemoryStore) Query(ctx context.Context, kind string, match map[string]any, asOf time.Time) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, versions := range s.docs {
		// 每个 DocID 只取 asOf 之前的最新版本
		var pick *Document
		for i := len(versions) - 1; i >= 0; i-- {
			if !versions[i].RecordedAt.After(asOf) {
				pick = &versions[i]
				break
			}
		}
		if pick == nil || pick.Kind != kind {
			continue
		}
		ok, err := bodyMatches(pick.Body, match)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, *pick)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].Version < out[j].Version
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

// bodyMatches 判断 body 是否包含 match 中的全部键值
// 两边都走一遍 JSON 编码再比较字节，避免数值类型 (uint32 vs float64) 误判
func bodyMatches(body json.RawMessage, match map[string]any) (bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false, err
	}
	for k, want := range match {
		got, ok := fields[k]
		if !ok {
			return false, nil
		}
		wantJSON, err := json.Marshal(want)
		if err != nil {
			return false, err
		}
		if !bytes.Equal(bytes.TrimSpace(got), wantJSON) {
			return false, nil
		}
	}
	return true, nil
}
