package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Document 存储引擎中的一条不可变记录
// 每次写入都是追加新版本，旧版本永远保留（append-only）
type Document struct {
	DocID      string          // 业务文档 ID，例如 "account/123456/1029384756"
	Version    int64           // 版本号，按 DocID 从 1 递增
	Kind       string          // 文档类型，例如 "account" / "entry"
	Body       json.RawMessage // 文档内容 (JSON)
	RecordedAt time.Time       // 由存储引擎分配的记录时间
}

// 存储层错误，上层（ledger adapter）负责翻译成领域错误
var (
	ErrDocNotFound     = errors.New("docstore: document not found")
	ErrDocExists       = errors.New("docstore: document already exists")
	ErrVersionConflict = errors.New("docstore: version conflict")
	ErrUnavailable     = errors.New("docstore: store unavailable")
)

// Store 是核心对文档存储引擎的唯一依赖 (Port)
// 只要求四个能力：追加写入、取最新版本、取历史版本、按条件查询
type Store interface {
	// Put 追加一个新版本，绝不原地覆盖
	// doc.Version == 0 表示"首个版本"：文档已存在则返回 ErrDocExists
	// doc.Version > 0 表示 compare-and-append：当前最新版本不等于
	// doc.Version 则返回 ErrVersionConflict
	// 成功时返回落盘后的文档（带新版本号和 RecordedAt）
	Put(ctx context.Context, doc Document) (Document, error)

	// GetLatest 取某文档的最新版本，不存在返回 ErrDocNotFound
	GetLatest(ctx context.Context, docID string) (Document, error)

	// GetAt 取 t 时刻（含）之前的最新版本，point-in-time 查询
	GetAt(ctx context.Context, docID string, t time.Time) (Document, error)

	// Query 查询某类型下、body 包含全部 match 键值、且记录时间不晚于
	// asOf 的所有文档（每个 DocID 只取最新版本）
	// 结果按 RecordedAt 升序、同时刻按 Version 升序
	Query(ctx context.Context, kind string, match map[string]any, asOf time.Time) ([]Document, error)
}
