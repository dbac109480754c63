package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// documentRow 对应数据库表: documents
// (doc_id, version) 唯一索引既是查询入口，也是并发写入的最后防线
type documentRow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	DocID      string    `gorm:"uniqueIndex:idx_doc_version;type:varchar(128);not null"`
	Version    int64     `gorm:"uniqueIndex:idx_doc_version;not null"`
	Kind       string    `gorm:"index;type:varchar(32);not null"`
	Body       []byte    `gorm:"type:jsonb;not null"`
	RecordedAt time.Time `gorm:"index;not null"`
}

func (documentRow) TableName() string {
	return "documents"
}

// PostgresStore 基于 Postgres 的文档存储实现
// 只有 INSERT，没有 UPDATE/DELETE：历史版本全部保留
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("%w: migrate documents table: %v", ErrUnavailable, err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Put(ctx context.Context, doc Document) (Document, error) {
	var latest int64
	err := s.db.WithContext(ctx).Model(&documentRow{}).
		Where("doc_id = ?", doc.DocID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&latest).Error
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if doc.Version == 0 && latest > 0 {
		return Document{}, ErrDocExists
	}
	if doc.Version > 0 && doc.Version != latest {
		return Document{}, ErrVersionConflict
	}

	row := documentRow{
		DocID:      doc.DocID,
		Version:    latest + 1,
		Kind:       doc.Kind,
		Body:       doc.Body,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		// 并发写入者抢先提交了同一版本号，唯一索引会拦下来
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if doc.Version == 0 {
				return Document{}, ErrDocExists
			}
			return Document{}, ErrVersionConflict
		}
		return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rowToDocument(row), nil
}

func (s *PostgresStore) GetLatest(ctx context.Context, docID string) (Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("doc_id = ?", docID).
		Order("version DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, ErrDocNotFound
		}
		return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rowToDocument(row), nil
}

func (s *PostgresStore) GetAt(ctx context.Context, docID string, t time.Time) (Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("doc_id = ? AND recorded_at <= ?", docID, t).
		Order("version DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, ErrDocNotFound
		}
		return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rowToDocument(row), nil
}

func (s *PostgresStore) Query(ctx context.Context, kind string, match map[string]any, asOf time.Time) ([]Document, error) {
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// 子查询先把每个 DocID 限定到 asOf 之前的最新版本，再做 jsonb 包含匹配
	sub := s.db.Model(&documentRow{}).
		Select("doc_id, MAX(version) AS max_version").
		Where("kind = ? AND recorded_at <= ?", kind, asOf).
		Group("doc_id")

	var rows []documentRow
	err = s.db.WithContext(ctx).Model(&documentRow{}).
		Joins("JOIN (?) latest ON documents.doc_id = latest.doc_id AND documents.version = latest.max_version", sub).
		Where("documents.body @> ?", string(matchJSON)).
		Order("documents.recorded_at, documents.version").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToDocument(row))
	}
	return out, nil
}

func rowToDocument(row documentRow) Document {
	return Document{
		DocID:      row.DocID,
		Version:    row.Version,
		Kind:       row.Kind,
		Body:       json.RawMessage(row.Body),
		RecordedAt: row.RecordedAt,
	}
}
