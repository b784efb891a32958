// Package library 记录生成过的故事和产物，供历史页面查询。
package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iabetor/aistory/internal/database"
	"github.com/iabetor/aistory/internal/logger"
)

// 故事类别
const (
	KindStory   = "story"
	KindPodcast = "podcast"
)

// 产物类别
const (
	ArtifactAudio   = "audio"
	ArtifactGallery = "gallery"
)

// Story 一篇生成的故事或播客文稿。
type Story struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Theme     string    `json:"theme"`
	Content   string    `json:"content"`
	WordCount int       `json:"wordCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Artifact 一个落盘的生成结果。
type Artifact struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Path      string    `json:"path"` // /output 下的 URL 路径
	Sections  int       `json:"sections"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store 基于 SQLite 的历史记录。
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore 创建存储。db 需已完成 Migrate。
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// SaveStory 保存一篇故事，ID 为空时自动生成。
func (s *Store) SaveStory(ctx context.Context, story *Story) error {
	if story.ID == "" {
		story.ID = uuid.NewString()
	}
	if story.Kind == "" {
		story.Kind = KindStory
	}
	story.WordCount = len([]rune(story.Content))
	if story.CreatedAt.IsZero() {
		story.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO stories (id, kind, theme, content, word_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		story.ID, story.Kind, story.Theme, story.Content, story.WordCount, story.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存故事失败: %w", err)
	}
	logger.Debugf("[library] 已保存%s: %s", story.Kind, story.Theme)
	return nil
}

// RecordArtifact 记录一个产物。
func (s *Store) RecordArtifact(ctx context.Context, a *Artifact) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts (id, kind, path, sections, failed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Kind, a.Path, a.Sections, a.Failed, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("记录产物失败: %w", err)
	}
	logger.Debugf("[library] 已记录产物: %s %s", a.Kind, a.Path)
	return nil
}

// ListStories 按时间倒序列出最近的故事。limit <= 0 时默认 50。
func (s *Store) ListStories(ctx context.Context, limit int) ([]Story, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, theme, content, word_count, created_at
		 FROM stories ORDER BY created_at DESC LIMIT ?`, orDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("查询故事失败: %w", err)
	}
	defer rows.Close()

	stories := []Story{}
	for rows.Next() {
		var st Story
		var createdAt sql.NullTime
		if err := rows.Scan(&st.ID, &st.Kind, &st.Theme, &st.Content, &st.WordCount, &createdAt); err != nil {
			return nil, fmt.Errorf("读取故事失败: %w", err)
		}
		if createdAt.Valid {
			st.CreatedAt = createdAt.Time
		}
		stories = append(stories, st)
	}
	return stories, rows.Err()
}

// ListArtifacts 按时间倒序列出产物，kind 为空时返回全部类别。
func (s *Store) ListArtifacts(ctx context.Context, kind string, limit int) ([]Artifact, error) {
	query := `SELECT id, kind, path, sections, failed, created_at FROM artifacts`
	var args []interface{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, orDefault(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询产物失败: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		var a Artifact
		var createdAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.Kind, &a.Path, &a.Sections, &a.Failed, &createdAt); err != nil {
			return nil, fmt.Errorf("读取产物失败: %w", err)
		}
		if createdAt.Valid {
			a.CreatedAt = createdAt.Time
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

func orDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
