package article

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"club-api/internal/core/apperr"
	"club-api/internal/core/storage"
	"club-api/internal/domain"
	"club-api/internal/repo"
	"club-api/pkg/utils"
)

// 封面上限
const maxCoverBytes = 5 << 20

type Service struct {
	DB    *gorm.DB
	Ref   *repo.Reference
	Store storage.ObjectStore
	Log   *zap.Logger
}

func NewService(db *gorm.DB, ref *repo.Reference, store storage.ObjectStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{DB: db, Ref: ref, Store: store, Log: log}
}

type CreateInput struct {
	Title      string         `json:"title" binding:"required,max=128"`
	Content    domain.JSONDoc `json:"content" binding:"required"`
	Status     string         `json:"status" binding:"omitempty,oneof=draft published archived"`
	Categories []uint         `json:"categories" binding:"required,min=1"`
}

// UpdateInput 分类必须给全
type UpdateInput struct {
	Title      *string        `json:"title" binding:"omitempty,min=1,max=128"`
	Content    domain.JSONDoc `json:"content"`
	Status     *string        `json:"status" binding:"omitempty,oneof=draft published archived"`
	Categories []uint         `json:"categories" binding:"required,min=1"`
}

type Filter struct {
	Status   string `form:"status"`
	Category uint   `form:"categoryId"`
	Q        string `form:"q"`
}

type catLink struct {
	ArticleID  uint `gorm:"primaryKey;autoIncrement:false"`
	CategoryID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (catLink) TableName() string { return "article_categories" }

func (s *Service) categories(ids []uint) ([]uint, error) {
	out := make([]uint, 0, len(ids))
	seen := map[uint]bool{}
	for _, id := range ids {
		if _, ok := s.Ref.Category(id); !ok {
			return nil, apperr.Validation(fmt.Sprintf("category %d is invalid", id))
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, apperr.Validation("at least one category is required")
	}
	return out, nil
}

func setCategories(tx *gorm.DB, articleID uint, ids []uint) error {
	if err := tx.Where("article_id = ?", articleID).Delete(&catLink{}).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	rows := make([]catLink, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, catLink{ArticleID: articleID, CategoryID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// uniqueSlug 冲突时追加 -2、-3 …
func uniqueSlug(tx *gorm.DB, title string, exceptID uint) (string, error) {
	base := utils.Slugify(title)
	if base == "" {
		base = "article"
	}
	if len(base) > 150 {
		base = strings.TrimRight(base[:150], "-")
	}
	var taken []string
	err := tx.Model(&domain.Article{}).
		Where("(slug = ? OR slug LIKE ?) AND id <> ?", base, base+"-%", exceptID).
		Pluck("slug", &taken).Error
	if err != nil {
		return "", err
	}
	used := make(map[string]bool, len(taken))
	for _, t := range taken {
		used[t] = true
	}
	slug := base
	for i := 2; used[slug]; i++ {
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return slug, nil
}

func load(db *gorm.DB, id uint) (*domain.Article, error) {
	var a domain.Article
	err := db.Preload("Categories").Preload("Author").First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("article not found")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) Create(tx *gorm.DB, authorID uint, in CreateInput) (*domain.Article, error) {
	if in.Content.IsEmpty() {
		return nil, apperr.Validation("content is required")
	}
	cats, err := s.categories(in.Categories)
	if err != nil {
		return nil, err
	}
	slug, err := uniqueSlug(tx, in.Title, 0)
	if err != nil {
		return nil, err
	}
	a := &domain.Article{Title: strings.TrimSpace(in.Title), Slug: slug, Content: in.Content, Status: in.Status, UserAuthorID: &authorID}
	if a.Status == "" {
		a.Status = domain.ArticleDraft
	}
	if err := tx.Omit("Categories", "Author").Create(a).Error; err != nil {
		return nil, err
	}
	if err := setCategories(tx, a.ID, cats); err != nil {
		return nil, err
	}
	return load(tx, a.ID)
}

func (s *Service) Update(tx *gorm.DB, id uint, in UpdateInput) (*domain.Article, error) {
	a, err := load(tx, id)
	if err != nil {
		return nil, err
	}
	cats, err := s.categories(in.Categories)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Title != nil && strings.TrimSpace(*in.Title) != a.Title {
		title := strings.TrimSpace(*in.Title)
		slug, err := uniqueSlug(tx, title, a.ID)
		if err != nil {
			return nil, err
		}
		fields["title"], fields["slug"] = title, slug
	}
	if len(in.Content) > 0 {
		if in.Content.IsEmpty() {
			return nil, apperr.Validation("content cannot be empty")
		}
		fields["content"] = in.Content
	}
	if in.Status != nil {
		fields["status"] = *in.Status
	}
	if len(fields) > 0 {
		if err := tx.Model(&domain.Article{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return nil, err
		}
	}
	if err := setCategories(tx, id, cats); err != nil {
		return nil, err
	}
	return load(tx, id)
}

// Delete 删库成功后再删封面对象
func (s *Service) Delete(ctx context.Context, id uint) error {
	var cover *string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := load(tx, id)
		if err != nil {
			return err
		}
		cover = a.CoverURL
		if err := setCategories(tx, id, nil); err != nil {
			return err
		}
		return tx.Delete(&domain.Article{}, id).Error
	})
	if err != nil {
		return err
	}
	s.dropObject(ctx, cover)
	return nil
}

func (s *Service) dropObject(ctx context.Context, url *string) {
	if url == nil || s.Store == nil {
		return
	}
	key, ok := s.Store.KeyOf(*url)
	if !ok {
		return
	}
	if err := s.Store.Delete(ctx, key); err != nil {
		s.Log.Warn("delete cover object failed", zap.String("key", key), zap.Error(err))
	}
}

func visible(q *gorm.DB, writer bool) *gorm.DB {
	if writer {
		return q
	}
	return q.Where("articles.status = ?", domain.ArticlePublished)
}

func list(q *gorm.DB) ([]domain.Article, error) {
	out := []domain.Article{}
	err := q.Preload("Categories").Preload("Author").
		Order("articles.created_at DESC, articles.id DESC").
		Find(&out).Error
	return out, err
}

// List 非作者角色只看已发布
func (s *Service) List(db *gorm.DB, f Filter, writer bool) ([]domain.Article, error) {
	q := visible(db.Model(&domain.Article{}), writer)
	if writer && f.Status != "" {
		if !domain.ValidArticleStatus(f.Status) {
			return nil, apperr.Validation("unknown status")
		}
		q = q.Where("articles.status = ?", f.Status)
	}
	if f.Category != 0 {
		q = q.Where("articles.id IN (?)", db.Model(&catLink{}).Select("article_id").Where("category_id = ?", f.Category))
	}
	if kw := strings.TrimSpace(f.Q); kw != "" {
		q = q.Where("LOWER(articles.title) LIKE ?", "%"+strings.ToLower(kw)+"%")
	}
	return list(q)
}

func (s *Service) Get(db *gorm.DB, id uint, writer bool) (*domain.Article, error) {
	a, err := load(db, id)
	if err != nil {
		return nil, err
	}
	if !writer && a.Status != domain.ArticlePublished {
		return nil, apperr.NotFound("article not found")
	}
	return a, nil
}

func (s *Service) ByCategories(db *gorm.DB, categoryIDs []uint, writer bool) ([]domain.Article, error) {
	if len(categoryIDs) == 0 {
		return []domain.Article{}, nil
	}
	sub := db.Model(&catLink{}).Select("article_id").Where("category_id IN ?", categoryIDs)
	return list(visible(db.Model(&domain.Article{}), writer).Where("articles.id IN (?)", sub))
}

// UploadCover 先传对象再写库；写库失败时删掉刚上传的对象
func (s *Service) UploadCover(ctx context.Context, id uint, filename, contentType string, size int64, r io.Reader) (*domain.Article, error) {
	if s.Store == nil {
		return nil, apperr.Unavailable("object storage is not configured")
	}
	if size > maxCoverBytes {
		return nil, apperr.Validation("cover image must be 5MB or smaller")
	}
	ct := storage.ContentType(contentType, filename)
	if !strings.HasPrefix(ct, "image/") {
		return nil, apperr.Validation("cover must be an image")
	}
	a, err := load(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	url, err := s.Store.Put(ctx, storage.ObjectKey("articles", id, filename), ct, io.LimitReader(r, maxCoverBytes))
	if err != nil {
		return nil, apperr.Internal("upload cover failed", err)
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Article{}).Where("id = ?", id).Update("cover_url", url).Error; err != nil {
		s.dropObject(ctx, &url)
		return nil, err
	}
	s.dropObject(ctx, a.CoverURL)
	return load(s.DB.WithContext(ctx), id)
}
