// Package services holds the business logic. Every mutating call runs in one gorm transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dailychallenge/server/errs"
	"github.com/dailychallenge/server/storage"
	"github.com/dailychallenge/server/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID uint
	Admin  bool
}

// owns reports whether the actor may change a row owned by ownerID.
func (a Actor) owns(ownerID uint) bool {
	return a.Admin || (a.UserID != 0 && a.UserID == ownerID)
}

// PageRequest selects one page. Page is 1-based. Sort is "<field>[,asc|desc]".
type PageRequest struct {
	Page int
	Size int
	Sort string
}

func (p PageRequest) normalized() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	p.Sort = strings.TrimSpace(p.Sort)
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.Size
}

// Page is the JSON shape of every paginated response.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func newPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       items,
		Page:          req.Page,
		PageSize:      req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// sortOrder is a resolved ORDER BY with a tie breaker on id.
type sortOrder struct {
	column string
	desc   bool
	idDesc bool
}

// resolveSort maps the client's sort parameter onto a column from fields. Unknown fields yield def.
func resolveSort(raw string, fields map[string]string, def sortOrder) sortOrder {
	if raw == "" {
		return def
	}
	name, dir, _ := strings.Cut(raw, ",")
	column, ok := fields[strings.TrimSpace(name)]
	if !ok {
		return def
	}
	out := sortOrder{column: column, desc: true, idDesc: def.idDesc}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "asc":
		out.desc = false
	case "desc", "":
	default:
		return def
	}
	if column == "id" {
		out.idDesc = out.desc
	}
	return out
}

func (s sortOrder) apply(q *gorm.DB, table string) *gorm.DB {
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Table: table, Name: s.column}, Desc: s.desc})
	if s.column != "id" {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Table: table, Name: "id"}, Desc: s.idDesc})
	}
	return q
}

func (s sortOrder) String() string {
	dir := "asc"
	if s.desc {
		dir = "desc"
	}
	return s.column + "," + dir
}

// exists returns errs.NotFound(entity) when no row of model matches id.
func exists(tx *gorm.DB, model interface{}, entity string, id uint) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("check %s: %w", entity, err)
	}
	if n == 0 {
		return errs.NotFound(entity)
	}
	return nil
}

// first loads dst by id and translates gorm.ErrRecordNotFound.
func first(tx *gorm.DB, dst interface{}, entity string, id uint) error {
	err := tx.First(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(entity)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", entity, err)
	}
	return nil
}

// storeUploads writes every upload. On failure the files already written are removed.
func storeUploads(ctx context.Context, store storage.Store, ups []storage.Upload) ([]storage.Object, error) {
	objs := make([]storage.Object, 0, len(ups))
	for _, up := range ups {
		obj, err := store.Put(ctx, up)
		if err != nil {
			discard(ctx, store, objs)
			if errors.Is(err, storage.ErrTooLarge) {
				return nil, errs.Validation("images", fmt.Sprintf("%s is too large", up.Filename))
			}
			return nil, fmt.Errorf("store image: %w", err)
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// discard removes stored objects whose rows were never committed.
func discard(ctx context.Context, store storage.Store, objs []storage.Object) {
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		keys = append(keys, o.Key)
	}
	removeFiles(ctx, store, keys)
}

// removeFiles is best-effort: the rows are already gone, so failures are only logged.
func removeFiles(ctx context.Context, store storage.Store, keys []string) {
	for _, k := range keys {
		if err := store.Delete(context.WithoutCancel(ctx), k); err != nil {
			utils.Logger.Warn("remove stored image failed", zap.String("key", k), zap.Error(err))
		}
	}
}
