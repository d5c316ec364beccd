// Package catalog manages the category taxonomy: categories and their
// subcategories.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/mundobebe/backoffice/auth"
	"github.com/mundobebe/backoffice/cache"
	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/logger"
	"github.com/mundobebe/backoffice/middleware"
	"github.com/mundobebe/backoffice/table"
)

var adminRoles = []core.Role{core.RoleSuperadmin, core.RoleAdmin}

// Service exposes the catalog actions. Every method runs through the
// action pipeline: errors, validation, auth, then the base action.
type Service struct {
	db    *core.DB
	cache *cache.Cache
	log   logger.Logger

	createCategory    core.Action
	updateCategory    core.Action
	deleteCategories  core.Action
	listCategories    core.Action
	countCategories   core.Action
	createSubcategory core.Action
	updateSubcategory core.Action
	deleteSubcategory core.Action
	listSubcategories core.Action
}

// Deps are the collaborators of a Service.
type Deps struct {
	DB       *core.DB
	Cache    *cache.Cache
	Sessions auth.SessionProvider
	Logger   logger.Logger
}

func NewService(deps Deps) *Service {
	l := deps.Logger
	if l == nil {
		l = logger.NewSilent()
	}
	s := &Service{db: deps.DB, cache: deps.Cache, log: l}

	errs := middleware.ErrorHandling(l)
	admin := middleware.RequireSessionOrFail(deps.Sessions, adminRoles...)
	s.createCategory = core.Compose(errs, middleware.Validation(createCategorySchema, "No se pudo crear la categoría"), admin)(core.Handle(s.doCreateCategory))
	s.updateCategory = core.Compose(errs, middleware.Validation(updateCategorySchema, "No se pudo actualizar la categoría"), admin)(core.Handle(s.doUpdateCategory))
	s.deleteCategories = core.Compose(errs, middleware.Validation(deleteSchema, "No se pudieron eliminar las categorías"), admin)(core.Handle(s.doDeleteCategories))
	s.listCategories = core.Compose(errs, middleware.Validation(table.ParamsSchema, "Parámetros de búsqueda inválidos"), admin)(core.Handle(s.doListCategories))
	s.countCategories = core.Compose(errs, admin)(core.Handle(s.doCountCategories))
	s.createSubcategory = core.Compose(errs, middleware.Validation(createSubcategorySchema, "No se pudo crear la subcategoría"), admin)(core.Handle(s.doCreateSubcategory))
	s.updateSubcategory = core.Compose(errs, middleware.Validation(updateSubcategorySchema, "No se pudo actualizar la subcategoría"), admin)(core.Handle(s.doUpdateSubcategory))
	s.deleteSubcategory = core.Compose(errs, middleware.Validation(deleteSchema, "No se pudieron eliminar las subcategorías"), admin)(core.Handle(s.doDeleteSubcategories))
	s.listSubcategories = core.Compose(errs, middleware.Validation(table.ParamsSchema, "Parámetros de búsqueda inválidos"), admin)(core.Handle(s.doListSubcategories))
	return s
}

// CreateCategory creates a category. The slug defaults to the name and is
// always slugified.
func (s *Service) CreateCategory(ctx context.Context, input any) (*Category, error) {
	return core.Invoke[*Category](ctx, "catalog.createCategory", s.createCategory, input)
}

func (s *Service) UpdateCategory(ctx context.Context, input any) (*Category, error) {
	return core.Invoke[*Category](ctx, "catalog.updateCategory", s.updateCategory, input)
}

// DeleteCategories deletes categories and their subcategories. It returns
// the number of categories removed.
func (s *Service) DeleteCategories(ctx context.Context, input any) (int64, error) {
	return core.Invoke[int64](ctx, "catalog.deleteCategories", s.deleteCategories, input)
}

// GetCategories returns one page of categories, cached under TagCategories.
func (s *Service) GetCategories(ctx context.Context, params any) (*table.Page[Category], error) {
	return core.Invoke[*table.Page[Category]](ctx, "catalog.getCategories", s.listCategories, params)
}

// GetCategoryCounts returns active and inactive totals, cached under
// TagCategoriesCount.
func (s *Service) GetCategoryCounts(ctx context.Context) (*StatusCounts, error) {
	return core.Invoke[*StatusCounts](ctx, "catalog.getCategoryCounts", s.countCategories, struct{}{})
}

func (s *Service) CreateSubcategory(ctx context.Context, input any) (*Subcategory, error) {
	return core.Invoke[*Subcategory](ctx, "catalog.createSubcategory", s.createSubcategory, input)
}

func (s *Service) UpdateSubcategory(ctx context.Context, input any) (*Subcategory, error) {
	return core.Invoke[*Subcategory](ctx, "catalog.updateSubcategory", s.updateSubcategory, input)
}

func (s *Service) DeleteSubcategories(ctx context.Context, input any) (int64, error) {
	return core.Invoke[int64](ctx, "catalog.deleteSubcategories", s.deleteSubcategory, input)
}

// GetSubcategories returns one page of subcategories, cached under
// TagSubcategories.
func (s *Service) GetSubcategories(ctx context.Context, params any) (*table.Page[Subcategory], error) {
	return core.Invoke[*table.Page[Subcategory]](ctx, "catalog.getSubcategories", s.listSubcategories, params)
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

func activeOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// slugConflict maps a unique violation onto the slug conflict error.
func slugConflict(err error, slug string) error {
	if errors.Is(err, core.ErrDuplicateKey) {
		return core.Conflict(fmt.Sprintf("Ya existe un elemento con el slug %q", slug)).WithCause(err)
	}
	return err
}

func (s *Service) slugTaken(ctx context.Context, tableName, slug, exceptID string) (bool, error) {
	q := s.db.Table(tableName).WithContext(ctx).Where("slug = ?", slug)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	return q.Exists()
}

// invalidate runs after a committed write. A failure is logged by the
// cache and does not undo the write.
func (s *Service) invalidate(ctx context.Context, tags ...string) {
	_ = s.cache.Invalidate(ctx, tags...)
}

func (s *Service) doCreateCategory(ctx context.Context, in CreateCategoryInput, _ core.ActionContext) (*Category, error) {
	taken, err := s.slugTaken(ctx, "categories", in.Slug, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, core.Conflict(fmt.Sprintf("Ya existe una categoría con el slug %q", in.Slug))
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}
	c := &Category{
		ID:          id,
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Active:      activeOr(in.Active, true),
	}
	if _, err := s.db.Model(c).WithContext(ctx).Insert(c); err != nil {
		return nil, slugConflict(err, in.Slug)
	}
	s.invalidate(ctx, TagCategories, TagCategoriesCount)
	return c, nil
}

func (s *Service) doUpdateCategory(ctx context.Context, in UpdateCategoryInput, _ core.ActionContext) (*Category, error) {
	var current Category
	if err := s.db.Model(&current).WithContext(ctx).Where("id = ?", in.ID).First(&current); err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil, core.NotFound("La categoría no existe")
		}
		return nil, err
	}

	if in.Slug != current.Slug {
		taken, err := s.slugTaken(ctx, "categories", in.Slug, in.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, core.Conflict(fmt.Sprintf("Ya existe una categoría con el slug %q", in.Slug))
		}
	}

	current.Name = in.Name
	current.Slug = in.Slug
	current.Description = in.Description
	current.Active = activeOr(in.Active, current.Active)
	current.UpdatedAt = time.Now().UTC()

	n, err := s.db.Table("categories").WithContext(ctx).Where("id = ?", in.ID).Update(map[string]any{
		"name":        current.Name,
		"slug":        current.Slug,
		"description": current.Description,
		"active":      current.Active,
		"updated_at":  current.UpdatedAt,
	})
	if err != nil {
		return nil, slugConflict(err, in.Slug)
	}
	if n == 0 {
		return nil, core.NotFound("La categoría no existe")
	}
	s.invalidate(ctx, TagCategories, TagCategoriesCount, TagSubcategories)
	return &current, nil
}

func (s *Service) doDeleteCategories(ctx context.Context, in DeleteInput, _ core.ActionContext) (int64, error) {
	var deleted int64
	err := s.db.Transaction(ctx, func(tx *core.Tx) error {
		if _, err := tx.Table("subcategories").WithContext(ctx).WhereIn("category_id", in.IDs).Delete(); err != nil {
			return err
		}
		n, err := tx.Table("categories").WithContext(ctx).WhereIn("id", in.IDs).Delete()
		if err != nil {
			return err
		}
		if n == 0 {
			return core.NotFound("Las categorías seleccionadas no existen")
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, TagCategories, TagCategoriesCount, TagSubcategories)
	return deleted, nil
}

func (s *Service) doListCategories(ctx context.Context, p table.Params, _ core.ActionContext) (*table.Page[Category], error) {
	p = p.Normalize()
	return cache.Read(ctx, s.cache, func(ctx context.Context) (*table.Page[Category], error) {
		page, _, err := table.List[Category](ctx, s.db, categorySpec, p)
		return page, err
	}, []any{"catalog.categories", p}, cache.Options{Tags: []string{TagCategories}})
}

func (s *Service) doCountCategories(ctx context.Context, _ struct{}, _ core.ActionContext) (*StatusCounts, error) {
	return cache.Read(ctx, s.cache, func(ctx context.Context) (*StatusCounts, error) {
		active, err := s.db.Table("categories").WithContext(ctx).Where("active = ?", true).Count()
		if err != nil {
			return nil, err
		}
		inactive, err := s.db.Table("categories").WithContext(ctx).Where("active = ?", false).Count()
		if err != nil {
			return nil, err
		}
		return &StatusCounts{Active: active, Inactive: inactive}, nil
	}, []any{"catalog.categoryCounts"}, cache.Options{Tags: []string{TagCategoriesCount}})
}

func (s *Service) categoryExists(ctx context.Context, id string) (bool, error) {
	return s.db.Table("categories").WithContext(ctx).Where("id = ?", id).Exists()
}

func (s *Service) doCreateSubcategory(ctx context.Context, in CreateSubcategoryInput, _ core.ActionContext) (*Subcategory, error) {
	ok, err := s.categoryExists(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.NotFound("La categoría no existe")
	}
	taken, err := s.slugTaken(ctx, "subcategories", in.Slug, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, core.Conflict(fmt.Sprintf("Ya existe una subcategoría con el slug %q", in.Slug))
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}
	sc := &Subcategory{
		ID:          id,
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Active:      activeOr(in.Active, true),
	}
	if _, err := s.db.Model(sc).WithContext(ctx).Insert(sc); err != nil {
		return nil, slugConflict(err, in.Slug)
	}
	s.invalidate(ctx, TagSubcategories)
	return sc, nil
}

func (s *Service) doUpdateSubcategory(ctx context.Context, in UpdateSubcategoryInput, _ core.ActionContext) (*Subcategory, error) {
	var current Subcategory
	if err := s.db.Model(&current).WithContext(ctx).Where("id = ?", in.ID).First(&current); err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil, core.NotFound("La subcategoría no existe")
		}
		return nil, err
	}
	if in.CategoryID != current.CategoryID {
		ok, err := s.categoryExists(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, core.NotFound("La categoría no existe")
		}
	}
	if in.Slug != current.Slug {
		taken, err := s.slugTaken(ctx, "subcategories", in.Slug, in.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, core.Conflict(fmt.Sprintf("Ya existe una subcategoría con el slug %q", in.Slug))
		}
	}

	current.CategoryID = in.CategoryID
	current.Name = in.Name
	current.Slug = in.Slug
	current.Description = in.Description
	current.Active = activeOr(in.Active, current.Active)
	current.UpdatedAt = time.Now().UTC()

	n, err := s.db.Table("subcategories").WithContext(ctx).Where("id = ?", in.ID).Update(map[string]any{
		"category_id": current.CategoryID,
		"name":        current.Name,
		"slug":        current.Slug,
		"description": current.Description,
		"active":      current.Active,
		"updated_at":  current.UpdatedAt,
	})
	if err != nil {
		return nil, slugConflict(err, in.Slug)
	}
	if n == 0 {
		return nil, core.NotFound("La subcategoría no existe")
	}
	s.invalidate(ctx, TagSubcategories)
	return &current, nil
}

func (s *Service) doDeleteSubcategories(ctx context.Context, in DeleteInput, _ core.ActionContext) (int64, error) {
	n, err := s.db.Table("subcategories").WithContext(ctx).WhereIn("id", in.IDs).Delete()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, core.NotFound("Las subcategorías seleccionadas no existen")
	}
	s.invalidate(ctx, TagSubcategories)
	return n, nil
}

func (s *Service) doListSubcategories(ctx context.Context, p table.Params, _ core.ActionContext) (*table.Page[Subcategory], error) {
	p = p.Normalize()
	return cache.Read(ctx, s.cache, func(ctx context.Context) (*table.Page[Subcategory], error) {
		page, _, err := table.List[Subcategory](ctx, s.db, subcategorySpec, p)
		return page, err
	}, []any{"catalog.subcategories", p}, cache.Options{Tags: []string{TagSubcategories}})
}

// ExportCategories writes every category matching params as CSV, ignoring
// paging.
func (s *Service) ExportCategories(ctx context.Context, params table.Params, w io.Writer) error {
	params.Page = 1
	params.PerPage = table.MaxPerPage
	for {
		page, err := s.GetCategories(ctx, params)
		if err != nil {
			return err
		}
		if params.Page == 1 {
			if err := table.WriteCSV(w, CSVColumns, page.Rows); err != nil {
				return err
			}
		} else if err := table.WriteCSVRows(w, CSVColumns, page.Rows); err != nil {
			return err
		}
		if params.Page >= page.PageCount {
			return nil
		}
		params.Page++
	}
}
