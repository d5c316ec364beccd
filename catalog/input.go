package catalog

import (
	"github.com/mundobebe/backoffice/slug"
	"github.com/mundobebe/backoffice/validator"
)

type CreateCategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type UpdateCategoryInput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type DeleteInput struct {
	IDs []string `json:"ids"`
}

type CreateSubcategoryInput struct {
	CategoryID  string `json:"categoryId"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type UpdateSubcategoryInput struct {
	ID          string `json:"id"`
	CategoryID  string `json:"categoryId"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

var (
	nameRules = []validator.Rule{
		validator.Required.Msg("El nombre es obligatorio"),
		validator.MinLen(2).Msg("El nombre debe tener al menos 2 caracteres"),
		validator.MaxLen(64).Msg("El nombre debe tener como máximo 64 caracteres"),
		validator.NoHTML,
	}
	slugRules = []validator.Rule{
		validator.MaxLen(96).Optional(),
	}
	descriptionRules = []validator.Rule{
		validator.MaxLen(255).Optional().Msg("La descripción debe tener como máximo 255 caracteres"),
		validator.NoHTML.Optional(),
	}
	idRules = []validator.Rule{
		validator.Required.Msg("Falta el identificador"),
		validator.UUID,
	}
)

// slugFrom slugifies the explicit slug, or the name when none is given.
func slugFrom(explicit, name string) (string, []validator.Issue) {
	src := explicit
	if src == "" {
		src = name
	}
	s := slug.Make(src)
	if s == "" {
		return "", []validator.Issue{{Path: "slug", Message: "El slug debe contener letras o números"}}
	}
	return s, nil
}

var createCategorySchema = validator.Object[CreateCategoryInput](validator.Rules{
	"Name":        nameRules,
	"Slug":        slugRules,
	"Description": descriptionRules,
}).Refine(func(in *CreateCategoryInput) []validator.Issue {
	var issues []validator.Issue
	in.Slug, issues = slugFrom(in.Slug, in.Name)
	return issues
})

var updateCategorySchema = validator.Object[UpdateCategoryInput](validator.Rules{
	"ID":          idRules,
	"Name":        nameRules,
	"Slug":        slugRules,
	"Description": descriptionRules,
}).Refine(func(in *UpdateCategoryInput) []validator.Issue {
	var issues []validator.Issue
	in.Slug, issues = slugFrom(in.Slug, in.Name)
	return issues
})

var deleteSchema = validator.Object[DeleteInput](validator.Rules{
	"IDs": {
		validator.Required.Msg("Selecciona al menos un elemento"),
		validator.MaxLen(100).Msg("No puedes eliminar más de 100 elementos a la vez"),
		validator.Each(validator.UUID),
	},
})

var createSubcategorySchema = validator.Object[CreateSubcategoryInput](validator.Rules{
	"CategoryID":  {validator.Required.Msg("Selecciona una categoría"), validator.UUID},
	"Name":        nameRules,
	"Slug":        slugRules,
	"Description": descriptionRules,
}).Refine(func(in *CreateSubcategoryInput) []validator.Issue {
	var issues []validator.Issue
	in.Slug, issues = slugFrom(in.Slug, in.Name)
	return issues
})

var updateSubcategorySchema = validator.Object[UpdateSubcategoryInput](validator.Rules{
	"ID":          idRules,
	"CategoryID":  {validator.Required.Msg("Selecciona una categoría"), validator.UUID},
	"Name":        nameRules,
	"Slug":        slugRules,
	"Description": descriptionRules,
}).Refine(func(in *UpdateSubcategoryInput) []validator.Issue {
	var issues []validator.Issue
	in.Slug, issues = slugFrom(in.Slug, in.Name)
	return issues
})
