package users

import (
	"strings"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/validator"
)

type CreateUserInput struct {
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   core.Role `json:"role"`
	Status Status    `json:"status"`
}

type UpdateUserInput struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   core.Role `json:"role"`
	Status Status    `json:"status"`
}

type DeleteUsersInput struct {
	IDs []string `json:"ids"`
}

type InviteInput struct {
	Email string    `json:"email"`
	Role  core.Role `json:"role"`
}

type PasswordResetInput struct {
	Email string `json:"email"`
}

type AcceptInvitationInput struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

var (
	emailRules = []validator.Rule{
		validator.Required.Msg("El correo es obligatorio"),
		validator.MaxLen(255),
		validator.Email.Msg("El correo no es válido"),
	}
	nameRules = []validator.Rule{
		validator.Required.Msg("El nombre es obligatorio"),
		validator.MinLen(2).Msg("El nombre debe tener al menos 2 caracteres"),
		validator.MaxLen(64).Msg("El nombre debe tener como máximo 64 caracteres"),
		validator.NoHTML,
	}
	roleRules = []validator.Rule{
		validator.Required.Msg("El rol es obligatorio"),
		validator.In(core.RoleSuperadmin, core.RoleAdmin, core.RoleUser).Msg("El rol no es válido"),
	}
	statusRules = []validator.Rule{
		validator.In(StatusActive, StatusInvited, StatusBanned).Optional().Msg("El estado no es válido"),
	}
)

func lower(s *string) { *s = strings.ToLower(*s) }

var createUserSchema = validator.Object[CreateUserInput](validator.Rules{
	"Name":   nameRules,
	"Email":  emailRules,
	"Role":   roleRules,
	"Status": statusRules,
}).Refine(func(in *CreateUserInput) []validator.Issue {
	lower(&in.Email)
	if in.Status == "" {
		in.Status = StatusActive
	}
	return nil
})

var updateUserSchema = validator.Object[UpdateUserInput](validator.Rules{
	"ID":     {validator.Required.Msg("Falta el identificador"), validator.UUID},
	"Name":   nameRules,
	"Email":  emailRules,
	"Role":   roleRules,
	"Status": statusRules,
}).Refine(func(in *UpdateUserInput) []validator.Issue {
	lower(&in.Email)
	return nil
})

var deleteUsersSchema = validator.Object[DeleteUsersInput](validator.Rules{
	"IDs": {
		validator.Required.Msg("Selecciona al menos un usuario"),
		validator.MaxLen(100).Msg("No puedes eliminar más de 100 usuarios a la vez"),
		validator.Each(validator.UUID),
	},
})

var inviteSchema = validator.Object[InviteInput](validator.Rules{
	"Email": emailRules,
	"Role": {
		validator.Required.Msg("El rol es obligatorio"),
		validator.In(core.RoleSuperadmin, core.RoleAdmin).Msg("Solo se puede invitar a administradores"),
	},
}).Refine(func(in *InviteInput) []validator.Issue {
	lower(&in.Email)
	return nil
})

var passwordResetSchema = validator.Object[PasswordResetInput](validator.Rules{
	"Email": emailRules,
}).Refine(func(in *PasswordResetInput) []validator.Issue {
	lower(&in.Email)
	return nil
})

var acceptInvitationSchema = validator.Object[AcceptInvitationInput](validator.Rules{
	"Token": {validator.Required.Msg("Falta el token"), validator.UUID.Msg("El enlace no es válido")},
	"Name":  nameRules,
})
