package users

import (
	"time"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/filter"
	"github.com/mundobebe/backoffice/table"
)

// Cache tags written by the user mutations.
const (
	TagUsers         = "users"
	TagUserRoleCount = "users-role-count"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusInvited Status = "invited"
	StatusBanned  Status = "banned"
)

type User struct {
	ID        string    `db:"column:id;pk;size:36" json:"id"`
	Name      string    `db:"column:name;size:64" json:"name"`
	Email     string    `db:"column:email;unique;notnull;size:255" json:"email"`
	Role      core.Role `db:"column:role;notnull;size:16" json:"role"`
	Status    Status    `db:"column:status;notnull;size:16" json:"status"`
	CreatedAt time.Time `db:"column:created_at;auto_time" json:"createdAt"`
	UpdatedAt time.Time `db:"column:updated_at;auto_update" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// TokenPurpose separates invitation links from password reset links.
type TokenPurpose string

const (
	PurposeInvite TokenPurpose = "invite"
	PurposeReset  TokenPurpose = "reset"
)

// Token is a single-use link secret.
type Token struct {
	Token     string       `db:"column:token;pk;size:36"`
	UserID    string       `db:"column:user_id;notnull;size:36"`
	Purpose   TokenPurpose `db:"column:purpose;notnull;size:16"`
	Used      bool         `db:"column:used;notnull"`
	ExpiresAt time.Time    `db:"column:expires_at;notnull"`
	CreatedAt time.Time    `db:"column:created_at;auto_time"`
}

func (Token) TableName() string { return "user_tokens" }

// RoleCounts maps each role to its number of accounts.
type RoleCounts map[core.Role]int64

var userSpec = table.Spec{
	Table: "users",
	Schema: filter.Schema{
		"name":      {Column: "name", Type: filter.Text},
		"email":     {Column: "email", Type: filter.Text},
		"role":      {Column: "role", Type: filter.Select},
		"status":    {Column: "status", Type: filter.Select},
		"createdAt": {Column: "created_at", Type: filter.Date},
	},
	DefaultSort: "createdAt.desc",
	DateField:   "createdAt",
	Simple: func(s *filter.Simple, p table.Params) {
		s.Contains("email", p.Field("email"))
		s.Contains("name", p.Field("name"))
		s.Equals("role", p.Field("role"))
		s.Equals("status", p.Field("status"))
	},
}
