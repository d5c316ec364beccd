// Package backoffice re-exports the types most callers need so that a
// host program can wire the services without importing every subpackage.
package backoffice

import (
	"github.com/mundobebe/backoffice/app"
	"github.com/mundobebe/backoffice/config"
	"github.com/mundobebe/backoffice/core"
)

type (
	App     = app.App
	Config  = config.Config
	Session = core.Session
	Role    = core.Role
	Error   = core.Error
	Kind    = core.Kind
)

const (
	RoleSuperadmin = core.RoleSuperadmin
	RoleAdmin      = core.RoleAdmin
	RoleUser       = core.RoleUser
)

var (
	New          = app.New
	LoadConfig   = config.Load
	AsError      = core.AsError
	KindOf       = core.KindOf
	WithClientIP = core.WithClientIP
)
