package adminusers

import (
	"wasteboard/frontend/shared/nav"
	"wasteboard/infrastructure/listing"
)

type UserView struct {
	ID          int64  `bun:"id"`
	Username    string `bun:"username"`
	DisplayName string `bun:"display_name"`
	Role        string `bun:"role"`
	UnitName    string `bun:"unit_name"`
	Active      bool   `bun:"active"`
	CreatedAt   string `bun:"created_at"`
}

type UnitOption struct {
	ID    int64  `bun:"id"`
	Label string `bun:"label"`
	Kind  string `bun:"kind"`
}

// CreateInput is the new-user form.
type CreateInput struct {
	Username    string
	Password    string
	Role        string
	UnitID      *int64
	DisplayName string
}

type PageData struct {
	Nav          nav.TopNavData
	Users        []UserView
	Pagination   listing.Pagination
	Query        listing.Query
	Role         string
	Units        []UnitOption
	Status       string
	ErrorMessage string
}
