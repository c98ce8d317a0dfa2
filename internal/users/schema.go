package users

import "github.com/angelmondragon/tourbook-backend/pkg/query"

// Schema is the list-query allow-list for users. Credential and token
// columns are absent.
var Schema = query.MustSchema("name",
	query.Field{Name: "id", Column: "id", Kind: query.KindUUID},
	query.Field{Name: "name", Column: "name", Kind: query.KindString},
	query.Field{Name: "email", Column: "email", Kind: query.KindString},
	query.Field{Name: "photo", Column: "photo", Kind: query.KindString, NoFilter: true, NoSort: true},
	query.Field{Name: "role", Column: "role", Kind: query.KindString},
	query.Field{Name: "emailConfirmed", Column: "email_confirmed", Kind: query.KindBool},
	query.Field{Name: "createdAt", Column: "created_at", Kind: query.KindTime},
	query.Field{Name: "updatedAt", Column: "updated_at", Kind: query.KindTime},
	query.Field{Name: "version", Column: "version", Kind: query.KindNumber, Hidden: true, NoFilter: true, NoSort: true},
)
