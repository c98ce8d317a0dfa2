package reviews

import "github.com/angelmondragon/tourbook-backend/pkg/query"

var Schema = query.MustSchema("-createdAt",
	query.Field{Name: "id", Column: "id", Kind: query.KindUUID},
	query.Field{Name: "review", Column: "review", Kind: query.KindString, NoSort: true},
	query.Field{Name: "rating", Column: "rating", Kind: query.KindNumber},
	query.Field{Name: "tour", Column: "tour_id", Kind: query.KindUUID},
	query.Field{Name: "user", Column: "user_id", Kind: query.KindUUID},
	query.Field{Name: "createdAt", Column: "created_at", Kind: query.KindTime},
	query.Field{Name: "updatedAt", Column: "updated_at", Kind: query.KindTime},
	query.Field{Name: "version", Column: "version", Kind: query.KindNumber, Hidden: true, NoFilter: true, NoSort: true},
)
