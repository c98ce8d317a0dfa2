package bookings

import "github.com/angelmondragon/tourbook-backend/pkg/query"

var Schema = query.MustSchema("-createdAt",
	query.Field{Name: "id", Column: "id", Kind: query.KindUUID},
	query.Field{Name: "tour", Column: "tour_id", Kind: query.KindUUID},
	query.Field{Name: "user", Column: "user_id", Kind: query.KindUUID},
	query.Field{Name: "price", Column: "price", Kind: query.KindNumber},
	query.Field{Name: "currency", Column: "currency", Kind: query.KindString},
	query.Field{Name: "paid", Column: "paid", Kind: query.KindBool},
	query.Field{Name: "stripeSessionId", Column: "stripe_session_id", Kind: query.KindString, NoSort: true},
	query.Field{Name: "createdAt", Column: "created_at", Kind: query.KindTime},
	query.Field{Name: "updatedAt", Column: "updated_at", Kind: query.KindTime},
	query.Field{Name: "version", Column: "version", Kind: query.KindNumber, Hidden: true, NoFilter: true, NoSort: true},
)
