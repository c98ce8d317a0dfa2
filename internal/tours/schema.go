package tours

import "github.com/angelmondragon/tourbook-backend/pkg/query"

var Schema = query.MustSchema("-createdAt",
	query.Field{Name: "id", Column: "id", Kind: query.KindUUID},
	query.Field{Name: "name", Column: "name", Kind: query.KindString},
	query.Field{Name: "slug", Column: "slug", Kind: query.KindString},
	query.Field{Name: "duration", Column: "duration", Kind: query.KindNumber},
	query.Field{Name: "maxGroupSize", Column: "max_group_size", Kind: query.KindNumber},
	query.Field{Name: "difficulty", Column: "difficulty", Kind: query.KindString},
	query.Field{Name: "ratingsAverage", Column: "ratings_average", Kind: query.KindNumber},
	query.Field{Name: "ratingsQuantity", Column: "ratings_quantity", Kind: query.KindNumber},
	query.Field{Name: "price", Column: "price", Kind: query.KindNumber},
	query.Field{Name: "priceDiscount", Column: "price_discount", Kind: query.KindNumber},
	query.Field{Name: "summary", Column: "summary", Kind: query.KindString, NoFilter: true, NoSort: true},
	query.Field{Name: "description", Column: "description", Kind: query.KindString, NoFilter: true, NoSort: true},
	query.Field{Name: "imageCover", Column: "image_cover", Kind: query.KindString, NoFilter: true, NoSort: true},
	// secretTour backs the list base filter and is never client-controlled.
	query.Field{Name: "secretTour", Column: "secret_tour", Kind: query.KindBool, NoFilter: true, NoSort: true, Hidden: true},
	query.Field{Name: "createdAt", Column: "created_at", Kind: query.KindTime},
	query.Field{Name: "updatedAt", Column: "updated_at", Kind: query.KindTime},
	query.Field{Name: "version", Column: "version", Kind: query.KindNumber, Hidden: true, NoFilter: true, NoSort: true},
)

// PublicOnly is the base condition applied to every public tour listing.
func PublicOnly() query.Condition {
	return Schema.Where("secretTour", false)
}
