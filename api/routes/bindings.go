package routes

import (
	"github.com/angelmondragon/tourbook-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/tourbook-backend/api/controllers/webhooks"
	"github.com/angelmondragon/tourbook-backend/internal/bookings"
	"github.com/angelmondragon/tourbook-backend/internal/reviews"
	"github.com/angelmondragon/tourbook-backend/internal/tours"
	"github.com/angelmondragon/tourbook-backend/internal/users"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
)

// The binders below adapt service methods to the generic handler shapes. A
// nil service yields a nil func, which the handlers answer with 500.

func listTours(s *tours.Service) controllers.ListFunc {
	if s == nil {
		return nil
	}
	return s.List
}

func topCheapTours(s *tours.Service) controllers.ListFunc {
	if s == nil {
		return nil
	}
	return s.TopCheap
}

func getTour(s *tours.Service) controllers.GetFunc[models.Tour] {
	if s == nil {
		return nil
	}
	return s.Get
}

func createTour(s *tours.Service) controllers.CreateFunc[models.Tour, tours.CreateTourRequest] {
	if s == nil {
		return nil
	}
	return s.Create
}

func updateTour(s *tours.Service) controllers.UpdateFunc[models.Tour, tours.UpdateTourRequest] {
	if s == nil {
		return nil
	}
	return s.Update
}

func deleteTours(s *tours.Service) controllers.DeleteFunc {
	if s == nil {
		return nil
	}
	return s.DeleteMany
}

func getReview(s *reviews.Service) controllers.GetFunc[models.Review] {
	if s == nil {
		return nil
	}
	return s.Get
}

func listUsers(a *users.Admin) controllers.ListFunc {
	if a == nil {
		return nil
	}
	return a.List
}

func getUser(a *users.Admin) controllers.GetFunc[models.User] {
	if a == nil {
		return nil
	}
	return a.Get
}

func createUser(a *users.Admin) controllers.CreateFunc[models.User, users.CreateUserRequest] {
	if a == nil {
		return nil
	}
	return a.Create
}

func updateUser(a *users.Admin) controllers.UpdateFunc[models.User, users.UpdateUserRequest] {
	if a == nil {
		return nil
	}
	return a.Update
}

func deleteUsers(a *users.Admin) controllers.DeleteFunc {
	if a == nil {
		return nil
	}
	return a.DeleteMany
}

func listBookings(s *bookings.Service) controllers.ListFunc {
	if s == nil {
		return nil
	}
	return s.List
}

func getBooking(s *bookings.Service) controllers.GetFunc[models.Booking] {
	if s == nil {
		return nil
	}
	return s.Get
}

func createBooking(s *bookings.Service) controllers.CreateFunc[models.Booking, bookings.CreateBookingRequest] {
	if s == nil {
		return nil
	}
	return s.Create
}

func updateBooking(s *bookings.Service) controllers.UpdateFunc[models.Booking, bookings.UpdateBookingRequest] {
	if s == nil {
		return nil
	}
	return s.Update
}

func deleteBookings(s *bookings.Service) controllers.DeleteFunc {
	if s == nil {
		return nil
	}
	return s.DeleteMany
}

func checkoutWebhooks(s *bookings.Service) webhookcontrollers.CheckoutWebhookService {
	if s == nil {
		return nil
	}
	return s
}
