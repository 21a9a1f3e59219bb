package httpapi

import (
	"net/http"

	"dinetrack-ops-service/internal/config"
	"dinetrack-ops-service/internal/http/handlers"
	"dinetrack-ops-service/internal/middleware"
	"dinetrack-ops-service/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func NewRouter(h *handlers.Handler, cfg config.Config, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(h.Logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Delete-Pin",
				"Cache-Control",
				"Pragma",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/staff", func(r chi.Router) {
		r.Use(middleware.StaffAuth(cfg.JWTSecret))

		r.Get("/branch", h.BranchProfile)
		r.Put("/branch/delete-pin", h.DeletePinSet)
		r.Delete("/branch/delete-pin", h.DeletePinRemove)

		r.Get("/areas", h.AreasList)
		r.Post("/areas", h.AreaCreate)
		r.Put("/areas/{id}/status", h.AreaUpdateStatus)

		r.Get("/tables", h.TablesList)
		r.Get("/tables/floors", h.TablesByFloor)
		r.Post("/tables", h.TableCreate)
		r.Patch("/tables/{id}", h.TablePatch)
		r.Put("/tables/{id}/status", h.TableUpdateStatus)
		r.Put("/tables/{id}/reservation", h.TableAssignReservation)
		r.Delete("/tables/{id}", h.TableDelete)

		r.Get("/reservations", h.ReservationsList)
		r.Get("/reservations/table/{tableId}", h.ReservationsByTable)
		r.Post("/reservations", h.ReservationCreate)
		r.Put("/reservations/{id}", h.ReservationUpdate)
		r.Post("/reservations/{id}/cancel", h.ReservationCancel)

		r.Get("/menus", h.MenuList)
		r.Get("/menus/selectable", h.MenuSelectable)
		r.Get("/menus/customizations", h.CategoryCustomizations)
		r.Post("/menus", h.MenuCreate)
		r.Put("/menus/{id}", h.MenuUpdate)
		r.Delete("/menus/{id}", h.MenuDelete)
		r.Get("/menus/{id}/customizations", h.ItemCustomizations)
		r.Post("/menus/{id}/customizations/{customizationId}", h.LinkCustomization)
		r.Delete("/menus/{id}/customizations/{customizationId}", h.UnlinkCustomization)
		r.Post("/menus/{id}/image", h.MenuItemImageUpload)
		r.Delete("/menus/{id}/image", h.MenuItemImageDelete)

		r.Get("/orders", h.OrdersList)
		r.Get("/orders/active", h.OrderActiveByTable)
		r.Post("/orders", h.OrderPlace)
		r.Post("/orders/{id}/lines", h.OrderAddLine)
		r.Put("/orders/{id}/status", h.OrderUpdateStatus)

		r.Get("/billing/billable", h.BillableOrders)
		r.Post("/billing/compute", h.ComputeBill)
		r.Post("/billing/confirm", h.ConfirmBill)
		r.Get("/billing/bills", h.BillsList)
		r.Put("/billing/bills/{id}/status", h.BillSetStatus)
		r.Get("/billing/bills/{id}/receipt", h.BillReceiptPDF)
	})

	if wsServer != nil {
		r.Get("/ws/staff/floor-view", wsServer.FloorViewWS)
	}

	return r
}
