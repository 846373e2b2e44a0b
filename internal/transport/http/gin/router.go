package httpgin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/stagepass/internal/domain"
	redisx "github.com/kirinyoku/stagepass/internal/redis"
	redisrepo "github.com/kirinyoku/stagepass/internal/repository/redis"
	"github.com/kirinyoku/stagepass/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/events", handleListEvents(svcs))
	r.GET("/events/detail", handleEventDetail(svcs))
	r.GET("/events/:id", handleGetEvent(svcs))
	r.POST("/events", handleCreateEvent(svcs))
	r.PATCH("/events/:id", handleUpdateEvent(svcs))

	r.GET("/tickets", handleListTickets(svcs))
	r.POST("/tickets/lookup", handleLookupTickets(svcs))
	r.POST("/tickets/buy", handleBuyTickets(svcs, idem))
	r.POST("/tickets/refund", handleRefundTickets(svcs))

	// Admin API
	admin := r.Group("/admin")
	{
		admin.POST("/seed/artists", handleSeedArtists(svcs))
		admin.POST("/seed/locations", handleSeedLocations(svcs))
		admin.POST("/seed/events", handleSeedEvents(svcs))
		admin.POST("/events/:id/tickets", handleGenerateTickets(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List events
// @Param    title    query  string  false "substring match"
// @Param    artist   query  string  false "substring match"
// @Param    location query  string  false "substring match"
// @Param    from     query  string  false "RFC3339 lower bound on begin time"
// @Param    to       query  string  false "RFC3339 upper bound on begin time"
// @Param    limit    query  int     false "page size"
// @Param    offset   query  int     false "offset"
// @Success  200  {array}  domain.EventDetail
// @Router   /events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter domain.EventFilter
		filter.Title = c.Query("title")
		filter.Artist = c.Query("artist")
		filter.Location = c.Query("location")

		if s := c.Query("from"); s != "" {
			t, err := parseRFC3339(s)
			if err != nil {
				badRequest(c, "invalid from (RFC3339)")
				return
			}
			filter.From = t
		}
		if s := c.Query("to"); s != "" {
			t, err := parseRFC3339(s)
			if err != nil {
				badRequest(c, "invalid to (RFC3339)")
				return
			}
			filter.To = t
		}

		limit := parseIntDefault(c.Query("limit"), 5)
		offset := parseIntDefault(c.Query("offset"), 0)

		events, err := svcs.Catalog.ListEvents(c.Request.Context(), filter, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, events, "public, max-age=15", true)
	}
}

// @Summary  Look up one event by its full identifying criteria
// @Param    title    query  string  true  "exact title"
// @Param    artist   query  string  true  "exact artist name"
// @Param    location query  string  true  "exact location address"
// @Param    begin_at query  string  true  "RFC3339 begin time"
// @Param    end_at   query  string  true  "RFC3339 end time"
// @Success  200  {object}  EventDetailResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /events/detail [get]
func handleEventDetail(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		criteria := domain.EventCriteria{
			Title:    c.Query("title"),
			Artist:   c.Query("artist"),
			Location: c.Query("location"),
		}
		if criteria.Title == "" || criteria.Artist == "" || criteria.Location == "" {
			badRequest(c, "title, artist and location are required")
			return
		}

		begin, err := parseRFC3339(c.Query("begin_at"))
		if err != nil {
			badRequest(c, "invalid begin_at (RFC3339)")
			return
		}
		end, err := parseRFC3339(c.Query("end_at"))
		if err != nil {
			badRequest(c, "invalid end_at (RFC3339)")
			return
		}
		criteria.BeginAt = begin
		criteria.EndAt = end

		detail, cached, err := svcs.Catalog.EventDetail(c.Request.Context(), criteria)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, EventDetailResponse{EventDetail: detail, Cached: cached})
	}
}

// @Summary  Get event by ID
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  domain.EventDetail
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseIntParam(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Catalog.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=60", true)
	}
}

// @Summary  Create event
// @Param    req body  CreateEventRequest true "payload"
// @Success  201 {object} CreateEventResponse
// @Router   /events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		begin, err := parseRFC3339(req.BeginAt)
		if err != nil {
			badRequest(c, "invalid begin_at (RFC3339)")
			return
		}
		end, err := parseRFC3339(req.EndAt)
		if err != nil {
			badRequest(c, "invalid end_at (RFC3339)")
			return
		}
		id, err := svcs.Catalog.CreateEvent(c.Request.Context(), domain.Event{
			Title:      req.Title,
			ArtistID:   req.ArtistID,
			LocationID: req.LocationID,
			BeginAt:    begin,
			EndAt:      end,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateEventResponse{EventID: id})
	}
}

// @Summary  Update an event's title and/or artist
// @Param    id  path  int  true  "Event ID"
// @Param    req body  UpdateEventRequest true "fields to patch"
// @Success  204
// @Failure  404 {object} ErrorResponse "event or artist does not exist"
// @Router   /events/{id} [patch]
func handleUpdateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseIntParam(c, "id")
		if !ok {
			return
		}
		var req UpdateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.Title == nil && req.ArtistID == nil {
			badRequest(c, "nothing to update")
			return
		}
		if err := svcs.Catalog.UpdateEvent(c.Request.Context(), eventID, req.Title, req.ArtistID); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List a buyer's tickets
// @Param    email  query  string  true  "buyer email"
// @Success  200  {array}  domain.Ticket
// @Router   /tickets [get]
func handleListTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.TrimSpace(c.Query("email"))
		if email == "" {
			badRequest(c, "email is required")
			return
		}
		tickets, err := svcs.Reservation.Tickets(c.Request.Context(), email, nil)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, tickets)
	}
}

// @Summary  Look up specific seats for a buyer
// @Param    req body  LookupTicketsRequest true "payload"
// @Success  200  {array}  domain.Ticket
// @Router   /tickets/lookup [post]
func handleLookupTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LookupTicketsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		tickets, err := svcs.Reservation.Tickets(c.Request.Context(), req.Email, seatKeys(req.Seats))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, tickets)
	}
}

// @Summary  Buy seats (idempotent via Idempotency-Key)
// @Param    req body  BuyTicketsRequest true "payload"
// @Header   200 {string} Idempotency-Key "echo"
// @Success  200 {object} BuyTicketsResponse
// @Failure  404 {object} ErrorResponse "seat does not exist"
// @Failure  409 {object} ErrorResponse "seat owned by another buyer / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /tickets/buy [post]
func handleBuyTickets(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BuyTicketsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisx.KeyIdemBuy(req.Email, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		tickets, err := svcs.Reservation.Buy(
			c.Request.Context(),
			req.Email,
			seatKeys(req.Seats),
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := BuyTicketsResponse{Tickets: tickets}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Refund seats
// @Param    req body  RefundTicketsRequest true "payload"
// @Success  200 {object} map[string]string
// @Failure  409 {object} ErrorResponse "seat not booked by this buyer"
// @Router   /tickets/refund [post]
func handleRefundTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefundTicketsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svcs.Reservation.Refund(
			c.Request.Context(),
			req.Email,
			seatKeys(req.Seats),
		); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "tickets refunded"})
	}
}

// @Summary  Seed artist roster
// @Success  201 {object} map[string]string
// @Router   /admin/seed/artists [post]
func handleSeedArtists(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Seed.SeedArtists(c.Request.Context()); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "artists seeded"})
	}
}

// @Summary  Seed venue list
// @Success  201 {object} map[string]string
// @Router   /admin/seed/locations [post]
func handleSeedLocations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Seed.SeedLocations(c.Request.Context()); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "locations seeded"})
	}
}

// @Summary  Seed random events
// @Param    req body  SeedEventsRequest true "payload"
// @Success  201 {object} map[string]string
// @Router   /admin/seed/events [post]
func handleSeedEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SeedEventsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svcs.Seed.SeedEvents(c.Request.Context(), req.Count); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "events seeded"})
	}
}

// @Summary  Generate the seat grid for an event
// @Param    id  path  int  true  "Event ID"
// @Param    req body  GenerateTicketsRequest true "payload"
// @Success  201 {object} GenerateTicketsResponse
// @Router   /admin/events/{id}/tickets [post]
func handleGenerateTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseIntParam(c, "id")
		if !ok {
			return
		}
		var req GenerateTicketsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		tickets, err := svcs.Seed.GenerateTickets(
			c.Request.Context(),
			eventID,
			req.Sections,
			req.Rows,
			req.SeatsPerRow,
			req.MeanPriceCents,
			req.SdCents,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, GenerateTicketsResponse{Created: len(tickets)})
	}
}

// --- Helpers ---

func parseIntParam(c *gin.Context, name string) (int, bool) {
	s := c.Param(name)
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
