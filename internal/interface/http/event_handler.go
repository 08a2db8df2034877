package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/eventhub/internal/application"
	"github.com/oksasatya/eventhub/pkg/response"
	"github.com/oksasatya/eventhub/pkg/validation"
)

type EventHandler struct {
	Svc    *application.EventService
	Logger *logrus.Logger
}

func NewEventHandler(svc *application.EventService, logger *logrus.Logger) *EventHandler {
	return &EventHandler{Svc: svc, Logger: logger}
}

// List handles GET /events.
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.Svc.ListEvents(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err, "Error retrieving events")
		return
	}
	response.Success(c, http.StatusOK, toListingResponses(events), "events", response.ListMeta{Count: len(events)})
}

// Get handles GET /events/:eventId.
func (h *EventHandler) Get(c *gin.Context) {
	ev, err := h.Svc.GetEvent(c.Request.Context(), callerFrom(c), c.Param("eventId"))
	if err != nil {
		writeError(c, h.Logger, err, "Error retrieving event")
		return
	}
	response.Success(c, http.StatusOK, toEventResponse(ev), "event", nil)
}

// Create handles POST /events/create.
func (h *EventHandler) Create(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		msg := application.ErrInvalidEvent.Error()
		if !validation.HasTag(err, "required") && validation.HasTag(err, "eventdate") {
			msg = application.ErrInvalidEventDate.Error()
		}
		response.Error[any](c, http.StatusBadRequest, msg, validation.ToDetails(err))
		return
	}

	ev, err := h.Svc.CreateEvent(c.Request.Context(), callerFrom(c), application.CreateEventInput{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
	})
	if err != nil {
		writeError(c, h.Logger, err, "Error creating event")
		return
	}
	response.Success(c, http.StatusCreated, toEventResponse(ev), "Event created successfully", nil)
}

// Register handles POST /events/:eventId/register.
func (h *EventHandler) Register(c *gin.Context) {
	res, err := h.Svc.Register(c.Request.Context(), callerFrom(c), c.Param("eventId"), requestMeta(c))
	if err != nil {
		writeError(c, h.Logger, err, "Error registering for the event")
		return
	}
	response.Success(c, http.StatusCreated, registerResponse{
		Registration: toRegistrationResponse(res.Registration),
		Event:        toEventResponse(&res.Event),
	}, "Registration successful", nil)
}

// MyCreated handles GET /events/mycreatedevents.
func (h *EventHandler) MyCreated(c *gin.Context) {
	events, err := h.Svc.ListMyCreatedEvents(c.Request.Context(), callerFrom(c))
	if err != nil {
		writeError(c, h.Logger, err, "Error retrieving user-created events")
		return
	}
	response.Success(c, http.StatusOK, toEventResponses(events), "created events", response.ListMeta{Count: len(events)})
}

// MyRegistrations handles GET /events/myregistrations.
func (h *EventHandler) MyRegistrations(c *gin.Context) {
	regs, err := h.Svc.ListMyRegistrations(c.Request.Context(), callerFrom(c))
	if err != nil {
		writeError(c, h.Logger, err, "Error retrieving registered events")
		return
	}
	response.Success(c, http.StatusOK, toRegisteredEventResponses(regs), "registered events", response.ListMeta{Count: len(regs)})
}

// Attendees handles GET /events/:eventId/attendees.
func (h *EventHandler) Attendees(c *gin.Context) {
	attendees, err := h.Svc.ListAttendees(c.Request.Context(), callerFrom(c), c.Param("eventId"))
	if err != nil {
		writeError(c, h.Logger, err, "Error retrieving event attendees")
		return
	}
	response.Success(c, http.StatusOK, toAttendeeResponses(attendees), "attendees", response.ListMeta{Count: len(attendees)})
}

// Search handles GET /events/search?q=&size=.
func (h *EventHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	events, err := h.Svc.SearchEvents(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		writeError(c, h.Logger, err, "Error searching events")
		return
	}
	response.Success(c, http.StatusOK, toListingResponses(events), "search results", response.ListMeta{Count: len(events)})
}
