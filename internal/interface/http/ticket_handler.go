package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/eventhub/internal/application"
	"github.com/oksasatya/eventhub/pkg/response"
)

type TicketHandler struct {
	Svc    *application.EventService
	Logger *logrus.Logger
}

func NewTicketHandler(svc *application.EventService, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{Svc: svc, Logger: logger}
}

// Get handles GET /events/:eventId/ticket.
func (h *TicketHandler) Get(c *gin.Context) {
	t, err := h.Svc.Ticket(c.Request.Context(), callerFrom(c), c.Param("eventId"))
	if err != nil {
		writeError(c, h.Logger, err, "Error retrieving ticket")
		return
	}
	response.Success(c, http.StatusOK, toTicketResponse(t), "ticket", nil)
}

// Email handles POST /events/:eventId/ticket/email and queues the
// confirmation email again.
func (h *TicketHandler) Email(c *gin.Context) {
	if err := h.Svc.ResendTicketEmail(c.Request.Context(), callerFrom(c), c.Param("eventId"), requestMeta(c)); err != nil {
		writeError(c, h.Logger, err, "Error sending ticket email")
		return
	}
	response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": true}, "ticket email enqueued", nil)
}
