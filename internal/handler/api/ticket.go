package api

import (
	"errors"
	"net/http"

	resdto "ticketing/internal/handler/dto/response"
	"ticketing/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	bookingCommands commands.BookingCommands
}

func NewTicketHandler(bookingCommands commands.BookingCommands) *TicketHandler {
	return &TicketHandler{
		bookingCommands: bookingCommands,
	}
}

// VerifyTicket は入場ゲートでの照合。判定結果は無効でも 200 で返す
// （404 は参照自体が存在しない場合のみ）。
func (h *TicketHandler) VerifyTicket(c *gin.Context) {
	ref := c.Param("reference")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Booking reference required",
		})
		return
	}

	verification, err := h.bookingCommands.VerifyTicket(c.Request.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Booking not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromTicketVerification(verification))
}
