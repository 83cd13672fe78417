package api

import (
	"errors"
	"io"
	"net/http"

	reqdto "ticketing/internal/handler/dto/request"
	resdto "ticketing/internal/handler/dto/response"
	"ticketing/internal/handler/httperr"
	"ticketing/internal/handler/middleware"
	"ticketing/internal/infra"
	"ticketing/internal/usecase/commands"
	"ticketing/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// プロバイダごとの署名ヘッダ名
var signatureHeaders = map[string]string{
	"paystack":    "x-paystack-signature",
	"flutterwave": "verif-hash",
}

type PaymentHandler struct {
	paymentCommands commands.PaymentCommands
	paymentQueries  queries.PaymentQueries
}

func NewPaymentHandler(paymentCommands commands.PaymentCommands, paymentQueries queries.PaymentQueries) *PaymentHandler {
	return &PaymentHandler{
		paymentCommands: paymentCommands,
		paymentQueries:  paymentQueries,
	}
}

func (h *PaymentHandler) InitializePayment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID format",
		})
		return
	}

	var req reqdto.InitializePaymentRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	result, err := h.paymentCommands.InitializePayment(c.Request.Context(), bookingID, userID, req.Provider, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Booking not found",
			})
		case errors.Is(err, commands.ErrNotBookingOwner):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Booking not found",
			})
		case errors.Is(err, commands.ErrBookingNotPayable):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Booking is not awaiting payment",
			})
		case errors.Is(err, commands.ErrInvalidProvider):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unsupported payment provider",
			})
		case errors.Is(err, commands.ErrUpstreamPayment):
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Payment provider is unavailable",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromInitializePaymentResult(result))
}

// GetPayment は決済レコードの現在地を返す読み取り専用エンドポイント。
// refund_required の決済を拾う返金オペレーションもここを使う。
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	ref := c.Param("reference")

	view, err := h.paymentQueries.GetByReference(c.Request.Context(), ref)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, "Payment not found", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromPaymentView(view))
}

func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	ref := c.Param("reference")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Payment reference required",
		})
		return
	}

	resolution, err := h.paymentCommands.VerifyPayment(c.Request.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Payment not found",
			})
		case errors.Is(err, commands.ErrUpstreamPayment):
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Payment provider is unavailable",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromPaymentResolution(resolution))
}

// HandleWebhook はプロバイダからの非同期通知。署名検証前にボディを消費しないよう
// 生のバイト列のまま usecase に渡す。
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	provider := c.Param("provider")

	headerName, ok := signatureHeaders[provider]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown provider",
		})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	err = h.paymentCommands.HandleWebhook(c.Request.Context(), provider, c.GetHeader(headerName), body)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrSignatureInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid signature",
			})
		case errors.Is(err, commands.ErrMalformedWebhook):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Malformed webhook payload",
			})
		case errors.Is(err, commands.ErrInvalidProvider):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Unknown provider",
			})
		case errors.Is(err, commands.ErrPaymentNotFound):
			// 知らない参照の再送をプロバイダに繰り返させない
			c.JSON(http.StatusOK, gin.H{
				"status": "ignored",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "processed",
	})
}
