//go:build unit

package api_test

import (
	"net/http"
	"testing"

	"ticketing/internal/handler/api"
	resdto "ticketing/internal/handler/dto/response"
	"ticketing/internal/usecase/commands"
	"ticketing/tests/common/builder"
	"ticketing/tests/common/httptest"
	commandsmock "ticketing/tests/mock/commands"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type TicketHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockBookingCommands
	handler      *api.TicketHandler
}

func (s *TicketHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockBookingCommands(s.mockCtrl)
	s.handler = api.NewTicketHandler(s.mockCommands)

	s.router.GET("/tickets/:reference/verify", s.handler.VerifyTicket)
}

func (s *TicketHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestTicketHandlerSuite(t *testing.T) {
	suite.Run(t, new(TicketHandlerTestSuite))
}

func (s *TicketHandlerTestSuite) TestVerifyTicket() {
	b := builder.NewBookingBuilder()
	url := "/tickets/" + b.BookingReference + "/verify"

	s.Run("success: valid ticket admits", func() {
		domainBooking, err := b.BuildDomain()
		s.Require().NoError(err)

		s.mockCommands.EXPECT().
			VerifyTicket(gomock.Any(), b.BookingReference).
			Return(&commands.TicketVerification{
				Valid:   true,
				Status:  "VALID",
				Message: "admit",
				Booking: domainBooking,
			}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")

		var body resdto.TicketVerificationResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.True(body.Valid)
		s.Equal("VALID", body.Status)
		s.Equal(b.BookingReference, body.BookingReference)
	})

	s.Run("success: rejected ticket still returns 200", func() {
		s.mockCommands.EXPECT().
			VerifyTicket(gomock.Any(), b.BookingReference).
			Return(&commands.TicketVerification{
				Valid:   false,
				Status:  "USED",
				Message: "ticket already used",
			}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")

		var body resdto.TicketVerificationResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.False(body.Valid)
		s.Equal("USED", body.Status)
	})

	s.Run("error: 404 on unknown reference", func() {
		s.mockCommands.EXPECT().
			VerifyTicket(gomock.Any(), b.BookingReference).
			Return(nil, commands.ErrBookingNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "Booking not found")
	})
}
