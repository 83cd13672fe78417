package request

type InitializePaymentRequest struct {
	Provider string `json:"provider" binding:"required,oneof=paystack flutterwave"`
	Email    string `json:"email" binding:"required,email"`
}
