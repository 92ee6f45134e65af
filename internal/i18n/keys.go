// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired       = "auth.required"
	KeyAuthInvalidToken   = "auth.invalid_token"
	KeyAuthLoginSuccess   = "auth.login_success"
	KeyAuthDemoDisabled   = "auth.demo_disabled"
	KeyAuthNotDemoAccount = "auth.not_demo_account"
	KeyAdminAccessDenied  = "admin.access_denied"

	// User
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserNotFound       = "user.not_found"

	// Products
	KeyProductNotFound     = "product.not_found"
	KeyProductImageUpdated = "product.image_updated"

	// Orders
	KeyOrderNotFound = "order.not_found"

	// Payments
	KeyPaymentSuccess        = "payment.success"
	KeyPaymentFailed         = "payment.failed"
	KeyPaymentNotYetReceived = "payment.not_yet_received"
	KeyPaymentConfirmed      = "payment.confirmed"
	KeyPaymentGatewayError   = "payment.gateway_error"
	KeyBalanceInsufficient   = "balance.insufficient"
	KeyDepositSuccess        = "deposit.success"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Files
	KeyFileUploadFailed = "file.upload_failed"
	KeyFileInvalidType  = "file.invalid_type"
	KeyFileTooLarge     = "file.too_large"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"

	// Server
	KeyInternalError = "server.internal_error"
)
