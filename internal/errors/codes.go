package errors

// Error codes returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL. The storefront maps these to copy.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Catalog (CATALOG_) ====================
	CatalogProductNotFound      = "CATALOG_PRODUCT_NOT_FOUND"
	CatalogOptionNotFound       = "CATALOG_OPTION_NOT_FOUND"
	CatalogOptionInUse          = "CATALOG_OPTION_IN_USE"
	CatalogInvalidCustomization = "CATALOG_INVALID_CUSTOMIZATION"

	// ==================== Cart (CART_) ====================
	CartNotFound          = "CART_NOT_FOUND"
	CartItemNotFound      = "CART_ITEM_NOT_FOUND"
	CartEmpty             = "CART_EMPTY"
	CartInsufficientStock = "CART_INSUFFICIENT_STOCK"

	// ==================== Checkout / orders (CHECKOUT_, ORDER_) ====================
	CheckoutPaymentNotVerified = "CHECKOUT_PAYMENT_NOT_VERIFIED"
	CheckoutInsufficientStock  = "CHECKOUT_INSUFFICIENT_STOCK"
	OrderNotFound              = "ORDER_NOT_FOUND"
	OrderInvalidTransition     = "ORDER_INVALID_TRANSITION"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
