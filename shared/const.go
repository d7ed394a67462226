package shared

const (
	UserID   = "user_id"
	Username = "username"
	UserRole = "user_role"
	TokenJTI = "token_jti"
	TokenExp = "token_exp"

	RoleUser  = "user"
	RoleAdmin = "admin"

	TokenTypeBearer = "Bearer"
)
