package usercontext

// Session keys shared between the auth controller and the usercontext
// middleware.
const (
	SessionKeyUserID   = "USER_ID"
	SessionKeyUserName = "USER_NAME"
	SessionKeyIsAdmin  = "USER_IS_ADMIN"
)
