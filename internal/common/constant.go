package common

// SessionCookieName is the cookie carrying the opaque session id.
const SessionCookieName = "logingate_sid"

// Flash keys. Students and teachers read separate channels.
const (
	FlashError          = "error"
	FlashSuccess        = "success"
	FlashTeacherError   = "teacherError"
	FlashTeacherSuccess = "teacherSuccess"
)

// InvalidCredentialsMessage is shown for every local login failure.
const InvalidCredentialsMessage = "Invalid email or password"
