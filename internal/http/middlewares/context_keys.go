package middlewares

type ctxKey string

const (
	CtxUser  ctxKey = "user"
	CtxEmail ctxKey = "email"
	CtxRole  ctxKey = "role"
)
