package handler

type ContextKey string

var (
	RoleCtxKey         ContextKey = "role"
	SubCtxKey          ContextKey = "sub"
	OrganizationCtxKey ContextKey = "organizationID"
	MyInfoCtx          ContextKey = "myInfo"
	UserInfoCtx        ContextKey = "userInfo"
	OrganizationCtx    ContextKey = "organization"
)
