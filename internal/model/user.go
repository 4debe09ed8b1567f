package model

// SessionUser 专门用于 Session 存储的用户信息结构
type SessionUser struct {
	ID     int
	Email  string
	Pseudo string
}

// LoginCredentials 登录表单
type LoginCredentials struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// SignupCredentials 注册表单
type SignupCredentials struct {
	Email           string `json:"email" form:"email" binding:"required,email"`
	Pseudo          string `json:"pseudo" form:"pseudo" binding:"required,min=2,max=30"`
	Password        string `json:"password" form:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" binding:"required,eqfield=Password"`
}
