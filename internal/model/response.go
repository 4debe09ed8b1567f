package model

import "encoding/json"

// 远程 API 的响应状态
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Envelope 远程 API 的统一响应结构
// 成功: {"status":"success","data":...}
// 失败: {"status":"fail","error":"..."}
type Envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
}

// ReviewResult 发布/修改评论的响应数据（API 不回传评论内容）
type ReviewResult struct {
	ReviewID int `json:"review_id"`
}

// RatingResult 发布/修改评分的响应数据
type RatingResult struct {
	RatingID           *int    `json:"rating_id"`
	MovieAverageRating float64 `json:"movie_average_rating"`
}

// AuthResult 登录/注册的响应数据
type AuthResult struct {
	Token string  `json:"token"`
	User  APIUser `json:"user"`
}

// APIUser 远程 API 返回的用户信息
type APIUser struct {
	ID     int    `json:"id"`
	Email  string `json:"email"`
	Pseudo string `json:"pseudo"`
}
