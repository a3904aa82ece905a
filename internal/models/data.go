package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStats 账号统计数据
type AccountStats struct {
	Handle         string  `json:"username"`
	FollowerCount  int     `json:"followers"`
	AvgLikes       int     `json:"avg_likes"`
	AvgRetweets    int     `json:"avg_retweets"`
	AvgReplies     int     `json:"avg_replies"`
	EngagementRate float64 `json:"engagement_rate"` // percent
	ReachScore     float64 `json:"reach_score"`     // 0-10
}

// Post 最近发布的帖子
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Likes     int       `json:"like_count"`
	Reposts   int       `json:"retweet_count"`
	Replies   int       `json:"reply_count"`
	CreatedAt time.Time `json:"created_at"`
}

// CoinQuote 代币行情
type CoinQuote struct {
	Name           string          `json:"name"`
	Symbol         string          `json:"symbol"`
	PriceUSD       decimal.Decimal `json:"priceUsd"`
	PriceChange24h float64         `json:"priceChange24h"`
	ImageURL       string          `json:"imageUrl"`
	Address        string          `json:"address"`
	Volume24h      float64         `json:"volume24h"`
	Liquidity      float64         `json:"liquidity"`
	Source         string          `json:"source"`
}

// Purchase 代币购买记录
type Purchase struct {
	ID         int64           `json:"id"`
	Username   string          `json:"username"`
	CoinSymbol string          `json:"coin_symbol"`
	Amount     decimal.Decimal `json:"amount"`
	TxHash     string          `json:"tx_hash"`
	CreatedAt  time.Time       `json:"created_at"`
}
