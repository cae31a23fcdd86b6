package models

import (
	"time"
)

// Message 代表一則聊天訊息，同時滿足 WebSocket 傳輸和數據庫存儲需求
// ID 與 Timestamp 建立後不可變更；刪除為軟刪除，編輯直接覆寫內容
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Username  string    `json:"username" gorm:"type:text"`
	Avatar    string    `json:"avatar" gorm:"type:text"`
	Body      string    `json:"message" gorm:"column:message;type:text"`
	IsDeleted bool      `json:"isDeleted" gorm:"not null;default:false;index:idx_messages_active,priority:1"`
	Edited    bool      `json:"edited" gorm:"not null;default:false"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:idx_messages_active,priority:2"`
}

// TableName 指定 gorm 使用的資料表名稱
func (Message) TableName() string {
	return "messages"
}

// NewMessage 建立一則尚未持久化的新訊息
func NewMessage(id, username, avatar, body string, at time.Time) Message {
	return Message{
		ID:        id,
		Username:  username,
		Avatar:    avatar,
		Body:      body,
		Timestamp: at,
	}
}
