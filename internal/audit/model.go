package audit

import "gorm.io/gorm"

// Kind 是审计事件的类型
type Kind string

const (
	KindBallotRecorded Kind = "ballot_recorded"
	KindBallotRemoved  Kind = "ballot_removed"
	KindVotesReset     Kind = "votes_reset"
	KindCodeMarked     Kind = "code_marked"
)

// Event 是写入SQLite的一条审计记录。
// Redis 仍是投票数据的唯一来源，这张表只用于事后追溯。
type Event struct {
	gorm.Model

	Kind      Kind   `gorm:"index;type:varchar(32)" json:"kind"`
	StudentID string `gorm:"index;type:varchar(64)" json:"studentID,omitempty"`
	Code      string `gorm:"type:varchar(32)" json:"code,omitempty"`
	// Detail 是自由格式的补充信息，例如选票内容的JSON
	Detail string `json:"detail,omitempty"`
}
