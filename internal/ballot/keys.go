package ballot

import "strings"

// 定义与投票相关的Redis键名
const (
	// TallyKeyPrefix 是每个职位计票Hash的键前缀。
	// Key: votes:<position>
	// Field: 候选人名 (或 NoSelection)
	// Value: 票数
	TallyKeyPrefix = "votes:"
	tallyPattern   = TallyKeyPrefix + "*"

	// RecordsKey 是一个List，按“最新在前”的顺序存储所有选票的JSON
	RecordsKey = "voteRecords"

	// VotedFlagPrefix 标记学生已完成投票。
	// Key: vote:used:<studentID>
	VotedFlagPrefix = "vote:used:"
	votedFlagPattern = VotedFlagPrefix + "*"

	// VoterAuthPrefix 是学生最近一次认证身份的Hash键前缀，字段为 name 与 code。
	// Key: auth:voter:<studentID>
	VoterAuthPrefix = "auth:voter:"
)

// 特殊取值
const (
	// NoSelection 代替职位下为空的候选人
	NoSelection = "No selection"
	// UnknownVoter 代替结果中为空的投票人姓名
	UnknownVoter = "Unknown Voter"
)

func tallyKey(position string) string { return TallyKeyPrefix + position }

func positionFromKey(key string) string { return strings.TrimPrefix(key, TallyKeyPrefix) }

// VotedFlagKey 返回学生已投票标记的键
func VotedFlagKey(studentID string) string { return VotedFlagPrefix + studentID }

// VoterAuthKey 返回学生认证记录的键
func VoterAuthKey(studentID string) string { return VoterAuthPrefix + studentID }
