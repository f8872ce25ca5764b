package ballot

import (
	"encoding/json"
	"errors"
	"time"
)

// timeLayout 与早期 Node 服务写入的 ISO 时间 (毫秒精度, Z 结尾) 保持一致
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Ballot 是一张已记录的选票，在Redis列表中以JSON形式存储
type Ballot struct {
	StudentID string
	Name      string
	// Code 在早期数据中可能缺失
	Code string
	// Votes 是职位名到候选人名的映射
	Votes map[string]string
	// Time 原样保存，早期数据并不都是 RFC 3339
	Time string
	// Extra 保存记录中其余的字段，序列化时原样写回
	Extra map[string]json.RawMessage
}

// ballotJSON 是选票的存储格式
type ballotJSON struct {
	StudentID string            `json:"studentID"`
	Name      string            `json:"name"`
	Code      string            `json:"code,omitempty"`
	Votes     map[string]string `json:"votes"`
	Time      json.RawMessage   `json:"time,omitempty"`
}

var knownFields = []string{"studentID", "name", "code", "votes", "time"}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// UnmarshalJSON 只在JSON本身损坏或已知字段类型不符时失败。
// time 可以是任意JSON值，非字符串时保留其原始文本。
func (b *Ballot) UnmarshalJSON(data []byte) error {
	var raw ballotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownFields {
		delete(all, k)
	}

	*b = Ballot{
		StudentID: raw.StudentID,
		Name:      raw.Name,
		Code:      raw.Code,
		Votes:     raw.Votes,
	}
	if len(raw.Time) > 0 && string(raw.Time) != "null" {
		var s string
		if err := json.Unmarshal(raw.Time, &s); err == nil {
			b.Time = s
		} else {
			b.Time = string(raw.Time)
		}
	}
	if len(all) > 0 {
		b.Extra = all
	}
	return nil
}

// MarshalJSON 写出已知字段，并合并 Extra 中的其余字段
func (b Ballot) MarshalJSON() ([]byte, error) {
	out := ballotJSON{
		StudentID: b.StudentID,
		Name:      b.Name,
		Code:      b.Code,
		Votes:     b.Votes,
	}
	if b.Time != "" {
		t, err := json.Marshal(b.Time)
		if err != nil {
			return nil, err
		}
		out.Time = t
	}
	base, err := json.Marshal(out)
	if err != nil || len(b.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]json.RawMessage, len(b.Extra)+len(knownFields))
	for k, v := range b.Extra {
		merged[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(base, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// TallyKey 是计票的复合键
type TallyKey struct {
	Position  string
	Candidate string
}

// String 以 "<position>_<candidate>" 序列化，只在HTTP边界使用。
// 职位名或候选人名中含有下划线时会产生冲突，这是该格式的已知限制。
func (k TallyKey) String() string {
	return k.Position + "_" + k.Candidate
}

// Results 是计票结果
type Results struct {
	Tallies map[TallyKey]int
	// Ballots 按存储顺序 (最新在前)
	Ballots []Ballot
}

var (
	ErrInvalidInput    = errors.New("invalid vote data")
	ErrCodeNotFound    = errors.New("code does not exist")
	ErrCodeAlreadyUsed = errors.New("code already used")
	ErrNotFound        = errors.New("voter record not found")
	// ErrConflict 表示乐观并发重试耗尽
	ErrConflict = errors.New("concurrent modification, please retry")
)

// candidateOrDefault 把空候选人替换为 NoSelection
func candidateOrDefault(candidate string) string {
	if candidate == "" {
		return NoSelection
	}
	return candidate
}
