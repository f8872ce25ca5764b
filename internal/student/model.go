package student

import (
	"strconv"
	"strings"
)

// 定义与学生相关的Redis键名
const (
	// KeyPrefix 是学生档案Hash的键前缀。
	// Key: student:<id>
	KeyPrefix  = "student:"
	keyPattern = KeyPrefix + "*"
)

// Key 返回学生档案的键
func Key(id string) string { return KeyPrefix + id }

func idFromKey(key string) string { return strings.TrimPrefix(key, KeyPrefix) }

// Student 是学生档案。除 ID 和 Name 外的字段都是自由文本，Age 若给出必须为非负整数。
type Student struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Name        string `json:"name"`
	Suffix      string `json:"suffix,omitempty"`
	Sex         string `json:"sex,omitempty"`
	Birthday    string `json:"birthday,omitempty"`
	Age         *int   `json:"age,omitempty" binding:"omitempty,min=0"`
	PostalCode  string `json:"postalCode,omitempty"`
	Citizenship string `json:"citizenship,omitempty"`
	CivilStatus string `json:"civilStatus,omitempty"`
	Course      string `json:"course,omitempty"`
	Address     string `json:"address,omitempty"`
}

// hashFields 返回写入Redis的非空字段。ID 本身是键的一部分，不写入Hash。
func (s Student) hashFields() map[string]interface{} {
	fields := map[string]interface{}{}
	put := func(name, value string) {
		if value != "" {
			fields[name] = value
		}
	}
	put("title", s.Title)
	put("name", s.Name)
	put("suffix", s.Suffix)
	put("sex", s.Sex)
	put("birthday", s.Birthday)
	if s.Age != nil {
		fields["age"] = strconv.Itoa(*s.Age)
	}
	put("postalCode", s.PostalCode)
	put("citizenship", s.Citizenship)
	put("civilStatus", s.CivilStatus)
	put("course", s.Course)
	put("address", s.Address)
	return fields
}

func fromHash(id string, h map[string]string) Student {
	s := Student{
		ID:          id,
		Title:       h["title"],
		Name:        h["name"],
		Suffix:      h["suffix"],
		Sex:         h["sex"],
		Birthday:    h["birthday"],
		PostalCode:  h["postalCode"],
		Citizenship: h["citizenship"],
		CivilStatus: h["civilStatus"],
		Course:      h["course"],
		Address:     h["address"],
	}
	// 早期数据中的 age 可能不是整数，这种情况下忽略
	if age, err := strconv.Atoi(h["age"]); err == nil {
		s.Age = &age
	}
	return s
}
