package model

import (
	"strconv"
	"strings"
)

// Tag represents a parsed "db" struct tag.
//
//	ID   string `db:"column:id;pk"`
//	Slug string `db:"column:slug;unique;notnull;size:96"`
type Tag struct {
	Column     string
	PrimaryKey bool
	AutoInc    bool
	Size       int
	Unique     bool
	NotNull    bool
	AutoTime   bool
	AutoUpdate bool
	Ignore     bool
}

// ParseTag parses the "db" tag string. Parts may be separated by
// semicolons, commas or spaces.
func ParseTag(tagStr string) *Tag {
	tag := &Tag{}
	if tagStr == "" {
		return tag
	}
	if tagStr == "-" {
		tag.Ignore = true
		return tag
	}

	parts := strings.FieldsFunc(tagStr, func(r rune) bool {
		return r == ';' || r == ',' || r == ' '
	})

	for _, part := range parts {
		kv := strings.SplitN(part, ":", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		var val string
		if len(kv) > 1 {
			val = strings.TrimSpace(kv[1])
		}

		switch key {
		case "column":
			tag.Column = val
		case "pk":
			tag.PrimaryKey = true
		case "auto":
			tag.AutoInc = true
		case "unique":
			tag.Unique = true
		case "notnull":
			tag.NotNull = true
		case "size":
			if n, err := strconv.Atoi(val); err == nil {
				tag.Size = n
			}
		case "auto_time":
			tag.AutoTime = true
		case "auto_update":
			tag.AutoUpdate = true
		}
	}
	return tag
}
