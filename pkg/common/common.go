package common

import (
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

const NA = "N/A"

var (
	snowflakeOnce sync.Once
	snowflakeNode *snowflake.Node
)

// UUIDint64 returns a time ordered unique int64 id
func UUIDint64() int64 {
	snowflakeOnce.Do(func() {
		node, err := snowflake.NewNode(1)
		if err != nil {
			zap.S().Fatalf("init snowflake node: %v", err)
		}
		snowflakeNode = node
	})
	return snowflakeNode.Generate().Int64()
}

// IfEmptyStr returns defval when src is blank
func IfEmptyStr(src string, defval string) string {
	if strings.TrimSpace(src) == "" {
		return defval
	}
	return src
}

// RoundFloat rounds the exact binary value of v to places decimals,
// ties go to the even digit
func RoundFloat(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
