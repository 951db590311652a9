package valkey

import (
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/shelfwise/internal/db"
)

// ftError maps valkey-search index replies onto db sentinels. Any other failure is
// tagged with op. The module reports a missing index as either "Index with name
// 'x' not found" or "Unknown index name".
func ftError(op db.Op, err error) error {
	if re, ok := rueidis.IsRedisErr(err); ok {
		msg := strings.ToLower(re.Error())
		switch {
		case strings.Contains(msg, "already exists"):
			return db.ErrIndexExists
		case strings.Contains(msg, "not found"), strings.Contains(msg, "unknown index name"):
			return db.ErrIndexNotFound
		}
	}
	return &db.Error{Op: op, Err: err}
}
