package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/dlclark/regexp2"
	sqlite3 "github.com/mattn/go-sqlite3"
	msqlite "modernc.org/sqlite"

	"github.com/codesearch/codesearch/codesearch/query"
)

// MattnDriverName is the mattn/go-sqlite3 driver with the regexp function
// installed on every connection. It needs a cgo build.
const MattnDriverName = "codesearch_sqlite3"

func init() {
	// Both drivers get the same regexp(pattern, value) so "x REGEXP ?"
	// matches with the dialect the highlighter uses.
	msqlite.MustRegisterDeterministicScalarFunction("regexp", 2, moderncRegexp)
	sql.Register(MattnDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

func moderncRegexp(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	pattern, err := asString(args[0])
	if err != nil {
		return nil, err
	}
	value, err := asString(args[1])
	if err != nil {
		return nil, err
	}
	ok, err := regexpMatch(pattern, value)
	if err != nil {
		return nil, err
	}
	if ok {
		return int64(1), nil
	}
	return int64(0), nil
}

func asString(v driver.Value) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	default:
		return "", fmt.Errorf("regexp: unsupported argument type %T", v)
	}
}

func regexpMatch(pattern, value string) (bool, error) {
	re, err := patterns.get(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(value)
}

const maxCachedPatterns = 64

// patternCache avoids recompiling the same pattern for every row.
type patternCache struct {
	mu sync.Mutex
	m  map[string]*regexp2.Regexp
}

var patterns = &patternCache{m: make(map[string]*regexp2.Regexp)}

func (c *patternCache) get(pattern string) (*regexp2.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.m[pattern]; ok {
		return re, nil
	}
	re, err := query.CompilePattern(pattern, 0)
	if err != nil {
		return nil, err
	}
	if len(c.m) >= maxCachedPatterns {
		clear(c.m)
	}
	c.m[pattern] = re
	return re, nil
}
