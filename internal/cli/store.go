package cli

import (
	"fmt"
	"os"

	"github.com/roach88/tapdance/internal/store"
)

// DBOptions selects the session database. An empty path means the
// configured store.path.
type DBOptions struct {
	DB string
}

func (o DBOptions) path(root *RootOptions) string {
	if o.DB != "" {
		return o.DB
	}
	return root.Config().Store.Path
}

// openExistingStore opens a database that must already exist. Opening a
// missing path would create an empty one.
func openExistingStore(formatter *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
	}
	return st, nil
}
