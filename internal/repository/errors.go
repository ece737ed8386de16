// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// services to distinguish between different failure scenarios.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique constraint, such
// as registering an email address that is already taken.
var ErrConflict = errors.New("conflict")

// ErrHierarchyChanged is returned when the supplier chain of a node moved
// between validation and the write: the supplier vanished, its level no
// longer matches, or the chain now loops back to the node.
var ErrHierarchyChanged = errors.New("supplier chain changed")

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL duplicate-key error.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
