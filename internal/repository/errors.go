// Package repository persists users, bearer sessions and password reset
// tokens.  MySQL is the primary store; sessions may live in Redis instead,
// and in-memory stores back tests and local runs.  The sentinel errors below
// let the service layer tell expected misses apart from store faults.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when a user insert hits the unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when the requested row does not exist (or, for
// sessions, has expired).
var ErrNotFound = errors.New("not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
