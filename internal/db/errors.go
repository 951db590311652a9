package db

import "errors"

// Sentinel errors for store operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Op names the failed store operation in an Error.
type Op string

// Valkey commands.
const (
	OpCreateIndex Op = "FT.CREATE"
	OpDropIndex   Op = "FT.DROPINDEX"
	OpIndexInfo   Op = "FT.INFO"
	OpSearch      Op = "FT.SEARCH"
	OpDel         Op = "DEL"
	OpHGet        Op = "HGET"
	OpHGetAll     Op = "HGETALL"
	OpHSet        Op = "HSET"
	OpScan        Op = "SCAN"
)

// Postgres pool operations.
const (
	OpAcquire Op = "ACQUIRE"
	OpExec    Op = "EXEC"
)

// Error wraps a backend error with the operation that produced it.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string { return string(e.Op) + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
