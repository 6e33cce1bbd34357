// Package fakes holds in-memory stand-ins for pgx transactions used by unit tests.
package fakes

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ExecFunc answers Exec calls made through a fake pool or transaction.
type ExecFunc func(sql string, args ...any) (pgconn.CommandTag, error)

// Pool hands out a fresh Tx per Begin and remembers the last one. ExecFn is
// shared by the pool and every Tx it hands out.
type Pool struct {
	BeginErr error
	ExecFn   ExecFunc
	Tx       *Tx
	Begins   int
}

func (p *Pool) Begin(ctx context.Context) (pgx.Tx, error) {
	if p.BeginErr != nil {
		return nil, p.BeginErr
	}
	p.Begins++
	p.Tx = &Tx{ExecFn: p.ExecFn}
	return p.Tx, nil
}

func (p *Pool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if p.ExecFn == nil {
		panic("fakes: pool Exec without ExecFn")
	}
	return p.ExecFn(sql, args...)
}

// Tx records whether it was committed or rolled back. Only Exec is supported,
// through ExecFn; repositories are faked at the interface level instead.
type Tx struct {
	Rolled    bool
	Committed bool
	CommitErr error
	ExecFn    ExecFunc
}

func (f *Tx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakes: nested transactions not supported")
}

func (f *Tx) Commit(context.Context) error {
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.Committed = true
	return nil
}

func (f *Tx) Rollback(context.Context) error {
	if !f.Committed {
		f.Rolled = true
	}
	return nil
}

func (f *Tx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *Tx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *Tx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *Tx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *Tx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.ExecFn == nil {
		panic("not implemented")
	}
	return f.ExecFn(sql, args...)
}

func (f *Tx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *Tx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *Tx) Conn() *pgx.Conn {
	return nil
}
