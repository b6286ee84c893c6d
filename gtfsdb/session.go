package gtfsdb

import (
	"database/sql"
	"errors"
)

// Session is a Queries bound to a single pooled connection. Cursors opened
// through a session never outlive it.
type Session struct {
	*Queries
	conn *sql.Conn
}

func newSession(conn *sql.Conn) *Session {
	return &Session{
		Queries: New(conn),
		conn:    conn,
	}
}

// Close returns the connection to the pool. Closing twice is a no-op.
func (s *Session) Close() error {
	err := s.conn.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}
