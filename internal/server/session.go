package server

import (
	"github.com/ubco-db/btree/internal/auth"
	"github.com/ubco-db/btree/internal/engine"
)

type Session struct {
	user     *auth.User
	database *engine.Database
	dbName   string
}

func (s *Session) IsAuth() bool {
	return s.user != nil
}

func (s *Session) CloseDB() {
	if s.database != nil {
		_ = s.database.Close()
		s.database = nil
		s.dbName = ""
	}
}
