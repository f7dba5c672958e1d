package server

import (
	"errors"
	"os"
	"path/filepath"
	"slices"

	"github.com/ubco-db/btree/internal/auth"
)

func (s *Server) createUserCommand(sess *Session, parts []string) Response {
	if !sess.IsAuth() {
		return errResponse(msgNoAuth)
	}
	if !sess.user.IsSuperuser() {
		return errResponse(msgNoPerm)
	}
	if len(parts) != 4 {
		return usage("CREATEUSER <username> <password> <role>")
	}

	username := parts[1]
	if _, err := s.store.GetUser(username); err == nil {
		return errResponse("user already exists")
	}

	role := auth.Role(parts[3])
	switch role {
	case auth.RoleSuperuser, auth.RoleUser, auth.RoleGuest:
	default:
		return errResponse("invalid role")
	}

	hash, err := auth.HashPassword(parts[2])
	if err != nil {
		return errResponse("failed to hash password")
	}

	u := &auth.User{
		Username: username,
		Password: hash,
		Role:     role,
		AccessDB: []string{},
	}
	if err := s.store.SaveUser(u); err != nil {
		return errResponse(err.Error())
	}
	return respond(msgOK)
}

func (s *Server) delUserCommand(sess *Session, parts []string) Response {
	if !sess.IsAuth() {
		return errResponse(msgNoAuth)
	}
	if !sess.user.IsSuperuser() {
		return errResponse(msgNoPerm)
	}
	if len(parts) != 2 {
		return usage("DELUSER <username>")
	}
	if _, err := s.store.GetUser(parts[1]); err != nil {
		return errResponse(err.Error())
	}
	if err := s.store.DeleteUser(parts[1]); err != nil {
		return errResponse(err.Error())
	}
	return respond(msgOK)
}

func (s *Server) grantDBCommand(sess *Session, parts []string) Response {
	if !sess.IsAuth() {
		return errResponse(msgNoAuth)
	}
	if !sess.user.IsSuperuser() {
		return errResponse(msgNoPerm)
	}
	if len(parts) != 3 {
		return usage("GRANTDB <user> <dbname>")
	}
	u, err := s.store.GetUser(parts[1])
	if err != nil {
		return errResponse(err.Error())
	}
	u.AccessDB = append(u.AccessDB, parts[2])
	if err := s.store.SaveUser(u); err != nil {
		return errResponse("failed to grant db")
	}
	return respond(msgOK)
}

func (s *Server) revokeDBCommand(sess *Session, parts []string) Response {
	if !sess.IsAuth() {
		return errResponse(msgNoAuth)
	}
	if !sess.user.IsSuperuser() {
		return errResponse(msgNoPerm)
	}
	if len(parts) != 3 {
		return usage("REVOKEDB <user> <dbname>")
	}
	u, err := s.store.GetUser(parts[1])
	if err != nil {
		return errResponse(err.Error())
	}
	if i := slices.Index(u.AccessDB, parts[2]); i != -1 {
		u.AccessDB = append(u.AccessDB[:i], u.AccessDB[i+1:]...)
	}
	if err := s.store.SaveUser(u); err != nil {
		return errResponse(err.Error())
	}
	return respond(msgOK)
}

func (s *Server) dropDBCommand(sess *Session, parts []string) Response {
	if !sess.IsAuth() {
		return errResponse(msgNoAuth)
	}
	if !sess.user.IsSuperuser() {
		return errResponse(msgNoPerm)
	}
	if len(parts) != 2 {
		return usage("DROPDB <dbname>")
	}

	dbname := parts[1]
	path := filepath.Join(s.cfg.DataDir, dbname, dbname+".db")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return errResponse("could not find db")
	}
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		return errResponse("failed to remove db")
	}
	return respond(msgOK)
}
