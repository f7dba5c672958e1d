package server

import (
	"fmt"

	"github.com/ubco-db/btree/internal/engine"
)

// Prompt is written after every response so an interactive client
// (netcat, telnet) has a visible cue to type the next command.
const Prompt = "> "

const (
	msgOK     = "OK"
	msgNoAuth = "not authenticated"
	msgNoDB   = "no open database"
	msgNoPerm = "permission denied"
)

// Response is one line-protocol reply. Close tells the connection
// handler to drop the connection after writing it (used by EXIT).
type Response struct {
	Text  string
	Close bool
}

func respond(text string) Response    { return Response{Text: text} }
func errResponse(text string) Response { return Response{Text: "ERR: " + text} }
func usage(text string) Response      { return errResponse("usage: " + text) }

func (s *Server) authCommand(sess *Session, parts []string) Response {
	if len(parts) != 3 {
		return usage("AUTH <username> <password>")
	}
	u, err := s.auth.Authenticate(parts[1], parts[2])
	if err != nil {
		return errResponse(err.Error())
	}
	sess.user = u
	return respond(msgOK)
}

func (s *Server) openDBCommand(sess *Session, parts []string) Response {
	if !sess.IsAuth() {
		return errResponse(msgNoAuth)
	}
	if len(parts) != 2 {
		return usage("OPEN <dbname>")
	}

	name := parts[1]
	if !sess.user.CanOpenDB(name) {
		return errResponse(msgNoPerm)
	}

	sess.CloseDB()

	db, err := engine.Open(name, s.cfg)
	if err != nil {
		return errResponse(fmt.Sprintf("failed to open db: %v", err))
	}

	sess.database = db
	sess.dbName = name
	return respond(msgOK)
}

func setCommand(sess *Session, parts []string) Response {
	if sess.database == nil {
		return errResponse(msgNoDB)
	}
	if len(parts) != 3 {
		return usage("SET <key> <value>")
	}
	if sess.user != nil && sess.user.IsGuest() {
		return errResponse(msgNoPerm)
	}
	if err := sess.database.Set(parts[1], []byte(parts[2])); err != nil {
		return errResponse(err.Error())
	}
	return respond(msgOK)
}

func getCommand(sess *Session, parts []string) Response {
	if sess.database == nil {
		return errResponse(msgNoDB)
	}
	if len(parts) != 2 {
		return usage("GET <key>")
	}
	val, err := sess.database.Get(parts[1])
	if err != nil {
		return errResponse(err.Error())
	}
	return respond(string(val))
}

func delCommand(sess *Session, parts []string) Response {
	if sess.database == nil {
		return errResponse(msgNoDB)
	}
	if len(parts) != 2 {
		return usage("DEL <key>")
	}
	if err := sess.database.Del(parts[1]); err != nil {
		return errResponse(err.Error())
	}
	return respond(msgOK)
}

// iterCommand streams every stored record as "<hex-key>=<value>"
// lines, terminated by a bare ".". Because keys are hashed on the way
// in, the range printed here is over the internal hashed key space,
// not the caller's original strings.
func iterCommand(sess *Session, parts []string) Response {
	if sess.database == nil {
		return errResponse(msgNoDB)
	}
	var lines []byte
	err := sess.database.Iterate(func(key, value []byte) error {
		lines = append(lines, []byte(fmt.Sprintf("%x=%s\n", key, value))...)
		return nil
	})
	if err != nil {
		return errResponse(err.Error())
	}
	return respond(string(lines) + ".")
}
