package dummydb

import (
	"sync"

	"github.com/easystudy/backend/core/user"
)

type userTable struct {
	sync.RWMutex
	table map[string]*user.User
}

// DB is an in-memory stand-in for the real database; used in tests and in
// TEST mode.
type DB struct {
	user *userTable
}

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
	}
	return db, nil
}
