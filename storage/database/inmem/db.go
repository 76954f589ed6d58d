package inmemdb

import (
	"sync"

	"github.com/alumnihub/backend/core/alumni"
)

type (
	DB struct {
		alumni *alumniTable
	}

	alumniTable struct {
		mutex sync.RWMutex
		table map[string]*alumni.Alumni
	}
)

func Open() *DB {
	return &DB{
		alumni: &alumniTable{table: make(map[string]*alumni.Alumni)},
	}
}

// Reset drops every stored row.
func (db *DB) Reset() {
	db.alumni.mutex.Lock()
	defer db.alumni.mutex.Unlock()
	db.alumni.table = make(map[string]*alumni.Alumni)
}
