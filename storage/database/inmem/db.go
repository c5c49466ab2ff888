// Package inmemdb provides map-backed repositories for tests.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hallpass-app/hallpass/core/classroom"
	"github.com/hallpass-app/hallpass/core/messaging"
	"github.com/hallpass-app/hallpass/core/report"
	"github.com/hallpass-app/hallpass/core/story"
	"github.com/hallpass-app/hallpass/core/user"
)

// rec wraps a stored value with its insertion sequence so queries can
// return rows in creation order regardless of map iteration.
type rec[T any] struct {
	seq int
	val T
}

type DB struct {
	mutex sync.RWMutex
	seq   int

	users         map[string]*rec[user.User]
	classrooms    map[string]*rec[classroom.Classroom]
	students      map[string]*rec[classroom.Student]
	conversations map[string]*rec[messaging.Conversation]
	messages      map[string]*rec[messaging.Message]
	stories       map[string]*rec[story.Story]
	points        map[string]*rec[story.PointRecord]
	districts     map[string]*rec[report.District]
	schools       map[string]*rec[report.School]
}

func NewDB() *DB {
	return &DB{
		users:         make(map[string]*rec[user.User]),
		classrooms:    make(map[string]*rec[classroom.Classroom]),
		students:      make(map[string]*rec[classroom.Student]),
		conversations: make(map[string]*rec[messaging.Conversation]),
		messages:      make(map[string]*rec[messaging.Message]),
		stories:       make(map[string]*rec[story.Story]),
		points:        make(map[string]*rec[story.PointRecord]),
		districts:     make(map[string]*rec[report.District]),
		schools:       make(map[string]*rec[report.School]),
	}
}

// nextSeq must be called with db.mutex held.
func (db *DB) nextSeq() int {
	db.seq++
	return db.seq
}

func newID() string { return uuid.New().String() }

// ordered returns the table's values in insertion order, filtered by keep.
// Must be called with db.mutex held (read lock suffices).
func ordered[T any](table map[string]*rec[T], keep func(T) bool) []T {
	recs := make([]*rec[T], 0, len(table))
	for _, r := range table {
		if keep == nil || keep(r.val) {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	vals := make([]T, 0, len(recs))
	for _, r := range recs {
		vals = append(vals, r.val)
	}
	return vals
}
