package memory

import (
	"errors"

	"github.com/adwski/game-relay/backend/model"
)

var (
	ErrRoomNotFound  = errors.New("room is not found")
	ErrDuplicateCode = errors.New("room code is already taken")
)

// MemStore holds live rooms keyed by room code.
// It has no locking, callers must access it from a single goroutine.
type MemStore struct {
	db map[string]*model.Room
}

func NewMemStore() *MemStore {
	return &MemStore{
		db: make(map[string]*model.Room),
	}
}

func (ms *MemStore) CreateRoom(code string, first model.Player) (*model.Room, error) {
	if _, ok := ms.db[code]; ok {
		return nil, ErrDuplicateCode
	}
	room := model.NewRoom(code, first)
	ms.db[code] = room
	return room, nil
}

func (ms *MemStore) GetRoom(code string) (*model.Room, error) {
	room, ok := ms.db[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (ms *MemStore) DeleteRoom(code string) {
	delete(ms.db, code)
}

// ForEachRoom calls fn for every live room. fn may delete the room it is given.
func (ms *MemStore) ForEachRoom(fn func(*model.Room)) {
	for _, room := range ms.db {
		fn(room)
	}
}

func (ms *MemStore) Len() int {
	return len(ms.db)
}
