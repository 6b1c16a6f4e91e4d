package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoom_PlayersKeepJoinOrder(t *testing.T) {
	r := NewRoom("ROOM01", Player{ID: "a", Name: "A"})
	r.AddPlayer(Player{ID: "b", Name: "B"})
	r.AddPlayer(Player{ID: "c", Name: "C"})
	r.AddPlayer(Player{ID: "d", Name: "D"})

	assert.True(t, r.RemovePlayer("b"))
	assert.False(t, r.RemovePlayer("b"))

	ids := []string{}
	for _, p := range r.Players() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "c", "d"}, ids)
}

func TestRoom_AllReady(t *testing.T) {
	r := NewRoom("ROOM01", Player{ID: "a"})
	r.AddPlayer(Player{ID: "b"})
	assert.False(t, r.AllReady())

	for _, id := range []string{"a", "b"} {
		p, ok := r.Player(id)
		assert.True(t, ok)
		p.Ready = true
	}
	assert.True(t, r.AllReady())

	_, ok := r.Player("zzz")
	assert.False(t, ok)
}

func TestRoom_PlayersIsACopy(t *testing.T) {
	r := NewRoom("ROOM01", Player{ID: "a"})
	snapshot := r.Players()

	p, _ := r.Player("a")
	p.Ready = true

	assert.False(t, snapshot[0].Ready)
	assert.True(t, r.Info().Players[0].Ready)
	assert.False(t, r.Info().HasGameState)
}

func TestRoom_Full(t *testing.T) {
	r := NewRoom("ROOM01", Player{ID: "a"})
	assert.False(t, r.Full(2))
	r.AddPlayer(Player{ID: "b"})
	assert.True(t, r.Full(2))
	assert.Equal(t, 2, r.Len())
}
