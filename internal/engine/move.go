package engine

import "fmt"

type Move struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NoMove is returned when the board has no empty cell left.
var NoMove = Move{X: -1, Y: -1}

func (m Move) IsValid(boardSize int) bool {
	return m.X >= 0 && m.Y >= 0 && m.X < boardSize && m.Y < boardSize
}

func (m Move) Equals(other Move) bool {
	return m.X == other.X && m.Y == other.Y
}

func (m Move) String() string {
	return fmt.Sprintf("[%d, %d]", m.X, m.Y)
}
