package grid

import (
	"fmt"

	"photomaker/internal/intake"
)

// DesignWriter is the part of intake.List a card writes its annotation through to.
type DesignWriter interface {
	SetDesign(id int, design string) bool
}

// Card is the visual unit for exactly one item id.
type Card struct {
	ID   int
	Item intake.Item
	Pos  Point

	list DesignWriter
}

// SetDesign updates the bound item in the list immediately; there is no separate commit.
func (c *Card) SetDesign(v string) bool {
	if c.list == nil || !c.list.SetDesign(c.ID, v) {
		return false
	}
	c.Item.Design = v
	return true
}

func (c *Card) Design() string { return c.Item.Design }

// Container holds placed cards keyed by item id, in placement order.
type Container struct {
	cards map[int]*Card
	order []int
}

func NewContainer() *Container {
	return &Container{cards: map[int]*Card{}}
}

// Place adds a card. Placing a second card for the same id is an error.
func (c *Container) Place(card *Card) error {
	if _, ok := c.cards[card.ID]; ok {
		return fmt.Errorf("grid: item %d already has a card", card.ID)
	}
	c.cards[card.ID] = card
	c.order = append(c.order, card.ID)
	return nil
}

func (c *Container) Card(id int) (*Card, bool) {
	card, ok := c.cards[id]
	return card, ok
}

// Cards returns the placed cards in placement order.
func (c *Container) Cards() []*Card {
	out := make([]*Card, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.cards[id])
	}
	return out
}

func (c *Container) Len() int { return len(c.order) }

// Clear removes every card.
func (c *Container) Clear() {
	c.cards = map[int]*Card{}
	c.order = nil
}
