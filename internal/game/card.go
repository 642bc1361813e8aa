package game

import "math/rand"

// Color represents a card color
type Color string

const (
	Red    Color = "red"
	Green  Color = "green"
	Blue   Color = "blue"
	Yellow Color = "yellow"
	Wild   Color = "wild"
)

// Concrete colors a wild card may be resolved to
var concreteColors = []Color{Red, Green, Blue, Yellow}

// IsConcrete reports whether the color is one a wild card can take.
func (c Color) IsConcrete() bool {
	switch c {
	case Red, Green, Blue, Yellow:
		return true
	}
	return false
}

// Value represents a card face value
type Value string

const (
	Zero      Value = "0"
	One       Value = "1"
	Two       Value = "2"
	Three     Value = "3"
	Four      Value = "4"
	Five      Value = "5"
	Six       Value = "6"
	Seven     Value = "7"
	Eight     Value = "8"
	Nine      Value = "9"
	Skip      Value = "skip"
	Reverse   Value = "reverse"
	DrawTwo   Value = "draw_two"
	WildCard  Value = "wild"
	DrawFour  Value = "draw_four"
)

// Card represents a playing card. Wild cards have Color == Wild; the chosen
// color lives on the discard pile entry, not on the card itself.
type Card struct {
	Color Color `json:"color"`
	Value Value `json:"value"`
}

// IsWild returns true for plain wilds and wild-draw-fours.
func (c Card) IsWild() bool {
	return c.Color == Wild
}

// PlayedCard is a card on the discard pile. ChosenColor is set only for a
// wild card whose color selection has completed.
type PlayedCard struct {
	Card
	ChosenColor Color `json:"chosen_color,omitempty"`
}

// EffectiveColor is the color the next card must match: the chosen color for
// a resolved wild, the intrinsic color otherwise.
func (p PlayedCard) EffectiveColor() Color {
	if p.ChosenColor != "" {
		return p.ChosenColor
	}
	return p.Color
}

// CanPlayOn checks the legality rule: wilds always match, everything else
// matches by effective color or by value.
func (c Card) CanPlayOn(top PlayedCard) bool {
	if c.IsWild() {
		return true
	}
	return c.Color == top.EffectiveColor() || c.Value == top.Value
}

// DeckSize is the size of the canonical deck.
const DeckSize = 108

// Deck is an ordered stack of cards; draws pop from the tail. It carries no
// lock of its own - all mutation happens under the owning room's lock.
type Deck struct {
	cards []Card
}

// NewDeck builds the canonical 108-card deck, unshuffled: per color one 0 and
// two each of 1-9/skip/reverse/draw-two, plus four wilds and four draw-fours.
func NewDeck() *Deck {
	values := []Value{Zero, One, Two, Three, Four, Five, Six, Seven, Eight, Nine, Skip, Reverse, DrawTwo}

	cards := make([]Card, 0, DeckSize)
	for _, color := range concreteColors {
		for _, value := range values {
			cards = append(cards, Card{Color: color, Value: value})
			if value != Zero {
				cards = append(cards, Card{Color: color, Value: value})
			}
		}
	}
	for i := 0; i < 4; i++ {
		cards = append(cards, Card{Color: Wild, Value: WildCard})
		cards = append(cards, Card{Color: Wild, Value: DrawFour})
	}

	return &Deck{cards: cards}
}

// Shuffle randomizes the deck (Fisher-Yates). The shared math/rand source is
// safe for concurrent rooms and never reuses a seed across close calls.
func (d *Deck) Shuffle() {
	rand.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top (tail) card.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckEmpty
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, nil
}

// DrawMultiple removes and returns count cards. Fails up front with
// ErrInsufficientCards when the deck is short - the caller must recycle first.
func (d *Deck) DrawMultiple(count int) ([]Card, error) {
	if count > len(d.cards) {
		return nil, ErrInsufficientCards
	}
	cards := make([]Card, 0, count)
	for i := 0; i < count; i++ {
		card, err := d.Draw()
		if err != nil {
			return cards, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// Len returns the number of cards left.
func (d *Deck) Len() int {
	return len(d.cards)
}

// ReturnCard puts a card back into the deck and reshuffles. Used when the
// initial flip turns up a card that may not start the discard pile.
func (d *Deck) ReturnCard(card Card) {
	d.cards = append(d.cards, card)
	d.Shuffle()
}

// RecycleFrom rebuilds the deck from a discard pile, leaving only the top
// card behind. Chosen colors are stripped so recycled wilds are unresolved
// again. Returns the one-card discard pile that remains.
func (d *Deck) RecycleFrom(discard []PlayedCard) ([]PlayedCard, error) {
	if len(discard) <= 1 {
		return discard, ErrUnrecoverableEmpty
	}

	top := discard[len(discard)-1]
	for _, played := range discard[:len(discard)-1] {
		d.cards = append(d.cards, played.Card)
	}
	d.Shuffle()

	return []PlayedCard{top}, nil
}
