package game

import (
	"testing"
)

func TestNewDeckComposition(t *testing.T) {
	deck := NewDeck()

	if deck.Len() != DeckSize {
		t.Fatalf("expected %d cards, got %d", DeckSize, deck.Len())
	}

	colorCounts := make(map[Color]int)
	valueCounts := make(map[Value]int)
	for _, c := range deck.cards {
		colorCounts[c.Color]++
		valueCounts[c.Value]++
	}

	for _, color := range concreteColors {
		if colorCounts[color] != 25 {
			t.Errorf("expected 25 %s cards, got %d", color, colorCounts[color])
		}
	}
	if colorCounts[Wild] != 8 {
		t.Errorf("expected 8 wild-colored cards, got %d", colorCounts[Wild])
	}
	if valueCounts[Zero] != 4 {
		t.Errorf("expected 4 zeros, got %d", valueCounts[Zero])
	}
	for _, v := range []Value{One, Nine, Skip, Reverse, DrawTwo} {
		if valueCounts[v] != 8 {
			t.Errorf("expected 8 %s cards, got %d", v, valueCounts[v])
		}
	}
	if valueCounts[WildCard] != 4 || valueCounts[DrawFour] != 4 {
		t.Errorf("expected 4 wilds and 4 draw-fours, got %d and %d", valueCounts[WildCard], valueCounts[DrawFour])
	}
}

func TestShufflePreservesMultiset(t *testing.T) {
	deck := NewDeck()
	before := make(map[Card]int)
	for _, c := range deck.cards {
		before[c]++
	}

	deck.Shuffle()

	after := make(map[Card]int)
	for _, c := range deck.cards {
		after[c]++
	}
	for card, n := range before {
		if after[card] != n {
			t.Fatalf("shuffle changed count of %v: %d -> %d", card, n, after[card])
		}
	}
}

func TestShuffleUniformPositions(t *testing.T) {
	marked := Card{Color: Red, Value: Zero}
	base := []Card{
		marked,
		{Color: Blue, Value: One},
		{Color: Green, Value: Two},
		{Color: Yellow, Value: Three},
		{Color: Red, Value: Four},
		{Color: Blue, Value: Five},
	}

	const trials = 6000
	counts := make([]int, len(base))
	for i := 0; i < trials; i++ {
		deck := &Deck{cards: append([]Card(nil), base...)}
		deck.Shuffle()
		for pos, c := range deck.cards {
			if c == marked {
				counts[pos]++
				break
			}
		}
	}

	// Uniform shuffling puts the marked card in each position trials/6 times.
	// The tolerance is over five standard deviations, so a correct shuffle
	// essentially never trips it while a positional bias does.
	expected := trials / len(base)
	for pos, n := range counts {
		if n < expected-150 || n > expected+150 {
			t.Errorf("marked card landed in position %d %d times, expected about %d", pos, n, expected)
		}
	}
}

func TestDrawMultipleInsufficient(t *testing.T) {
	deck := NewDeck()
	if _, err := deck.DrawMultiple(DeckSize + 1); err != ErrInsufficientCards {
		t.Fatalf("expected ErrInsufficientCards, got %v", err)
	}
	if deck.Len() != DeckSize {
		t.Fatalf("failed draw must not consume cards, deck has %d", deck.Len())
	}
}

func TestDrawEmptyDeck(t *testing.T) {
	deck := &Deck{}
	if _, err := deck.Draw(); err != ErrDeckEmpty {
		t.Fatalf("expected ErrDeckEmpty, got %v", err)
	}
}

func TestRecycleFromKeepsTopAndStripsColors(t *testing.T) {
	deck := &Deck{}
	discard := []PlayedCard{
		{Card: Card{Color: Red, Value: Five}},
		{Card: Card{Color: Wild, Value: WildCard}, ChosenColor: Blue},
		{Card: Card{Color: Green, Value: Skip}},
	}

	remaining, err := deck.RecycleFrom(discard)
	if err != nil {
		t.Fatalf("recycle failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 card left on discard, got %d", len(remaining))
	}
	if remaining[0].Value != Skip || remaining[0].Color != Green {
		t.Fatalf("top card changed during recycle: %+v", remaining[0])
	}
	if deck.Len() != 2 {
		t.Fatalf("expected 2 recycled cards, got %d", deck.Len())
	}
	for _, c := range deck.cards {
		if c.Value == WildCard && c.Color != Wild {
			t.Fatalf("recycled wild must be unresolved, got color %s", c.Color)
		}
	}
}

func TestRecycleFromUnrecoverable(t *testing.T) {
	deck := &Deck{}
	discard := []PlayedCard{{Card: Card{Color: Red, Value: Five}}}
	if _, err := deck.RecycleFrom(discard); err != ErrUnrecoverableEmpty {
		t.Fatalf("expected ErrUnrecoverableEmpty, got %v", err)
	}
}

func TestCanPlayOn(t *testing.T) {
	top := PlayedCard{Card: Card{Color: Red, Value: Five}}

	cases := []struct {
		card Card
		want bool
	}{
		{Card{Color: Red, Value: Nine}, true},     // color match
		{Card{Color: Blue, Value: Five}, true},    // value match
		{Card{Color: Blue, Value: Nine}, false},   // no match
		{Card{Color: Wild, Value: WildCard}, true}, // wild always plays
		{Card{Color: Wild, Value: DrawFour}, true},
	}
	for _, tc := range cases {
		if got := tc.card.CanPlayOn(top); got != tc.want {
			t.Errorf("CanPlayOn(%v on %v) = %v, want %v", tc.card, top, got, tc.want)
		}
	}
}

func TestCanPlayOnResolvedWild(t *testing.T) {
	top := PlayedCard{Card: Card{Color: Wild, Value: WildCard}, ChosenColor: Blue}

	if !(Card{Color: Blue, Value: Nine}).CanPlayOn(top) {
		t.Error("card matching the chosen color must be playable")
	}
	if (Card{Color: Red, Value: Nine}).CanPlayOn(top) {
		t.Error("card not matching the chosen color must be rejected")
	}
}
