package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmeowmog/mezastar/pkg/types"
)

func pikachu() Card {
	return Card{
		Name:          "Pikachu",
		Attack:        90,
		SpAttack:      110,
		PrimaryType:   types.Electric,
		SecondaryType: types.None,
		Moves: [2]Move{
			{Name: "Quick Attack", ElementType: types.Normal, Category: Physical},
			{Name: "Thunderbolt", ElementType: types.Electric, Category: Special},
		},
	}
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cards.json"))
	require.NoError(t, err)
	assert.Empty(t, s.Cards())
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	doc := `[
	  {"name": "Zapdos", "primaryType": "electric", "secondaryType": "Flying",
	   "specialAbility": "gigantamax",
	   "moves": [{"name": "Drill Peck", "elementType": "Flying"}]},
	  {"name": "Abra", "attack": 20, "spAttack": 105, "primaryType": "Psychic",
	   "specialAbility": "Sparkle",
	   "moves": [{"name": "", "elementType": "None"}, {"name": "Psybeam", "elementType": "Psychic", "category": "special"}]},
	  {"name": ""}
	]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	cards := s.Cards()
	require.Len(t, cards, 2)

	// sorted by name
	abra, zapdos := cards[0], cards[1]
	assert.Equal(t, "Abra", abra.Name)
	assert.Equal(t, NoAbility, abra.SpecialAbility)
	assert.Equal(t, types.None, abra.SecondaryType)
	assert.False(t, abra.Moves[0].Usable())
	assert.Equal(t, Special, abra.Moves[1].Category)

	assert.Equal(t, BaselineStat, zapdos.Attack)
	assert.Equal(t, BaselineStat, zapdos.SpAttack)
	assert.Equal(t, types.Electric, zapdos.PrimaryType)
	assert.Equal(t, Gigantamax, zapdos.SpecialAbility)
	assert.Equal(t, Physical, zapdos.Moves[0].Category)
	assert.False(t, zapdos.Moves[1].Usable())
	assert.Equal(t, types.None, zapdos.Moves[1].ElementType)
}

func TestDecodeCardAppliesDefaults(t *testing.T) {
	c, err := DecodeCard([]byte(`{"name": " Eevee ", "primaryType": "normal", "moves": [{"name": "Tackle"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Eevee", c.Name)
	assert.Equal(t, BaselineStat, c.Attack)
	assert.Equal(t, BaselineStat, c.SpAttack)
	assert.Equal(t, types.Normal, c.PrimaryType)
	assert.Equal(t, Physical, c.Moves[0].Category)
	assert.False(t, c.Moves[1].Usable())

	c, err = DecodeCard([]byte(`{"name": "Abra", "attack": 0, "spAttack": 105}`))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Attack)
	assert.Equal(t, 105, c.SpAttack)

	_, err = DecodeCard([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestUpsertPersistsAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Upsert(pikachu()))
	updated := pikachu()
	updated.Attack = 120
	require.NoError(t, s.Upsert(updated))
	require.NoError(t, s.Upsert(Card{Name: "Eevee", PrimaryType: types.Normal}))

	reopened, err := Open(path)
	require.NoError(t, err)
	cards := reopened.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, "Eevee", cards[0].Name)
	assert.Equal(t, 120, cards[1].Attack)
	assert.Equal(t, Physical, cards[0].Moves[0].Category)
}

func TestUpsertRejectsEmptyName(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cards.json"))
	require.NoError(t, err)
	assert.ErrorIs(t, s.Upsert(Card{Name: "  "}), ErrInvalidName)
}

func TestDelete(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cards.json"))
	require.NoError(t, err)
	require.NoError(t, s.Upsert(pikachu()))

	require.NoError(t, s.Delete("Pikachu"))
	assert.ErrorIs(t, s.Delete("Pikachu"), ErrNotFound)
	_, err = s.Get("Pikachu")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFailedSaveKeepsMemoryState(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// the parent of the inventory path is a regular file, so writes fail
	s := &Store{path: filepath.Join(blocker, "cards.json")}
	err := s.Upsert(pikachu())
	require.Error(t, err)

	assert.True(t, s.Dirty())
	got, err := s.Get("Pikachu")
	require.NoError(t, err)
	assert.Equal(t, 90, got.Attack)

	s.path = filepath.Join(dir, "cards.json")
	require.NoError(t, s.Save())
	assert.False(t, s.Dirty())
}

func TestImagePathIsNameDerived(t *testing.T) {
	assert.Equal(t, filepath.Join("img", "Mr. Mime_front.png"), ImagePath("img", "Mr. Mime", Front))
	assert.Equal(t, filepath.Join("img", "a_b_back.png"), ImagePath("img", "a/b", Back))
}

func TestParseAbility(t *testing.T) {
	assert.Equal(t, ZMove, ParseAbility("zmove"))
	assert.Equal(t, ZMove, ParseAbility("Z Move"))
	assert.Equal(t, Mega, ParseAbility("MEGA"))
	assert.Equal(t, NoAbility, ParseAbility(""))
	assert.Equal(t, NoAbility, ParseAbility("Sparkle"))
}
